package pool

import (
	"sort"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/DidierA/git-dumper/internal/metrics"
)

// a tiny tree: 1 -> {2,3}, 2 -> {4}, 3 -> {4}, 4 -> {}
var tree = map[int][]int{
	1: {2, 3},
	2: {4},
	3: {4},
	4: {},
}

func TestRun_ClosureAndDedup(t *testing.T) {
	var mu sync.Mutex
	var seenOrder []int

	do := func(task int) []int {
		mu.Lock()
		seenOrder = append(seenOrder, task)
		mu.Unlock()
		return tree[task]
	}

	RunShared([]int{1}, do, 4, nil, zerolog.Nop(), nil, "test")

	sort.Ints(seenOrder)
	assert.Equal(t, []int{1, 2, 3, 4}, seenOrder, "every reachable task runs exactly once")
}

func TestRun_PreDoneSkipsTasks(t *testing.T) {
	var mu sync.Mutex
	var seenOrder []int

	do := func(task int) []int {
		mu.Lock()
		seenOrder = append(seenOrder, task)
		mu.Unlock()
		return tree[task]
	}

	RunShared([]int{1}, do, 2, []int{4}, zerolog.Nop(), nil, "test")

	sort.Ints(seenOrder)
	assert.Equal(t, []int{1, 2, 3}, seenOrder, "pre-done tasks are never dispatched")
}

func TestRun_EmptySeedIsNoop(t *testing.T) {
	called := false
	do := func(task int) []int {
		called = true
		return nil
	}

	RunShared[int](nil, do, 5, nil, zerolog.Nop(), nil, "test")
	assert.False(t, called)
}

func TestRun_DuplicateSeedsCollapseToOne(t *testing.T) {
	var count int32
	var mu sync.Mutex

	do := func(task string) []string {
		mu.Lock()
		count++
		mu.Unlock()
		return nil
	}

	RunShared([]string{"a", "a", "a"}, do, 3, nil, zerolog.Nop(), nil, "test")
	assert.EqualValues(t, 1, count)
}

// TestRun_PerWorkerClosureIsolation exercises NewDoTask directly: each
// worker gets its own counter, proving newDo is called once per worker
// (not once per task) and that worker state never leaks across workers.
func TestRun_PerWorkerClosureIsolation(t *testing.T) {
	var mu sync.Mutex
	callsPerWorker := make(map[int]int)

	newDo := func(id int) DoTask[int] {
		calls := 0
		return func(task int) []int {
			calls++
			mu.Lock()
			callsPerWorker[id] = calls
			mu.Unlock()
			return tree[task]
		}
	}

	Run([]int{1}, newDo, 4, nil, zerolog.Nop(), nil, "test")

	mu.Lock()
	defer mu.Unlock()
	total := 0
	for _, c := range callsPerWorker {
		total += c
	}
	assert.Equal(t, 4, total, "every task is processed exactly once across all per-worker closures")
}

func TestRun_MetricsInstrumentProcessedAndOutstanding(t *testing.T) {
	m := metrics.New()
	do := func(task int) []int { return tree[task] }

	RunShared([]int{1}, do, 2, nil, zerolog.Nop(), m, "objects")

	count := testutil.ToFloat64(m.TasksProcessed.WithLabelValues("objects"))
	assert.Equal(t, float64(4), count, "processed counter increments once per task across the whole run")
	assert.Equal(t, float64(0), testutil.ToFloat64(m.TasksOutstanding), "outstanding gauge returns to 0 once the pool drains")
}
