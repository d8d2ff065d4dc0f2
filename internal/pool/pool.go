// Package pool implements the generic task queue / worker pool described in
// the core engine: a fixed-size group of workers drains a dynamically
// growing, self-deduplicating set of tasks until the transitive closure of
// follow-up tasks is exhausted.
package pool

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/DidierA/git-dumper/internal/metrics"
)

// DoTask executes a single task and returns the follow-up tasks it
// discovered. An empty (possibly nil) slice means the task is terminal.
type DoTask[T comparable] func(task T) []T

// NewDoTask builds the DoTask a single worker goroutine will use for its
// entire lifetime. It is called once per worker (not once per task) so
// each worker can close over its own HTTP session, exactly like the
// reference engine's per-process Worker.init — workers never share
// session state.
type NewDoTask[T comparable] func(workerID int) DoTask[T]

// Run drains seed plus every follow-up task DoTask produces, across
// workers goroutines, and returns once the pool is quiescent.
//
// preDone pre-populates the dedup set so tasks already known to be
// satisfied (e.g. objects already present in a local pack) are never
// enqueued, mirroring the "pre_done_tasks" parameter of the source engine.
//
// m and phase instrument the run (spec §A.5): m may be nil to disable
// instrumentation entirely; phase labels every processed task.
func Run[T comparable](seed []T, newDo NewDoTask[T], workers int, preDone []T, log zerolog.Logger, m *metrics.Metrics, phase string) {
	if len(seed) == 0 {
		return
	}
	if workers < 1 {
		workers = 1
	}

	seen := make(map[T]struct{}, len(seed)+len(preDone))
	for _, t := range preDone {
		seen[t] = struct{}{}
	}

	pending := newQueue[T]()
	results := make(chan []T)

	var outstanding int
	for _, t := range seed {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		pending.push(t)
		outstanding++
	}

	setOutstanding(m, outstanding)
	if outstanding == 0 {
		pending.close()
		return
	}

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(id int) {
			defer wg.Done()
			runWorker(id, pending, results, newDo(id), log)
		}(i)
	}

	for outstanding > 0 {
		followUps := <-results
		outstanding--
		incProcessed(m, phase)

		for _, t := range followUps {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			pending.push(t)
			outstanding++
		}
		setOutstanding(m, outstanding)
	}

	// Closing the queue wakes every worker blocked on pop and is the
	// idiomatic Go equivalent of pushing one sentinel per worker.
	pending.close()
	wg.Wait()
}

// RunShared is Run for the common case where every worker can safely
// share one DoTask (e.g. in tests, or a worker kind with no per-session
// state).
func RunShared[T comparable](seed []T, do DoTask[T], workers int, preDone []T, log zerolog.Logger, m *metrics.Metrics, phase string) {
	Run(seed, func(int) DoTask[T] { return do }, workers, preDone, log, m, phase)
}

func incProcessed(m *metrics.Metrics, phase string) {
	if m == nil {
		return
	}
	m.TasksProcessed.WithLabelValues(phase).Inc()
}

func setOutstanding(m *metrics.Metrics, n int) {
	if m == nil {
		return
	}
	m.TasksOutstanding.Set(float64(n))
}

func runWorker[T comparable](id int, pending *queue[T], results chan<- []T, do DoTask[T], log zerolog.Logger) {
	for {
		task, ok := pending.pop()
		if !ok {
			log.Debug().Int("worker", id).Msg("worker exiting")
			return
		}
		results <- do(task)
	}
}
