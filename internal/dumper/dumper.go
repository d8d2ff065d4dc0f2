// Package dumper is the Phase Orchestrator (spec §4.6): it drives a fixed
// sequence of worker-pool phases against a target that exposes its .git/
// directory, each phase observing the filesystem state the previous one
// produced.
package dumper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/DidierA/git-dumper/internal/fsstore"
	"github.com/DidierA/git-dumper/internal/gitobj"
	"github.com/DidierA/git-dumper/internal/htmllisting"
	"github.com/DidierA/git-dumper/internal/httpclient"
	"github.com/DidierA/git-dumper/internal/metrics"
	"github.com/DidierA/git-dumper/internal/pool"
	"github.com/DidierA/git-dumper/internal/workers"
)

// Sentinel errors the CLI translates into exit codes (spec §7).
var (
	ErrHeadNotFound       = errors.New("dumper: .git/HEAD does not exist")
	ErrHeadNotARef        = errors.New("dumper: .git/HEAD is not a git HEAD file")
	ErrUnknownObjectKind  = gitobj.ErrUnknownKind
	ErrOutDirNotExist     = errors.New("dumper: output directory does not exist")
	ErrInvalidJobs        = errors.New("dumper: jobs must be >= 1")
	ErrInvalidRetries     = errors.New("dumper: retry must be >= 1")
	ErrInvalidTimeoutSecs = errors.New("dumper: timeout must be >= 1")
)

// Options are the CLI-supplied parameters (spec §6 CLI surface).
type Options struct {
	URL       string
	Dir       string
	Jobs      int
	Retries   int
	Timeout   time.Duration
	ProxySpec string
}

// Validate checks the invariants spec §6 attaches to the CLI surface.
func (o Options) Validate() error {
	if fi, err := os.Stat(o.Dir); err != nil || !fi.IsDir() {
		return fmt.Errorf("%w: %s", ErrOutDirNotExist, o.Dir)
	}
	if o.Jobs < 1 {
		return ErrInvalidJobs
	}
	if o.Retries < 1 {
		return ErrInvalidRetries
	}
	if o.Timeout < time.Second {
		return ErrInvalidTimeoutSecs
	}
	return nil
}

// Dumper runs the phase sequence against one target.
type Dumper struct {
	opts    Options
	log     zerolog.Logger
	metrics *metrics.Metrics

	// client serves Phase 0/1's two probe calls only — those run on the
	// orchestrator goroutine, never inside a worker pool, so one shared
	// session is correct there. Every pool worker gets its own session
	// from newWorkerClient instead; see Run.
	client  *httpclient.Client
	store   *fsstore.Store
	decoder gitobj.Decoder
}

// New builds a Dumper. baseURL normalization (spec §4.6 Phase 0) happens
// here so every subsequent phase sees the same normalized base.
func New(opts Options, log zerolog.Logger, m *metrics.Metrics) (*Dumper, error) {
	opts.URL = normalizeBaseURL(opts.URL)

	client, err := httpclient.New(opts.URL, opts.Retries, opts.Timeout, opts.ProxySpec, log)
	if err != nil {
		return nil, fmt.Errorf("dumper: build http client: %w", err)
	}
	if m != nil {
		client.SetMetrics(m)
	}

	return &Dumper{
		opts:    opts,
		log:     log,
		metrics: m,
		client:  client,
		store:   fsstore.New(opts.Dir),
		decoder: gitobj.NewGoGitDecoder(),
	}, nil
}

// normalizeBaseURL strips trailing slashes, a trailing "HEAD", and a
// trailing ".git", re-stripping slashes after each (spec §4.6 Phase 0).
func normalizeBaseURL(url string) string {
	url = strings.TrimRight(url, "/")
	url = strings.TrimSuffix(url, "HEAD")
	url = strings.TrimRight(url, "/")
	url = strings.TrimSuffix(url, ".git")
	url = strings.TrimRight(url, "/")
	return url
}

// Run drives every phase in order, stopping early if Phase 1's fast path
// applies. It returns one of the sentinel errors above on probe failure;
// any other error is a transport/filesystem failure wrapped with context.
func (d *Dumper) Run(ctx context.Context) error {
	if err := d.probeHead(ctx); err != nil {
		return err
	}

	fastPath, err := d.probeDirListing(ctx)
	if err != nil {
		return err
	}
	if fastPath {
		d.log.Info().Msg("fetching .git recursively")
		pool.Run([]string{".git/", ".gitignore"}, d.newRecursiveDownloadTask, d.opts.Jobs, nil, d.log, d.metrics, "recursive")
		d.log.Info().Str("dir", d.opts.Dir).Msg(`directory listing enabled; run "git checkout ." when done`)
		return nil
	}

	d.log.Info().Msg("fetching common files")
	pool.Run(commonFiles, d.newDownloadTask, d.opts.Jobs, nil, d.log, d.metrics, "common")

	d.log.Info().Msg("finding refs")
	pool.Run(refSeedPaths, d.newFindRefsTask, d.opts.Jobs, nil, d.log, d.metrics, "refs")

	d.log.Info().Msg("finding packs")
	packTasks, err := d.discoverPackTasks()
	if err != nil {
		return err
	}
	if len(packTasks) > 0 {
		pool.Run(packTasks, d.newDownloadTask, d.opts.Jobs, nil, d.log, d.metrics, "packs")
	}

	d.log.Info().Msg("finding objects")
	objs, packed, err := d.discoverObjects()
	if err != nil {
		return err
	}
	pool.Run(objs, d.newFindObjectsTask, d.opts.Jobs, packed, d.log, d.metrics, "objects")

	d.log.Info().Str("dir", d.opts.Dir).Msg(`done; run "git checkout ." when ready`)
	return nil
}

// newWorkerClient builds a fresh HTTP session for one worker goroutine, so
// a 403 mid-phase resets only that worker's session (spec §4.1, §4.5(i),
// §5) instead of a transport shared — and reset — across every worker.
// The construction is identical to the one New already proved succeeds
// during Dumper setup, so an error here only indicates the proxy spec
// changed underneath the process; falling back to the orchestrator's own
// probe client keeps the worker usable rather than losing the task.
func (d *Dumper) newWorkerClient(workerID int) *httpclient.Client {
	client, err := httpclient.New(d.opts.URL, d.opts.Retries, d.opts.Timeout, d.opts.ProxySpec, d.log)
	if err != nil {
		d.log.Error().Err(err).Int("worker", workerID).Msg("rebuild session failed; reusing shared client")
		return d.client
	}
	if d.metrics != nil {
		client.SetMetrics(d.metrics)
	}
	return client
}

func (d *Dumper) depsFor(workerID int) workers.Deps {
	return workers.Deps{Client: d.newWorkerClient(workerID), Store: d.store, Decoder: d.decoder, Log: d.log}
}

func (d *Dumper) newDownloadTask(workerID int) pool.DoTask[string] {
	deps := d.depsFor(workerID)
	return func(path string) []string {
		return workers.Download(context.Background(), deps, path)
	}
}

func (d *Dumper) newRecursiveDownloadTask(workerID int) pool.DoTask[string] {
	deps := d.depsFor(workerID)
	return func(path string) []string {
		return workers.RecursiveDownload(context.Background(), deps, path)
	}
}

func (d *Dumper) newFindRefsTask(workerID int) pool.DoTask[string] {
	deps := d.depsFor(workerID)
	return func(path string) []string {
		return workers.FindRefs(context.Background(), deps, path)
	}
}

func (d *Dumper) newFindObjectsTask(workerID int) pool.DoTask[string] {
	deps := d.depsFor(workerID)
	return func(oid string) []string {
		return workers.FindObjects(context.Background(), deps, oid)
	}
}

// probeHead implements Phase 0's probe: GET <base>/.git/HEAD must be 200
// and start with "ref:".
func (d *Dumper) probeHead(ctx context.Context) error {
	resp, err := d.client.ProbeGet(ctx, ".git/HEAD")
	if err != nil {
		return fmt.Errorf("dumper: probe .git/HEAD: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return fmt.Errorf("%w: %s/.git/HEAD", ErrHeadNotFound, d.opts.URL)
	}

	buf := make([]byte, 4)
	n, _ := io.ReadFull(resp.Body, buf)
	if string(buf[:n]) != "ref:" {
		return fmt.Errorf("%w: %s/.git/HEAD", ErrHeadNotARef, d.opts.URL)
	}
	return nil
}

// probeDirListing implements Phase 1's condition: GET <base>/.git/ must be
// 200, HTML, and its parsed listing must contain "HEAD".
func (d *Dumper) probeDirListing(ctx context.Context) (bool, error) {
	resp, err := d.client.ProbeGet(ctx, ".git/")
	if err != nil {
		return false, fmt.Errorf("dumper: probe .git/ listing: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return false, nil
	}

	buf, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, nil
	}

	if !htmllisting.IsHTML(buf) {
		return false, nil
	}
	links, err := htmllisting.Links(buf)
	if err != nil {
		return false, nil
	}
	for _, l := range links {
		if l == "HEAD" {
			return true, nil
		}
	}
	return false, nil
}

// discoverPackTasks implements Phase 4: scan the locally downloaded
// .git/objects/info/packs for pack hashes and build the .idx/.pack
// download tasks for each.
func (d *Dumper) discoverPackTasks() ([]string, error) {
	if !d.store.Exists(packsInfoPath) {
		return nil, nil
	}
	content, err := d.store.ReadString(packsInfoPath)
	if err != nil {
		return nil, fmt.Errorf("dumper: read %s: %w", packsInfoPath, err)
	}

	var tasks []string
	for _, m := range packHashPattern.FindAllStringSubmatch(content, -1) {
		sha1 := m[1]
		tasks = append(tasks,
			fmt.Sprintf(".git/objects/pack/pack-%s.idx", sha1),
			fmt.Sprintf(".git/objects/pack/pack-%s.pack", sha1),
		)
	}
	return tasks, nil
}

var packHashPattern = regexp.MustCompile(`pack-([a-f0-9]{40})\.pack`)

const packsInfoPath = ".git/objects/info/packs"

// oidInTextPattern matches a bare 40-hex OID preceded by start-of-string
// or whitespace and followed by end-of-string or whitespace (spec §4.6
// Phase 5 step 1).
var oidInTextPattern = regexp.MustCompile(`(^|\s)([a-f0-9]{40})($|\s)`)

// discoverObjects implements Phase 5 steps 1-2: assemble the OID set to
// fetch and the set already satisfied by locally downloaded packs.
func (d *Dumper) discoverObjects() (objs []string, packed []string, err error) {
	seen := make(map[string]struct{})
	addOID := func(oid string) {
		if _, ok := seen[oid]; !ok {
			seen[oid] = struct{}{}
			objs = append(objs, oid)
		}
	}

	scanFiles := []string{
		".git/packed-refs",
		".git/info/refs",
		".git/FETCH_HEAD",
		".git/ORIG_HEAD",
	}
	scanFiles = append(scanFiles, d.walkTextFiles(".git/refs")...)
	scanFiles = append(scanFiles, d.walkTextFiles(".git/logs")...)

	for _, rel := range scanFiles {
		if !d.store.Exists(rel) {
			continue
		}
		content, rerr := d.store.ReadString(rel)
		if rerr != nil {
			return nil, nil, fmt.Errorf("dumper: read %s: %w", rel, rerr)
		}
		for _, m := range oidInTextPattern.FindAllStringSubmatch(content, -1) {
			addOID(m[2])
		}
	}

	indexPath := ".git/index"
	if d.store.Exists(indexPath) {
		blobOIDs, ierr := d.decoder.IndexBlobOIDs(d.store.AbsPath(indexPath))
		if ierr != nil {
			return nil, nil, fmt.Errorf("dumper: decode %s: %w", indexPath, ierr)
		}
		for _, oid := range blobOIDs {
			addOID(oid)
		}
	}

	packDir := d.store.AbsPath(".git/objects/pack")
	entries, rerr := os.ReadDir(packDir)
	if rerr == nil {
		for _, e := range entries {
			name := e.Name()
			if e.IsDir() || !strings.HasPrefix(name, "pack-") || !strings.HasSuffix(name, ".pack") {
				continue
			}
			packPath := filepath.Join(packDir, name)
			idxPath := filepath.Join(packDir, strings.TrimSuffix(name, ".pack")+".idx")

			packedObjs, perr := d.decoder.IterPack(packPath, idxPath)
			if perr != nil {
				return nil, nil, fmt.Errorf("dumper: iterate pack %s: %w", name, perr)
			}
			for _, obj := range packedObjs {
				packed = append(packed, obj.OID)
				refs, xerr := gitobj.Extract(obj.Object)
				if xerr != nil {
					return nil, nil, fmt.Errorf("dumper: extract refs from packed object %s: %w", obj.OID, xerr)
				}
				for _, ref := range refs {
					addOID(ref)
				}
			}
		}
	}

	return objs, packed, nil
}

// walkTextFiles lists every file beneath a previously-downloaded
// directory tree, relative to the store root, for Phase 5's OID scan.
func (d *Dumper) walkTextFiles(relDir string) []string {
	root := d.store.AbsPath(relDir)
	var out []string
	_ = filepath.WalkDir(root, func(path string, dirEntry os.DirEntry, err error) error {
		if err != nil || dirEntry == nil || dirEntry.IsDir() {
			return nil
		}
		rel, rerr := filepath.Rel(d.opts.Dir, path)
		if rerr != nil {
			return nil
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	return out
}
