// Package workers implements the four worker kinds of spec §4.5:
// DownloadWorker, RecursiveDownloadWorker, FindRefsWorker and
// FindObjectsWorker. Each closes over its own HTTP session, output
// directory store, object decoder and logger, and all four share the
// pre-existing-file short-circuit.
package workers

import (
	"context"
	"io"
	"net/http"
	"regexp"

	"github.com/rs/zerolog"

	"github.com/DidierA/git-dumper/internal/fsstore"
	"github.com/DidierA/git-dumper/internal/gitobj"
	"github.com/DidierA/git-dumper/internal/htmllisting"
	"github.com/DidierA/git-dumper/internal/httpclient"
)

// refPattern matches a single path component chain rooted at "refs",
// e.g. refs/heads/feature/x or refs/wip/index/refs/heads/*.
var refPattern = regexp.MustCompile(`refs(/[A-Za-z0-9.\-_*]+)+`)

// Deps are the parameters every worker kind closes over (the core
// design's "(base_url, out_dir, retries, timeout)" tuple, plus the
// object decoder and logger; the context is passed to each call).
type Deps struct {
	Client  *httpclient.Client
	Store   *fsstore.Store
	Decoder gitobj.Decoder
	Log     zerolog.Logger
}

// Download implements DownloadWorker: fetch a file; on non-200 yield no
// follow-ups; on 200, write to disk. Never recurses into directories.
func Download(ctx context.Context, d Deps, path string) []string {
	if d.Store.Exists(path) {
		d.Log.Debug().Str("path", path).Msg("file already fetched")
		return nil
	}

	resp, err := d.Client.Get(ctx, path)
	if err != nil {
		d.Log.Error().Err(err).Str("path", path).Msg("fetch failed")
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil
	}

	if err := d.Store.WriteStream(path, resp.Body); err != nil {
		d.Log.Error().Err(err).Str("path", path).Msg("write failed")
	}
	return nil
}

// RecursiveDownload implements RecursiveDownloadWorker: path tasks ending
// in "/" are directory listings to expand; other paths are files to
// fetch. 301/302 whose Location echoes path+"/" re-queues as a directory.
func RecursiveDownload(ctx context.Context, d Deps, path string) []string {
	isDir := len(path) > 0 && path[len(path)-1] == '/'

	if !isDir && d.Store.Exists(path) {
		d.Log.Debug().Str("path", path).Msg("file already fetched")
		return nil
	}

	resp, err := d.Client.Get(ctx, path)
	if err != nil {
		d.Log.Error().Err(err).Str("path", path).Msg("fetch failed")
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusMovedPermanently || resp.StatusCode == http.StatusFound {
		loc := resp.Header.Get("Location")
		if len(loc) >= len(path)+1 && loc[len(loc)-len(path)-1:] == path+"/" {
			return []string{path + "/"}
		}
		return nil
	}

	if resp.StatusCode != http.StatusOK {
		return nil
	}

	if isDir {
		body, err := readAll(resp)
		if err != nil {
			d.Log.Error().Err(err).Str("path", path).Msg("read listing failed")
			return nil
		}
		if !htmllisting.IsHTML(body) {
			d.Log.Error().Str("path", path).Msg("directory listing is not HTML")
			return nil
		}
		children, err := htmllisting.Links(body)
		if err != nil {
			d.Log.Error().Err(err).Str("path", path).Msg("parse listing failed")
			return nil
		}
		followUps := make([]string, len(children))
		for i, child := range children {
			followUps[i] = path + child
		}
		return followUps
	}

	if err := d.Store.WriteStream(path, resp.Body); err != nil {
		d.Log.Error().Err(err).Str("path", path).Msg("write failed")
	}
	return nil
}

// FindRefs implements FindRefsWorker: fetch (or re-read) a textual file
// and scan it for ref-shaped substrings, emitting the ref itself and its
// reflog as follow-up path tasks.
func FindRefs(ctx context.Context, d Deps, path string) []string {
	var text string

	if d.Store.Exists(path) {
		d.Log.Debug().Str("path", path).Msg("file already fetched")
		cached, err := d.Store.ReadString(path)
		if err != nil {
			d.Log.Error().Err(err).Str("path", path).Msg("read cached file failed")
			return nil
		}
		text = cached
	} else {
		resp, err := d.Client.Get(ctx, path)
		if err != nil {
			d.Log.Error().Err(err).Str("path", path).Msg("fetch failed")
			return nil
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil
		}

		body, err := readAll(resp)
		if err != nil {
			d.Log.Error().Err(err).Str("path", path).Msg("read body failed")
			return nil
		}
		text = string(body)

		if err := d.Store.WriteString(path, text); err != nil {
			d.Log.Error().Err(err).Str("path", path).Msg("write failed")
		}
	}

	var followUps []string
	for _, ref := range refPattern.FindAllString(text, -1) {
		if ref[len(ref)-1] == '*' {
			continue
		}
		followUps = append(followUps, ".git/"+ref, ".git/logs/"+ref)
	}
	return followUps
}

// FindObjects implements FindObjectsWorker: fetch (or reuse) the loose
// object file for oid, decode it, and extract further OIDs to chase.
func FindObjects(ctx context.Context, d Deps, oid string) []string {
	path := ObjectPath(oid)

	if !d.Store.Exists(path) {
		resp, err := d.Client.Get(ctx, path)
		if err != nil {
			d.Log.Error().Err(err).Str("oid", oid).Msg("fetch failed")
			return nil
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil
		}

		if err := d.Store.WriteStream(path, resp.Body); err != nil {
			d.Log.Error().Err(err).Str("oid", oid).Msg("write failed")
			return nil
		}
	}

	obj, err := d.Decoder.DecodeLoose(d.Store.AbsPath(path), oid)
	if err != nil {
		d.Log.Fatal().Err(err).Str("oid", oid).Msg("decode loose object failed")
		return nil
	}

	refs, err := gitobj.Extract(obj)
	if err != nil {
		d.Log.Fatal().Err(err).Str("oid", oid).Msg("unexpected object kind")
		return nil
	}
	return refs
}

// ObjectPath is the canonical on-disk/remote path for a loose object OID.
func ObjectPath(oid string) string {
	return ".git/objects/" + oid[:2] + "/" + oid[2:]
}

func readAll(resp *http.Response) ([]byte, error) {
	return io.ReadAll(resp.Body)
}
