// Package htmllisting parses an HTTP response body that looks like a file
// server's directory index into the list of same-directory child links it
// advertises.
package htmllisting

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// IsHTML is the cheap heuristic the engine uses to decide whether a
// response body is worth parsing as a directory listing: the literal
// string "<html>" appears somewhere in it.
func IsHTML(body []byte) bool {
	return bytes.Contains(body, []byte("<html>"))
}

// Links enumerates every anchor href in body and keeps only those that are
// relative paths within the same directory: non-empty, not "." or ".."
// (with or without a trailing slash), no leading slash, and carrying
// neither a URL scheme nor a host.
func Links(body []byte) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var links []string
	doc.Find("a").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}

		u, err := url.Parse(href)
		if err != nil {
			return
		}

		name := strings.TrimSuffix(u.Path, "/")
		if u.Path == "" || name == "." || name == ".." {
			return
		}
		if strings.HasPrefix(u.Path, "/") {
			return
		}
		if u.Scheme != "" || u.Host != "" {
			return
		}

		links = append(links, u.Path)
	})

	return links, nil
}
