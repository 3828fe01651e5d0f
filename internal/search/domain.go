package search

import (
	"net/url"
	"strings"
)

// Domain derives the dedup key for a URL: the last two dot-separated labels
// of the host, approximating a registrable domain. A single-label host is
// returned as-is; anything unparsable yields "".
//
// Known limitation: multi-label public suffixes (e.g. co.uk) are not
// recognized, so "example.co.uk" collapses to "co.uk". This heuristic is the
// dedup contract and is kept deliberately simple.
func Domain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	host := u.Hostname()
	if host == "" && u.Scheme == "" && u.Opaque == "" {
		// Schemeless input like "example.com" parses as a bare path;
		// treat its first segment as the host so Domain is idempotent
		// on its own output.
		host = u.Path
		if i := strings.IndexByte(host, '/'); i >= 0 {
			host = host[:i]
		}
	}
	if host == "" {
		return ""
	}

	labels := strings.Split(host, ".")
	if len(labels) > 1 {
		return strings.Join(labels[len(labels)-2:], ".")
	}
	return host
}
