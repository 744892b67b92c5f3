// Package playlist rewrites HLS playlists so every URI routes through the stream proxy.
package playlist

import (
	"net/url"
	"strings"

	"github.com/grafana/regexp"
)

// absoluteURL matches http(s) URLs anywhere in a playlist. Quoted attribute
// values and bare lines run to whitespace or a quote. An unquoted attribute
// value (matched with its leading '=') also stops at the next ',' so the rest
// of the attribute list survives.
var absoluteURL = regexp.MustCompile(`=https?://[^\s"',]+|https?://[^\s"']+`)

// streamPath is the proxy route that relays a single upstream resource.
const streamPath = "/proxy/stream"

// Rewriter turns playlist URIs into links to the stream proxy at a fixed API base.
type Rewriter struct {
	apiBase string
}

// NewRewriter creates a Rewriter that emits <apiBase>/proxy/stream?url=... links.
// apiBase must be an absolute http(s) URL; the relative-line pass relies on
// rewritten links starting with "http".
func NewRewriter(apiBase string) *Rewriter {
	return &Rewriter{apiBase: strings.TrimRight(apiBase, "/")}
}

// ProxyURL returns the stream proxy link for target.
func (r *Rewriter) ProxyURL(target string) string {
	return r.apiBase + streamPath + "?url=" + url.QueryEscape(target)
}

func (r *Rewriter) proxyMatch(m string) string {
	if target, ok := strings.CutPrefix(m, "="); ok {
		return "=" + r.ProxyURL(target)
	}
	return r.ProxyURL(m)
}

// Rewrite proxies every URI in text, which was fetched from playlistURL.
//
// Absolute URLs are replaced first, wherever they appear. Then each remaining
// URI line that does not start with "http" is resolved against the playlist's
// base directory and replaced. The order matters: after the first pass every
// absolute line starts with the API base and is skipped by the second.
// Line count and comment lines are preserved.
func (r *Rewriter) Rewrite(text, playlistURL string) string {
	base := BaseDir(playlistURL)

	rewritten := absoluteURL.ReplaceAllStringFunc(text, r.proxyMatch)

	lines := strings.Split(rewritten, "\n")
	for i, line := range lines {
		entry := strings.TrimSpace(line)
		if entry == "" || strings.HasPrefix(entry, "#") || strings.HasPrefix(entry, "http") {
			continue
		}
		out := r.ProxyURL(Resolve(base, entry))
		if strings.HasSuffix(line, "\r") {
			out += "\r"
		}
		lines[i] = out
	}
	return strings.Join(lines, "\n")
}

// BaseDir returns playlistURL, without query or fragment, up to and including
// its last '/'.
func BaseDir(playlistURL string) string {
	s := playlistURL
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	if u, err := url.Parse(s); err == nil && u.Host != "" && u.Path == "" {
		return s + "/"
	}
	return s[:strings.LastIndex(s, "/")+1]
}

// Resolve joins a relative playlist entry onto base. Root-relative entries
// resolve against the origin of base, protocol-relative ones against its scheme.
func Resolve(base, entry string) string {
	if !strings.HasPrefix(entry, "/") {
		return base + entry
	}
	u, err := url.Parse(base)
	if err != nil || u.Host == "" {
		return base + strings.TrimPrefix(entry, "/")
	}
	if strings.HasPrefix(entry, "//") {
		return u.Scheme + ":" + entry
	}
	return u.Scheme + "://" + u.Host + entry
}
