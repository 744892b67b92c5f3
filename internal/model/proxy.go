// Package model defines shared types for the proxy.
package model

import (
	"context"
	"io"
	"net/http"
)

// StreamRequest represents a client request to relay a remote media resource.
type StreamRequest struct {
	Ctx   context.Context
	URL   string // decoded value of the url query parameter
	Range string // client Range header, forwarded verbatim
}

// UpstreamResponse represents the upstream response to be streamed back.
// ContentLength is -1 when the upstream did not announce a length.
type UpstreamResponse struct {
	StatusCode    int
	Header        http.Header
	ContentLength int64
	Body          io.ReadCloser
}

// PlaylistKind is the HLS playlist type detected after rewriting.
type PlaylistKind string

const (
	PlaylistMaster  PlaylistKind = "master"
	PlaylistMedia   PlaylistKind = "media"
	PlaylistUnknown PlaylistKind = "unknown"
)

// Playlist is a rewritten HLS playlist ready to be returned to the client.
type Playlist struct {
	Body string
	Kind PlaylistKind
}
