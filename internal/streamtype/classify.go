// Package streamtype classifies media URLs by how a player should open them.
package streamtype

import (
	"strings"

	"github.com/grafana/regexp"
)

// Type is the playback kind of a media URL.
type Type string

const (
	YoutubeVideo    Type = "youtube_video"
	YoutubeLive     Type = "youtube_live"
	YoutubePlaylist Type = "youtube_playlist"
	YoutubeChannel  Type = "youtube_channel"
	HLS             Type = "hls"
	MP4             Type = "mp4"
	MKV             Type = "mkv"
	IPTV            Type = "iptv"
	RTMP            Type = "rtmp"
	GenericStream   Type = "generic_stream"
	Invalid         Type = "invalid"
)

// Result is the outcome of classifying a URL. ID is set for YouTube types.
type Result struct {
	Type Type
	ID   string
}

// Proxiable reports whether the stream proxy can relay this kind of URL.
// YouTube pages and RTMP are played natively by the client.
func (r Result) Proxiable() bool {
	switch r.Type {
	case HLS, MP4, MKV, IPTV, GenericStream:
		return true
	}
	return false
}

type rule struct {
	typ     Type
	pattern *regexp.Regexp
	idGroup int // submatch holding the ID, 0 for none
}

// rules are evaluated in order and the first match wins. YouTube forms come
// before extension checks, and HLS before MP4, because ambiguous URLs such as
// .../video.mp4/index.m3u8 must classify by the earlier rule.
var rules = []rule{
	{YoutubeLive, regexp.MustCompile(`(?i)youtube\.com/live/([A-Za-z0-9_-]{11})`), 1},
	{YoutubeVideo, regexp.MustCompile(`(?i)(?:youtube(?:-nocookie)?\.com/(?:watch\?(?:[^#]*&)?v=|embed/|shorts/|v/)|youtu\.be/)([A-Za-z0-9_-]{11})`), 1},
	{YoutubePlaylist, regexp.MustCompile(`(?i)youtube\.com/\S*[?&]list=([A-Za-z0-9_-]+)`), 1},
	{YoutubeChannel, regexp.MustCompile(`(?i)youtube\.com/(?:channel/|c/|user/|@)([A-Za-z0-9_.-]+)`), 1},
	{RTMP, regexp.MustCompile(`(?i)^rtmps?://`), 0},
	{HLS, regexp.MustCompile(`(?i)\.m3u8|chunklist|/hls/`), 0},
	{MP4, regexp.MustCompile(`(?i)\.mp4`), 0},
	{MKV, regexp.MustCompile(`(?i)\.mkv`), 0},
	{IPTV, regexp.MustCompile(`(?i)\.m3u\b|\.ts(?:$|[?#])|/(?:live|movie|series)/[^/]+/[^/]+/`), 0},
	{GenericStream, regexp.MustCompile(`(?i)^https?://`), 0},
}

// Classify returns the stream type of raw.
func Classify(raw string) Result {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Result{Type: Invalid}
	}
	for _, r := range rules {
		m := r.pattern.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		res := Result{Type: r.typ}
		if r.idGroup > 0 && r.idGroup < len(m) {
			res.ID = m[r.idGroup]
		}
		return res
	}
	return Result{Type: Invalid}
}
