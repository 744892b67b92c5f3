package playlist

import (
	"strings"

	"github.com/grafov/m3u8"

	"ott-proxy/internal/model"
)

// DetectKind reports whether text is a master or media playlist.
// Detection is best-effort: anything the decoder rejects is unknown.
func DetectKind(text string) model.PlaylistKind {
	if !strings.HasPrefix(strings.TrimSpace(text), "#EXTM3U") {
		return model.PlaylistUnknown
	}
	_, listType, err := m3u8.DecodeFrom(strings.NewReader(text), false)
	if err != nil {
		return model.PlaylistUnknown
	}
	switch listType {
	case m3u8.MASTER:
		return model.PlaylistMaster
	case m3u8.MEDIA:
		return model.PlaylistMedia
	}
	return model.PlaylistUnknown
}
