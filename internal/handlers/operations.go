package handlers

import (
	"net/http"

	"media-pipe/internal/ffmpeg"
)

// OperationInfo describes one supported operation for API discovery.
type OperationInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Streaming   bool     `json:"streaming"`
	Session     bool     `json:"session"`
	Params      []string `json:"params,omitempty"`
	Values      []string `json:"values,omitempty"`
}

// Operations lists the supported transcode operations and their
// parameters.
func (h *Handlers) Operations(w http.ResponseWriter, _ *http.Request) {
	ops := []OperationInfo{
		{
			Name:        OpEncode,
			Description: "Re-encode video to a target resolution",
			Streaming:   true,
			Params:      []string{"resolution"},
			Values:      ffmpeg.Resolutions(),
		},
		{
			Name:        OpExtractAudio,
			Description: "Extract the audio track",
			Streaming:   true,
			Params:      []string{"format", "bitrate"},
			Values:      ffmpeg.AudioFormats(),
		},
		{
			Name:        OpExtractSubtitles,
			Description: "Extract a subtitle track as SRT",
			Streaming:   true,
			Params:      []string{"track"},
		},
		{
			Name:        OpAddAudio,
			Description: "Replace the audio track with an uploaded file",
			Streaming:   true,
			Session:     true,
		},
		{
			Name:        OpEmbedSubtitles,
			Description: "Embed an uploaded subtitle file as a default track",
			Streaming:   true,
			Session:     true,
		},
		{
			Name:        "preview",
			Description: "Extract the first frame as a JPEG preview",
			Streaming:   false,
			Params:      []string{"width", "height"},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, ops)
}
