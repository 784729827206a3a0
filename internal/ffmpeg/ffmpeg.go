package ffmpeg

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"media-pipe/internal/transform"
)

// Default binary names; overridable for non-PATH installs.
const (
	DefaultFFmpegPath  = "ffmpeg"
	DefaultFFprobePath = "ffprobe"
)

// DefaultSubtitleStyle is the ASS force_style applied when burning or
// embedding subtitles without a caller-supplied style.
const DefaultSubtitleStyle = "FontSize=20," +
	"PrimaryColour=&Hffffff," +
	"SecondaryColour=&Hffffff," +
	"OutlineColour=&H0," +
	"BackColour=&H80000000," +
	"Bold=0," +
	"Italic=0," +
	"Underline=0," +
	"StrikeOut=0," +
	"Spacing=0," +
	"Angle=0," +
	"BorderStyle=1," +
	"Outline=1," +
	"Shadow=0," +
	"Alignment=2," +
	"MarginL=0," +
	"MarginR=0," +
	"MarginV=0"

type resolutionSetting struct {
	Width   int
	Height  int
	Bitrate string // maxrate, e.g. "2000k"
}

var resolutionSettings = map[string]resolutionSetting{
	"720p": {Width: 1280, Height: 720, Bitrate: "2000k"},
	"480p": {Width: 854, Height: 480, Bitrate: "1000k"},
	"360p": {Width: 640, Height: 360, Bitrate: "500k"},
}

type audioSetting struct {
	Codec     string
	Extension string
}

var audioSettings = map[string]audioSetting{
	"mp3": {Codec: "libmp3lame", Extension: "mp3"},
	"ogg": {Codec: "libvorbis", Extension: "ogg"},
	"wav": {Codec: "pcm_s16le", Extension: "wav"},
}

// Resolutions returns the supported encode targets, sorted descending
// by height.
func Resolutions() []string {
	out := make([]string, 0, len(resolutionSettings))
	for name := range resolutionSettings {
		out = append(out, name)
	}
	sort.Slice(out, func(i, j int) bool {
		return resolutionSettings[out[i]].Height > resolutionSettings[out[j]].Height
	})
	return out
}

// AudioFormats returns the supported audio extraction formats, sorted.
func AudioFormats() []string {
	out := make([]string, 0, len(audioSettings))
	for name := range audioSettings {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ValidResolution reports whether resolution is a supported target.
func ValidResolution(resolution string) bool {
	_, ok := resolutionSettings[resolution]
	return ok
}

// ValidAudioFormat reports whether format is a supported audio format.
func ValidAudioFormat(format string) bool {
	_, ok := audioSettings[format]
	return ok
}

// Builder constructs transform specs for a particular pair of ffmpeg
// and ffprobe binaries.
type Builder struct {
	FFmpegPath  string
	FFprobePath string
}

// NewBuilder returns a Builder using the given binary paths, falling
// back to the PATH defaults when they are empty.
func NewBuilder(ffmpegPath, ffprobePath string) *Builder {
	b := &Builder{FFmpegPath: ffmpegPath, FFprobePath: ffprobePath}
	if b.FFmpegPath == "" {
		b.FFmpegPath = DefaultFFmpegPath
	}
	if b.FFprobePath == "" {
		b.FFprobePath = DefaultFFprobePath
	}
	return b
}

// ResolutionEncode builds a stdin-to-stdout H.264 re-encode at the
// given target resolution. Fragmented MP4 is used because the default
// faststart layout needs a seekable output, and a pipe is not.
func (b *Builder) ResolutionEncode(resolution string) (transform.Spec, error) {
	settings, ok := resolutionSettings[resolution]
	if !ok {
		return transform.Spec{}, fmt.Errorf("unsupported resolution %q (supported: %s)",
			resolution, strings.Join(Resolutions(), ", "))
	}

	bufsize := strconv.Itoa(bitrateK(settings.Bitrate)*2) + "k"

	return transform.Spec{
		Args: []string{
			b.FFmpegPath, "-i", "pipe:0",
			"-vf", fmt.Sprintf("scale=%d:%d", settings.Width, settings.Height),
			"-c:v", "libx264",
			"-preset", "medium",
			"-crf", "23",
			"-maxrate", settings.Bitrate,
			"-bufsize", bufsize,
			"-pix_fmt", "yuv420p",
			"-c:a", "aac",
			"-b:a", "128k",
			"-ar", "44100",
			"-f", "mp4",
			"-movflags", "frag_keyframe+empty_moov",
			"pipe:1",
		},
	}, nil
}

// AudioExtract builds a stdin-to-stdout audio extraction. An empty
// bitrate defaults to 192k.
func (b *Builder) AudioExtract(format, bitrate string) (transform.Spec, error) {
	settings, ok := audioSettings[format]
	if !ok {
		return transform.Spec{}, fmt.Errorf("unsupported audio format %q (supported: %s)",
			format, strings.Join(AudioFormats(), ", "))
	}
	if bitrate == "" {
		bitrate = "192k"
	}

	return transform.Spec{
		Args: []string{
			b.FFmpegPath, "-i", "pipe:0",
			"-vn",
			"-c:a", settings.Codec,
			"-b:a", bitrate,
			"-ar", "44100",
			"-ac", "2",
			"-f", format,
			"pipe:1",
		},
	}, nil
}

// AudioAdd builds a command that replaces the video's audio track with
// the audio file at audioPath. The video stream is copied, the new
// audio re-encoded to AAC. Mixing the two audio tracks instead of
// replacing needs a second synchronised stdin and is not supported over
// a single-pipe run.
func (b *Builder) AudioAdd(audioPath string, replace bool) (transform.Spec, error) {
	if !replace {
		return transform.Spec{}, fmt.Errorf("audio mixing is not supported, only replacement")
	}
	if audioPath == "" {
		return transform.Spec{}, fmt.Errorf("audio file path is required")
	}

	return transform.Spec{
		Args: []string{
			b.FFmpegPath, "-i", "pipe:0",
			"-i", audioPath,
			"-c:v", "copy",
			"-c:a", "aac",
			"-b:a", "128k",
			"-ar", "44100",
			"-map", "0:v:0",
			"-map", "1:a:0",
			"-f", "mp4",
			"-movflags", "frag_keyframe+empty_moov",
			"pipe:1",
		},
		AuxPaths: []string{audioPath},
	}, nil
}

// SubtitleExtract builds a command that pulls one subtitle track out of
// the input as SRT.
func (b *Builder) SubtitleExtract(trackIndex int) (transform.Spec, error) {
	if trackIndex < 0 {
		return transform.Spec{}, fmt.Errorf("subtitle track index must be >= 0, got %d", trackIndex)
	}

	return transform.Spec{
		Args: []string{
			b.FFmpegPath, "-i", "pipe:0",
			"-map", fmt.Sprintf("0:s:%d", trackIndex),
			"-c:s", "srt",
			"-f", "srt",
			"pipe:1",
		},
	}, nil
}

// SubtitleEmbed builds a command that muxes the subtitle file at
// subtitlePath into the video as a default mov_text track. Video and
// audio streams are copied untouched.
func (b *Builder) SubtitleEmbed(subtitlePath, style string) (transform.Spec, error) {
	if subtitlePath == "" {
		return transform.Spec{}, fmt.Errorf("subtitle file path is required")
	}
	_ = style // reserved for burn-in; soft-embedded mov_text carries no styling

	return transform.Spec{
		Args: []string{
			b.FFmpegPath, "-i", "pipe:0",
			"-i", subtitlePath,
			"-c:v", "copy",
			"-c:a", "copy",
			"-c:s", "mov_text",
			"-disposition:s:0", "default",
			"-metadata:s:s:0", "language=eng",
			"-f", "mp4",
			"-movflags", "frag_keyframe+empty_moov",
			"pipe:1",
		},
		AuxPaths: []string{subtitlePath},
	}, nil
}

// PreviewFrame builds a command that decodes a single frame from the
// input and emits it as JPEG on stdout.
func (b *Builder) PreviewFrame() transform.Spec {
	return transform.Spec{
		Args: []string{
			b.FFmpegPath, "-i", "pipe:0",
			"-frames:v", "1",
			"-c:v", "mjpeg",
			"-f", "image2pipe",
			"pipe:1",
		},
	}
}

// Probe builds an ffprobe command emitting JSON format and stream info.
func (b *Builder) Probe() transform.Spec {
	return transform.Spec{
		Args: []string{
			b.FFprobePath,
			"-v", "quiet",
			"-print_format", "json",
			"-show_format",
			"-show_streams",
			"pipe:0",
		},
	}
}

// HasSubtitles builds an ffprobe command that prints one codec name per
// subtitle stream; empty output means no subtitles.
func (b *Builder) HasSubtitles() transform.Spec {
	return transform.Spec{
		Args: []string{
			b.FFprobePath,
			"-v", "error",
			"-select_streams", "s",
			"-show_entries", "stream=codec_name",
			"-of", "default=noprint_wrappers=1:nokey=1",
			"pipe:0",
		},
	}
}

// CalculateDimensions computes output dimensions for a target
// resolution while preserving the source aspect ratio. Both dimensions
// are rounded up to even values, which most H.264 profiles require.
func CalculateDimensions(origWidth, origHeight int, resolution string) (int, int, error) {
	settings, ok := resolutionSettings[resolution]
	if !ok {
		return 0, 0, fmt.Errorf("unsupported resolution %q", resolution)
	}
	if origWidth <= 0 || origHeight <= 0 {
		return 0, 0, fmt.Errorf("invalid source dimensions %dx%d", origWidth, origHeight)
	}

	targetHeight := settings.Height
	targetWidth := targetHeight * origWidth / origHeight

	if targetWidth%2 != 0 {
		targetWidth++
	}
	if targetHeight%2 != 0 {
		targetHeight++
	}
	return targetWidth, targetHeight, nil
}

// EstimateOutputSize predicts the output size in bytes for an operation
// given its input size. The ratios are rough empirical medians; the
// result feeds progress reporting only and is never enforced.
func EstimateOutputSize(inputSize int64, operation, resolution string) int64 {
	if inputSize <= 0 {
		return 0
	}
	switch operation {
	case "encode":
		switch resolution {
		case "720p":
			return inputSize * 6 / 10
		case "480p":
			return inputSize * 4 / 10
		case "360p":
			return inputSize / 4
		}
	case "extract_audio":
		return inputSize / 10
	case "add_audio", "embed_subtitles":
		return inputSize * 11 / 10
	}
	return inputSize
}

// bitrateK parses a bitrate like "2000k" into its numeric kilobit
// value; unparseable input yields 0.
func bitrateK(bitrate string) int {
	n, err := strconv.Atoi(strings.TrimSuffix(bitrate, "k"))
	if err != nil {
		return 0
	}
	return n
}
