package preview

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"time"

	"github.com/disintegration/imaging"

	"media-pipe/internal/ffmpeg"
	"media-pipe/internal/pipeline"
	"media-pipe/internal/sink"
	"media-pipe/internal/source"
)

const (
	// DefaultMaxWidth and DefaultMaxHeight bound the preview image.
	DefaultMaxWidth  = 640
	DefaultMaxHeight = 360
	// DefaultQuality is the JPEG quality for re-encoded previews.
	DefaultQuality = 80
	// DefaultTimeout bounds the frame extraction run. Decoding one
	// frame should be fast; a stream that takes longer is stuck.
	DefaultTimeout = 30 * time.Second
)

// Options tune preview generation. Zero values use the defaults above.
type Options struct {
	MaxWidth  int
	MaxHeight int
	Quality   int
	Timeout   time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxWidth <= 0 {
		o.MaxWidth = DefaultMaxWidth
	}
	if o.MaxHeight <= 0 {
		o.MaxHeight = DefaultMaxHeight
	}
	if o.Quality <= 0 {
		o.Quality = DefaultQuality
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return o
}

// Generate extracts the first frame of the media stream in src and
// returns it as a bounded JPEG. The frame run legitimately finishes
// before consuming the whole stream; the pipeline treats that early
// exit as success.
func Generate(ctx context.Context, builder *ffmpeg.Builder, src source.Source, opts Options) ([]byte, error) {
	opts = opts.withDefaults()

	buf := sink.NewBufferSink()
	_, err := pipeline.Run(ctx, src, builder.PreviewFrame(), buf, pipeline.Options{
		Operation: "preview",
		Timeout:   opts.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("extract preview frame: %w", err)
	}
	if buf.Len() == 0 {
		return nil, fmt.Errorf("stream produced no preview frame")
	}

	return FromImageBytes(buf.Bytes(), opts)
}

// FromImageBytes bounds an already-decoded frame image to the preview
// dimensions and re-encodes it as JPEG. Frames already within bounds
// pass through Fit unscaled.
func FromImageBytes(data []byte, opts Options) ([]byte, error) {
	opts = opts.withDefaults()

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode preview frame: %w", err)
	}

	thumb := imaging.Fit(img, opts.MaxWidth, opts.MaxHeight, imaging.Lanczos)

	var out bytes.Buffer
	if err := jpeg.Encode(&out, thumb, &jpeg.Options{Quality: opts.Quality}); err != nil {
		return nil, fmt.Errorf("encode preview: %w", err)
	}
	return out.Bytes(), nil
}
