// Package imaging implements the pure image transformer: source bytes plus
// a variant configuration in, encoded bytes plus a mime type out. CPU-bound
// and free of I/O so callers can run it on a blocking-safe executor.
package imaging

import (
	"bytes"
	"fmt"
	"image"

	"github.com/Kagami/go-avif"
	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"

	// Register decoders beyond the stdlib set.
	_ "golang.org/x/image/webp"

	"github.com/CodeArtisanRiz/media-blob-kit/pkg/models"
)

// Stage identifies where a transform failed.
type Stage string

const (
	StageDecode Stage = "decode"
	StageResize Stage = "resize"
	StageEncode Stage = "encode"
)

// Error wraps a transform failure with its stage classifier. The classifier
// is embedded verbatim in failed job payloads.
type Error struct {
	Stage Stage
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Transform decodes the source bytes, applies the variant's resize rule and
// re-encodes in the variant's format. On any failure it returns a stage
// tagged *Error and no partial output.
func Transform(data []byte, cfg models.VariantConfig) ([]byte, string, error) {
	src, srcFormat, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", &Error{Stage: StageDecode, Err: err}
	}

	resized, err := resize(src, cfg)
	if err != nil {
		return nil, "", &Error{Stage: StageResize, Err: err}
	}

	encoded, mime, err := encode(resized, cfg, srcFormat)
	if err != nil {
		return nil, "", &Error{Stage: StageEncode, Err: err}
	}
	return encoded, mime, nil
}

// resize applies the first matching rule of the resize policy.
//
//	width+height, fit cover/center-crop  -> scale to fill then center-crop
//	width+height, fit fill/stretch/exact -> scale to target, aspect ignored
//	width+height, other fit              -> fit within target, aspect kept
//	width only                           -> scale to width, height auto
//	height only                          -> scale to height, width auto
//	max_width+max_height                 -> fit within the max box
//	none                                 -> no resize
func resize(src image.Image, cfg models.VariantConfig) (image.Image, error) {
	if cfg.Width < 0 || cfg.Height < 0 || cfg.MaxWidth < 0 || cfg.MaxHeight < 0 {
		return nil, fmt.Errorf("negative dimensions: %dx%d max %dx%d", cfg.Width, cfg.Height, cfg.MaxWidth, cfg.MaxHeight)
	}

	switch {
	case cfg.Width > 0 && cfg.Height > 0:
		switch cfg.Fit {
		case "cover", "center-crop":
			return imaging.Fill(src, cfg.Width, cfg.Height, imaging.Center, imaging.Lanczos), nil
		case "fill", "stretch", "exact":
			return imaging.Resize(src, cfg.Width, cfg.Height, imaging.Lanczos), nil
		default:
			return imaging.Fit(src, cfg.Width, cfg.Height, imaging.Lanczos), nil
		}
	case cfg.Width > 0:
		return imaging.Resize(src, cfg.Width, 0, imaging.Lanczos), nil
	case cfg.Height > 0:
		return imaging.Resize(src, 0, cfg.Height, imaging.Lanczos), nil
	case cfg.MaxWidth > 0 && cfg.MaxHeight > 0:
		return imaging.Fit(src, cfg.MaxWidth, cfg.MaxHeight, imaging.Lanczos), nil
	default:
		return src, nil
	}
}

// encode re-encodes the image per the format policy. "original" or an
// empty format keeps the source family; unknown values fall back to JPEG.
func encode(img image.Image, cfg models.VariantConfig, srcFormat string) ([]byte, string, error) {
	format := cfg.Format
	if format == "" || format == "original" {
		format = familyForSource(srcFormat)
	}

	var buf bytes.Buffer
	switch format {
	case "avif":
		// nil options take the encoder defaults.
		var opts *avif.Options
		if cfg.Quality > 0 {
			// avif quality is a quantizer: 0 is best, 63 is worst.
			opts = &avif.Options{Quality: (100 - cfg.Quality) * avif.MaxQuality / 100}
		}
		if err := avif.Encode(&buf, img, opts); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "image/avif", nil

	case "webp":
		opts := &webp.Options{Quality: 90}
		if cfg.Quality > 0 {
			opts.Quality = float32(cfg.Quality)
		}
		if err := webp.Encode(&buf, img, opts); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "image/webp", nil

	case "png":
		// PNG is lossless; quality is ignored.
		if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "image/png", nil

	default: // jpg, jpeg and every unknown value
		quality := 95
		if cfg.Quality > 0 {
			quality = cfg.Quality
		}
		if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "image/jpeg", nil
	}
}

// familyForSource maps a decoded format name to an encoder family.
// Families without an encoder here (gif, bmp, tiff) re-encode as JPEG.
func familyForSource(srcFormat string) string {
	switch srcFormat {
	case "png":
		return "png"
	case "webp":
		return "webp"
	default:
		return "jpeg"
	}
}
