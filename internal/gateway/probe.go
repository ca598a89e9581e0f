package gateway

import (
	"bytes"
	"fmt"
	"image"
	"mime"
	"path"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

const (
	maxImageDimension = 1920
	imageQualityHint  = "auto:good"
)

// probeImageTransforms inspects image bounds and derives normalization
// hints for the remote store: a downscale limit when either dimension
// exceeds the cap, plus a quality hint. A buffer that fails to decode is
// not an error; it simply gets no hints.
func probeImageTransforms(buf []byte) []string {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(buf))
	if err != nil {
		return nil
	}

	hints := []string{fmt.Sprintf("dimensions=%dx%d", cfg.Width, cfg.Height)}
	if cfg.Width > maxImageDimension || cfg.Height > maxImageDimension {
		hints = append(hints, fmt.Sprintf("limit=%d", maxImageDimension))
	}
	hints = append(hints, "quality="+imageQualityHint)
	return hints
}

func mediaContentType(filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
