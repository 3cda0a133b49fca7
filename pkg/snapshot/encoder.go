// Package snapshot implements the JPEG-encode external collaborator: turn
// a decoded RGB frame (plus, optionally, a debug overlay of detections and
// rule geometry) into the JPEG bytes a result envelope attaches.
package snapshot

import (
	"fmt"

	"github.com/bmharper/cimg/v2"
)

// Encoder is the interface stream.Worker encodes snapshots through.
type Encoder interface {
	Encode(rgb []byte, width, height, quality int) ([]byte, error)
}

// JPEGEncoder wraps cimg's compressor the way the teacher's
// Camera.LatestImage does.
type JPEGEncoder struct {
	Sampling cimg.Sampling
}

func NewJPEGEncoder() *JPEGEncoder {
	return &JPEGEncoder{Sampling: cimg.Sampling420}
}

func (e *JPEGEncoder) Encode(rgb []byte, width, height, quality int) ([]byte, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("snapshot encode: invalid dimensions %dx%d", width, height)
	}
	img := cimg.WrapImage(width, height, cimg.PixelFormatRGB, rgb)
	buf, err := cimg.Compress(img, cimg.MakeCompressParams(cimg.Sampling(e.Sampling), quality, cimg.Flags(0)))
	if err != nil {
		return nil, fmt.Errorf("snapshot encode failed: %w", err)
	}
	return buf, nil
}
