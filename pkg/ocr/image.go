package ocr

import (
	"bytes"
	"image"
	_ "image/jpeg"
	"image/png"

	"github.com/nfnt/resize"
)

// prepare downscales images wider than maxWidth before recognition.
// Returns the image to feed the engine and the factor to multiply detected
// coordinates by to get back to the original pixel space.
func prepare(data []byte, maxWidth int) ([]byte, float64, error) {
	if maxWidth <= 0 {
		return data, 1.0, nil
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, 0, err
	}
	if cfg.Width <= maxWidth {
		return data, 1.0, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, 0, err
	}

	scaled := resize.Resize(uint(maxWidth), 0, img, resize.Bilinear)

	var buf bytes.Buffer
	if err := png.Encode(&buf, scaled); err != nil {
		return nil, 0, err
	}

	return buf.Bytes(), float64(cfg.Width) / float64(maxWidth), nil
}
