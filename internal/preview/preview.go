// Package preview turns an uploaded image into displayable data URLs.
package preview

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"github.com/nfnt/resize"
)

// DefaultThumbnailSize is the longest side of a generated thumbnail. It
// matches the input size of the reference model.
const DefaultThumbnailSize = 150

// DataURL encodes data as a base64 data URL with the declared MIME type.
func DataURL(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// Thumbnail is a downscaled rendition of an image.
type Thumbnail struct {
	DataURL string
	Width   int // of the source image
	Height  int // of the source image
}

// MakeThumbnail decodes a JPEG or PNG image and scales it so that neither
// side exceeds maxSize, keeping the aspect ratio. Images already within
// bounds are re-encoded unscaled.
func MakeThumbnail(data []byte, maxSize uint) (*Thumbnail, error) {
	if maxSize == 0 {
		maxSize = DefaultThumbnailSize
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	bounds := img.Bounds()
	scaled := resize.Thumbnail(maxSize, maxSize, img, resize.Lanczos3)

	var buf bytes.Buffer
	mimeType := "image/jpeg"
	switch format {
	case "png":
		mimeType = "image/png"
		err = png.Encode(&buf, scaled)
	default:
		err = jpeg.Encode(&buf, scaled, &jpeg.Options{Quality: 85})
	}
	if err != nil {
		return nil, fmt.Errorf("encoding thumbnail: %w", err)
	}

	return &Thumbnail{
		DataURL: DataURL(mimeType, buf.Bytes()),
		Width:   bounds.Dx(),
		Height:  bounds.Dy(),
	}, nil
}
