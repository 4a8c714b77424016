package models

import "fmt"

// SelectedImage is the image owned by one analysis cycle.
type SelectedImage struct {
	Name         string `json:"name" msgpack:"name"`
	MIMEType     string `json:"mimeType" msgpack:"mimeType"`
	Size         int64  `json:"size" msgpack:"size"`
	Data         []byte `json:"-" msgpack:"-"`
	DataURL      string `json:"dataUrl" msgpack:"dataUrl"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty" msgpack:"thumbnailUrl,omitempty"`
	Width        int    `json:"width,omitempty" msgpack:"width,omitempty"`
	Height       int    `json:"height,omitempty" msgpack:"height,omitempty"`
}

// Info returns the "name (12.3 KB)" line shown under the preview.
func (img *SelectedImage) Info() string {
	return fmt.Sprintf("%s (%.1f KB)", img.Name, float64(img.Size)/1024)
}
