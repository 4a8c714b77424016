package models

// View is the render model for one controller. Every field is derived
// from the controller state, so the loading indicator and a result can
// never be visible together.
type View struct {
	State          UIState        `json:"state" msgpack:"state"`
	SubmitEnabled  bool           `json:"submitEnabled" msgpack:"submitEnabled"`
	LoadingVisible bool           `json:"loadingVisible" msgpack:"loadingVisible"`
	PreviewVisible bool           `json:"previewVisible" msgpack:"previewVisible"`
	ResultVisible  bool           `json:"resultVisible" msgpack:"resultVisible"`
	ImageInfo      string         `json:"imageInfo,omitempty" msgpack:"imageInfo,omitempty"`
	PreviewURL     string         `json:"previewUrl,omitempty" msgpack:"previewUrl,omitempty"`
	ThumbnailURL   string         `json:"thumbnailUrl,omitempty" msgpack:"thumbnailUrl,omitempty"`
	Result         *ResultView    `json:"result,omitempty" msgpack:"result,omitempty"`
	Notifications  []Notification `json:"notifications" msgpack:"notifications"`
	ScrollTo       ScrollTarget   `json:"scrollTo,omitempty" msgpack:"scrollTo,omitempty"`
}

// ResultView is the rendered verdict panel.
type ResultView struct {
	Label          string  `json:"label" msgpack:"label"`
	Description    string  `json:"description,omitempty" msgpack:"description,omitempty"`
	Accent         Accent  `json:"accent" msgpack:"accent"`
	Confidence     float64 `json:"confidence" msgpack:"confidence"`
	ConfidenceText string  `json:"confidenceText" msgpack:"confidenceText"`
}
