package models

// UIState is the state of the upload/analysis controller.
type UIState string

const (
	StateIdle         UIState = "idle"
	StatePreviewReady UIState = "preview_ready"
	StateAnalyzing    UIState = "analyzing"
	StateResultShown  UIState = "result_shown"
)

// CanSubmit reports whether the submit action is enabled in this state.
func (s UIState) CanSubmit() bool {
	return s == StatePreviewReady || s == StateResultShown
}

// Accent is the risk styling applied to a rendered verdict.
type Accent string

const (
	AccentNone Accent = ""
	AccentRisk Accent = "risk"
	AccentSafe Accent = "safe"
)

// ScrollTarget names the page region the view should bring into sight.
type ScrollTarget string

const (
	ScrollNone    ScrollTarget = ""
	ScrollUpload  ScrollTarget = "upload"
	ScrollResults ScrollTarget = "results"
)
