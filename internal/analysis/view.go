package analysis

import "github.com/skinguard/backend/internal/models"

// View derives the render model from the current state.
func (c *Controller) View() models.View {
	c.mu.Lock()
	v := models.View{
		State:          c.state,
		SubmitEnabled:  c.state.CanSubmit(),
		LoadingVisible: c.state == models.StateAnalyzing,
		PreviewVisible: c.image != nil,
		ScrollTo:       c.scrollTo,
	}
	if c.image != nil {
		v.ImageInfo = c.image.Info()
		v.PreviewURL = c.image.DataURL
		v.ThumbnailURL = c.image.ThumbnailURL
	}
	if c.state == models.StateResultShown && c.result != nil {
		v.ResultVisible = true
		v.Result = &models.ResultView{
			Label:          c.result.Label,
			Description:    c.catalog.Describe(c.result.Label),
			Accent:         c.result.Accent(),
			Confidence:     c.result.Confidence,
			ConfidenceText: c.result.ConfidenceText(),
		}
	}
	c.mu.Unlock()

	v.Notifications = c.notifier.Active()
	return v
}
