// Package analysis implements the upload/analysis controller: it validates
// and previews a selected image, submits it to the classifier and derives
// the view from an explicit state machine.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mdobak/go-xerrors"
	"github.com/skinguard/backend/internal/classifier"
	"github.com/skinguard/backend/internal/labels"
	"github.com/skinguard/backend/internal/models"
	"github.com/skinguard/backend/internal/notify"
	"github.com/skinguard/backend/internal/preview"
)

// DefaultMaxBytes is the largest accepted image, 5 MiB.
const DefaultMaxBytes int64 = 5 * 1024 * 1024

// DefaultAllowedTypes are the accepted declared MIME types.
var DefaultAllowedTypes = []string{"image/jpeg", "image/jpg", "image/png"}

// Classifier is the remote prediction service.
type Classifier interface {
	Classify(ctx context.Context, img *models.SelectedImage) (*classifier.Verdict, error)
}

// File is a locally selected file: a declared MIME type and size plus a
// reader for its bytes.
type File struct {
	Name     string
	MIMEType string
	Size     int64
	Reader   io.Reader
}

// Options configures a Controller.
type Options struct {
	AllowedTypes []string
	MaxBytes     int64
	Catalog      *models.LabelCatalog
	// ThumbnailSize is the longest thumbnail side; zero disables thumbnails.
	ThumbnailSize uint
	// RequestTimeout bounds one classifier call. Zero means no timeout.
	RequestTimeout time.Duration
	Notifier       *notify.Notifier
	Logger         *slog.Logger
}

// Controller owns one analysis cycle at a time. It is safe for concurrent
// use; the lock is never held across the classifier call.
type Controller struct {
	mu         sync.Mutex
	state      models.UIState
	image      *models.SelectedImage
	result     *models.PredictionResult
	generation uint64
	scrollTo   models.ScrollTarget
	onChange   func()

	client   Classifier
	allowed  map[string]struct{}
	maxBytes int64
	catalog  *models.LabelCatalog
	thumb    uint
	timeout  time.Duration
	notifier *notify.Notifier
	logger   *slog.Logger
}

// NewController creates a controller in the Idle state.
func NewController(client Classifier, opts Options) *Controller {
	if len(opts.AllowedTypes) == 0 {
		opts.AllowedTypes = DefaultAllowedTypes
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	if opts.Catalog == nil {
		opts.Catalog = labels.Default()
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.New(notify.DefaultDuration)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	allowed := make(map[string]struct{}, len(opts.AllowedTypes))
	for _, t := range opts.AllowedTypes {
		allowed[strings.ToLower(strings.TrimSpace(t))] = struct{}{}
	}

	c := &Controller{
		state:    models.StateIdle,
		client:   client,
		allowed:  allowed,
		maxBytes: opts.MaxBytes,
		catalog:  opts.Catalog,
		thumb:    opts.ThumbnailSize,
		timeout:  opts.RequestTimeout,
		notifier: opts.Notifier,
		logger:   opts.Logger.With("component", "analysis"),
	}
	c.notifier.OnChange(c.changed)
	return c
}

// OnChange registers a callback run after every state or notification
// change. It is called without the controller lock held.
func (c *Controller) OnChange(fn func()) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

func (c *Controller) changed() {
	c.mu.Lock()
	fn := c.onChange
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// AcceptFile validates and previews a selected file. Type is checked
// before size. A rejected file leaves the state untouched and surfaces a
// notification; an accepted file clears any previous result.
func (c *Controller) AcceptFile(f File) error {
	mimeType := strings.ToLower(strings.TrimSpace(f.MIMEType))
	if _, ok := c.allowed[mimeType]; !ok {
		c.ShowError(MsgUnsupportedType)
		return fmt.Errorf("%w: %q", ErrUnsupportedType, f.MIMEType)
	}
	if f.Size > c.maxBytes {
		c.ShowError(tooLargeMessage(c.maxBytes))
		return fmt.Errorf("%w: %d bytes", ErrTooLarge, f.Size)
	}

	data, err := io.ReadAll(io.LimitReader(f.Reader, c.maxBytes+1))
	if err != nil {
		c.ShowError(MsgAnalysisFailed)
		return fmt.Errorf("reading %s: %w", f.Name, err)
	}
	// The declared size may understate the real content.
	if int64(len(data)) > c.maxBytes {
		c.ShowError(tooLargeMessage(c.maxBytes))
		return fmt.Errorf("%w: more than %d bytes read", ErrTooLarge, c.maxBytes)
	}

	img := &models.SelectedImage{
		Name:     f.Name,
		MIMEType: mimeType,
		Size:     f.Size,
		Data:     data,
		DataURL:  preview.DataURL(mimeType, data),
	}
	if img.Size <= 0 {
		img.Size = int64(len(data))
	}
	if c.thumb > 0 {
		if thumb, err := preview.MakeThumbnail(data, c.thumb); err != nil {
			c.logger.Debug("thumbnail skipped", "file", f.Name, "err", err)
		} else {
			img.ThumbnailURL = thumb.DataURL
			img.Width, img.Height = thumb.Width, thumb.Height
		}
	}

	c.mu.Lock()
	c.image = img
	c.result = nil
	c.state = models.StatePreviewReady
	c.scrollTo = models.ScrollNone
	c.generation++
	c.mu.Unlock()

	c.logger.Info("image accepted", "file", img.Name, "size", img.Size, "type", img.MIMEType)
	c.changed()
	return nil
}

// Submit sends the current image to the classifier and blocks until the
// verdict is rendered or the attempt has failed. The request is detached
// from ctx cancellation; once issued it runs to completion.
func (c *Controller) Submit(ctx context.Context) error {
	ticket, img, err := c.begin()
	if err != nil {
		return err
	}
	return c.run(ctx, ticket, img)
}

// StartSubmit enters Analyzing synchronously and runs the request in the
// background. The returned channel yields the outcome of Submit.
func (c *Controller) StartSubmit(ctx context.Context) (<-chan error, error) {
	ticket, img, err := c.begin()
	if err != nil {
		return nil, err
	}

	done := make(chan error, 1)
	go func() {
		done <- c.run(ctx, ticket, img)
	}()
	return done, nil
}

func (c *Controller) begin() (uint64, *models.SelectedImage, error) {
	c.mu.Lock()
	if c.image == nil {
		c.mu.Unlock()
		c.ShowError(MsgNoImage)
		return 0, nil, ErrNoImage
	}
	if c.state == models.StateAnalyzing {
		c.mu.Unlock()
		return 0, nil, ErrAnalysisInProgress
	}

	c.state = models.StateAnalyzing
	c.result = nil
	c.scrollTo = models.ScrollNone
	c.generation++
	ticket, img := c.generation, c.image
	c.mu.Unlock()

	c.logger.Info("analysis started", "file", img.Name)
	c.changed()
	return ticket, img, nil
}

// run performs the classifier call. Whatever happens, including a panic in
// the client, the controller leaves Analyzing.
func (c *Controller) run(ctx context.Context, ticket uint64, img *models.SelectedImage) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = c.complete(ticket, nil, xerrors.New(fmt.Errorf("classifier panicked: %v", r)))
		}
	}()

	reqCtx := context.WithoutCancel(ctx)
	if c.timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(reqCtx, c.timeout)
		defer cancel()
	}

	verdict, callErr := c.client.Classify(reqCtx, img)
	return c.complete(ticket, verdict, callErr)
}

func (c *Controller) complete(ticket uint64, verdict *classifier.Verdict, callErr error) error {
	c.mu.Lock()
	if ticket != c.generation {
		c.mu.Unlock()
		c.logger.Info("discarding verdict for superseded image", "err", callErr)
		return ErrSuperseded
	}

	var bizErr *classifier.BusinessError
	switch {
	case errors.As(callErr, &bizErr):
		c.state = models.StatePreviewReady
		c.mu.Unlock()
		c.logger.Info("classifier rejected image", "reason", bizErr.Message)
		c.ShowError(bizErr.Message)
		c.changed()
		return callErr

	case callErr != nil || verdict == nil:
		if callErr == nil {
			callErr = xerrors.New(classifier.ErrMalformedResponse)
		}
		c.state = models.StatePreviewReady
		c.mu.Unlock()
		c.logger.Error("analysis failed", "err", xerrors.Sprint(callErr))
		c.ShowError(MsgAnalysisFailed)
		c.changed()
		return callErr
	}

	c.result = models.NewPredictionResult(verdict.Label, verdict.Confidence, c.catalog.HighRisk)
	c.state = models.StateResultShown
	c.scrollTo = models.ScrollResults
	result := *c.result
	c.mu.Unlock()

	c.logger.Info("analysis complete", "label", result.Label, "confidence", result.RawConfidence, "high_risk", result.HighRisk)
	c.changed()
	return nil
}

// Reset drops the image and any result and returns to Idle from any
// state. A request still in flight is left to finish; its verdict is
// discarded.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.image = nil
	c.result = nil
	c.state = models.StateIdle
	c.scrollTo = models.ScrollUpload
	c.generation++
	c.mu.Unlock()

	c.changed()
}

// ShowError surfaces a transient notification without touching the state.
func (c *Controller) ShowError(message string) {
	c.notifier.Error(message)
}

// State returns the current state.
func (c *Controller) State() models.UIState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Image returns the selected image, or nil.
func (c *Controller) Image() *models.SelectedImage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.image
}

// Result returns a copy of the displayed verdict, or nil.
func (c *Controller) Result() *models.PredictionResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.result == nil || c.state != models.StateResultShown {
		return nil
	}
	r := *c.result
	return &r
}

// Catalog returns the label catalog in use.
func (c *Controller) Catalog() *models.LabelCatalog {
	return c.catalog
}

// Notifier returns the controller's notification stack.
func (c *Controller) Notifier() *notify.Notifier {
	return c.notifier
}

// Close stops pending notification timers.
func (c *Controller) Close() {
	c.notifier.Close()
}
