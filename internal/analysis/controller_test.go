package analysis

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/skinguard/backend/internal/classifier"
	"github.com/skinguard/backend/internal/models"
	"github.com/skinguard/backend/internal/notify"
	"github.com/skinguard/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClassifier counts calls and returns a canned outcome.
type fakeClassifier struct {
	mu      sync.Mutex
	calls   int
	verdict *classifier.Verdict
	err     error
	panics  bool
}

func (f *fakeClassifier) Classify(ctx context.Context, img *models.SelectedImage) (*classifier.Verdict, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.panics {
		panic("boom")
	}
	return f.verdict, f.err
}

func (f *fakeClassifier) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestController(t *testing.T, client Classifier) *Controller {
	t.Helper()
	c := NewController(client, Options{Notifier: notify.New(time.Minute)})
	t.Cleanup(c.Close)
	return c
}

func pngFile(t *testing.T, name string) File {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	img.Set(1, 1, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return File{Name: name, MIMEType: "image/png", Size: int64(buf.Len()), Reader: &buf}
}

func rawFile(mime string, size int64) File {
	return File{Name: "photo", MIMEType: mime, Size: size, Reader: bytes.NewReader(make([]byte, size))}
}

func lastMessage(c *Controller) string {
	active := c.Notifier().Active()
	if len(active) == 0 {
		return ""
	}
	return active[len(active)-1].Message
}

func TestAcceptFileRejectsUnsupportedTypes(t *testing.T) {
	for _, mime := range []string{"image/gif", "image/webp", "application/pdf", "text/plain", ""} {
		t.Run(mime, func(t *testing.T) {
			c := newTestController(t, &fakeClassifier{})
			err := c.AcceptFile(rawFile(mime, 1024))

			assert.ErrorIs(t, err, ErrUnsupportedType)
			assert.Equal(t, models.StateIdle, c.State())
			assert.Nil(t, c.Image())
			assert.Equal(t, MsgUnsupportedType, lastMessage(c))
		})
	}
}

func TestAcceptFileRejectsOversizedFiles(t *testing.T) {
	for _, mime := range []string{"image/jpeg", "image/jpg", "image/png"} {
		t.Run(mime, func(t *testing.T) {
			c := newTestController(t, &fakeClassifier{})
			err := c.AcceptFile(rawFile(mime, DefaultMaxBytes+1))

			assert.ErrorIs(t, err, ErrTooLarge)
			assert.Equal(t, models.StateIdle, c.State())
			assert.Equal(t, "File size too large. Please upload an image smaller than 5MB.", lastMessage(c))
		})
	}
}

func TestAcceptFileChecksTypeBeforeSize(t *testing.T) {
	c := newTestController(t, &fakeClassifier{})
	err := c.AcceptFile(rawFile("image/gif", DefaultMaxBytes+1))
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestAcceptFileRejectsUnderstatedSize(t *testing.T) {
	c := newTestController(t, &fakeClassifier{})
	f := File{Name: "liar.png", MIMEType: "image/png", Size: 10, Reader: bytes.NewReader(make([]byte, DefaultMaxBytes+10))}
	assert.ErrorIs(t, c.AcceptFile(f), ErrTooLarge)
	assert.Equal(t, models.StateIdle, c.State())
}

func TestAcceptFileKeepsStateOnRejection(t *testing.T) {
	c := newTestController(t, &fakeClassifier{verdict: &classifier.Verdict{Label: "Benign", Confidence: 95}})
	require.NoError(t, c.AcceptFile(pngFile(t, "mole.png")))
	require.NoError(t, c.Submit(context.Background()))

	assert.Error(t, c.AcceptFile(rawFile("image/gif", 10)))
	assert.Equal(t, models.StateResultShown, c.State())
	assert.NotNil(t, c.Result())
	assert.Equal(t, "mole.png", c.Image().Name)
}

func TestAcceptFileEntersPreviewReady(t *testing.T) {
	c := newTestController(t, &fakeClassifier{})
	f := rawFile("image/jpeg", 2048)
	f.Name = "lesion.jpg"
	require.NoError(t, c.AcceptFile(f))

	v := c.View()
	assert.Equal(t, models.StatePreviewReady, v.State)
	assert.True(t, v.SubmitEnabled)
	assert.True(t, v.PreviewVisible)
	assert.False(t, v.LoadingVisible)
	assert.False(t, v.ResultVisible)
	assert.Equal(t, "lesion.jpg (2.0 KB)", v.ImageInfo)
	assert.Contains(t, v.PreviewURL, "data:image/jpeg;base64,")
}

func TestAcceptFileAtLimit(t *testing.T) {
	c := newTestController(t, &fakeClassifier{})
	require.NoError(t, c.AcceptFile(rawFile("IMAGE/PNG", DefaultMaxBytes)))
	assert.Equal(t, models.StatePreviewReady, c.State())
	assert.Equal(t, "image/png", c.Image().MIMEType)
}

func TestAcceptFileClearsPriorResult(t *testing.T) {
	c := newTestController(t, &fakeClassifier{verdict: &classifier.Verdict{Label: "Malignant", Confidence: 87.3}})
	require.NoError(t, c.AcceptFile(pngFile(t, "first.png")))
	require.NoError(t, c.Submit(context.Background()))
	require.Equal(t, models.StateResultShown, c.State())

	require.NoError(t, c.AcceptFile(pngFile(t, "second.png")))
	v := c.View()
	assert.Equal(t, models.StatePreviewReady, v.State)
	assert.Nil(t, v.Result)
	assert.False(t, v.ResultVisible)
	assert.Nil(t, c.Result())
}

func TestAcceptFileBuildsThumbnail(t *testing.T) {
	c := NewController(&fakeClassifier{}, Options{ThumbnailSize: 4, Notifier: notify.New(time.Minute)})
	defer c.Close()

	require.NoError(t, c.AcceptFile(pngFile(t, "mole.png")))
	img := c.Image()
	assert.Contains(t, img.ThumbnailURL, "data:image/png;base64,")
	assert.Equal(t, 8, img.Width)
}

func TestSubmitWithoutImage(t *testing.T) {
	fake := &fakeClassifier{}
	c := newTestController(t, fake)

	err := c.Submit(context.Background())
	assert.ErrorIs(t, err, ErrNoImage)
	assert.Equal(t, 0, fake.Calls())
	assert.Equal(t, models.StateIdle, c.State())
	assert.Equal(t, MsgNoImage, lastMessage(c))
}

func TestSubmitMalignant(t *testing.T) {
	c := newTestController(t, &fakeClassifier{verdict: &classifier.Verdict{Label: "Malignant", Confidence: 87.3}})
	require.NoError(t, c.AcceptFile(pngFile(t, "mole.png")))
	require.NoError(t, c.Submit(context.Background()))

	v := c.View()
	assert.Equal(t, models.StateResultShown, v.State)
	require.NotNil(t, v.Result)
	assert.Equal(t, "Malignant", v.Result.Label)
	assert.Equal(t, models.AccentRisk, v.Result.Accent)
	assert.Equal(t, "Confidence: 87.3%", v.Result.ConfidenceText)
	assert.InDelta(t, 0.873, v.Result.Confidence, 1e-9)
	assert.True(t, v.SubmitEnabled)
	assert.False(t, v.LoadingVisible)
	assert.Equal(t, models.ScrollResults, v.ScrollTo)
}

func TestSubmitBenign(t *testing.T) {
	c := newTestController(t, &fakeClassifier{verdict: &classifier.Verdict{Label: "Benign", Confidence: 95.0}})
	require.NoError(t, c.AcceptFile(pngFile(t, "mole.png")))
	require.NoError(t, c.Submit(context.Background()))

	v := c.View()
	require.NotNil(t, v.Result)
	assert.Equal(t, "Benign", v.Result.Label)
	assert.Equal(t, models.AccentSafe, v.Result.Accent)
	assert.Equal(t, "Confidence: 95.0%", v.Result.ConfidenceText)
	assert.False(t, c.Result().HighRisk)
}

func TestSubmitCustomHighRiskLabel(t *testing.T) {
	catalog := &models.LabelCatalog{HighRisk: "Melanoma"}
	c := NewController(&fakeClassifier{verdict: &classifier.Verdict{Label: "Melanoma", Confidence: 70}},
		Options{Catalog: catalog, Notifier: notify.New(time.Minute)})
	defer c.Close()

	require.NoError(t, c.AcceptFile(pngFile(t, "mole.png")))
	require.NoError(t, c.Submit(context.Background()))
	assert.True(t, c.Result().HighRisk)
	assert.Equal(t, models.AccentRisk, c.View().Result.Accent)
}

func TestSubmitBusinessError(t *testing.T) {
	c := newTestController(t, &fakeClassifier{err: &classifier.BusinessError{Message: "no lesion detected"}})
	require.NoError(t, c.AcceptFile(pngFile(t, "mole.png")))

	err := c.Submit(context.Background())
	var bizErr *classifier.BusinessError
	assert.True(t, errors.As(err, &bizErr))

	v := c.View()
	assert.Equal(t, models.StatePreviewReady, v.State)
	assert.Nil(t, v.Result)
	assert.True(t, v.SubmitEnabled)
	assert.False(t, v.LoadingVisible)
	assert.Equal(t, "no lesion detected", lastMessage(c))
}

func TestSubmitTransportFailure(t *testing.T) {
	c := newTestController(t, &fakeClassifier{err: errors.New("connection refused")})
	require.NoError(t, c.AcceptFile(pngFile(t, "mole.png")))

	assert.Error(t, c.Submit(context.Background()))

	v := c.View()
	assert.Equal(t, models.StatePreviewReady, v.State)
	assert.True(t, v.SubmitEnabled)
	assert.False(t, v.LoadingVisible)
	assert.Nil(t, v.Result)
	assert.Equal(t, MsgAnalysisFailed, lastMessage(c))
}

func TestSubmitNilVerdictIsFailure(t *testing.T) {
	c := newTestController(t, &fakeClassifier{})
	require.NoError(t, c.AcceptFile(pngFile(t, "mole.png")))

	assert.Error(t, c.Submit(context.Background()))
	assert.Equal(t, models.StatePreviewReady, c.State())
	assert.Equal(t, MsgAnalysisFailed, lastMessage(c))
}

func TestSubmitRecoversFromPanic(t *testing.T) {
	c := newTestController(t, &fakeClassifier{panics: true})
	require.NoError(t, c.AcceptFile(pngFile(t, "mole.png")))

	assert.Error(t, c.Submit(context.Background()))
	assert.True(t, c.View().SubmitEnabled)
	assert.Equal(t, MsgAnalysisFailed, lastMessage(c))
}

func TestSubmitIgnoresCallerCancellation(t *testing.T) {
	c := newTestController(t, &fakeClassifier{verdict: &classifier.Verdict{Label: "Benign", Confidence: 90}})
	require.NoError(t, c.AcceptFile(pngFile(t, "mole.png")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, c.Submit(ctx))
	assert.Equal(t, models.StateResultShown, c.State())
}

func TestSubmitAgainstStubClassifier(t *testing.T) {
	stub := testutil.NewPredictionStub("Malignant", 87.3)
	defer stub.Close()

	c := newTestController(t, classifier.NewClient(classifier.Options{Endpoint: stub.URL()}))
	require.NoError(t, c.AcceptFile(pngFile(t, "mole.png")))
	require.NoError(t, c.Submit(context.Background()))

	assert.Equal(t, "Confidence: 87.3%", c.View().Result.ConfidenceText)
	uploads := stub.Uploads()
	require.Len(t, uploads, 1)
	assert.Equal(t, "file", uploads[0].FieldName)
	assert.Equal(t, c.Image().Data, uploads[0].Data)
}

func TestSubmitNetworkFailureAgainstStub(t *testing.T) {
	stub := testutil.NewPredictionStub("Benign", 95)
	url := stub.URL()
	stub.Close()

	c := newTestController(t, classifier.NewClient(classifier.Options{Endpoint: url}))
	require.NoError(t, c.AcceptFile(pngFile(t, "mole.png")))

	assert.Error(t, c.Submit(context.Background()))
	assert.True(t, c.View().SubmitEnabled)
	assert.Equal(t, MsgAnalysisFailed, lastMessage(c))
}

func TestNoOverlappingSubmissions(t *testing.T) {
	stub := testutil.NewPredictionStub("Benign", 95)
	defer stub.Close()
	stub.Hold()

	c := newTestController(t, classifier.NewClient(classifier.Options{Endpoint: stub.URL()}))
	require.NoError(t, c.AcceptFile(pngFile(t, "mole.png")))

	done, err := c.StartSubmit(context.Background())
	require.NoError(t, err)
	<-stub.Received()

	v := c.View()
	assert.Equal(t, models.StateAnalyzing, v.State)
	assert.False(t, v.SubmitEnabled)
	assert.True(t, v.LoadingVisible)
	assert.False(t, v.ResultVisible)

	assert.ErrorIs(t, c.Submit(context.Background()), ErrAnalysisInProgress)

	stub.Release()
	require.NoError(t, <-done)
	assert.Len(t, stub.Uploads(), 1)
	assert.Equal(t, models.StateResultShown, c.State())
}

func TestResubmitHidesPreviousResult(t *testing.T) {
	stub := testutil.NewPredictionStub("Benign", 95)
	defer stub.Close()

	c := newTestController(t, classifier.NewClient(classifier.Options{Endpoint: stub.URL()}))
	require.NoError(t, c.AcceptFile(pngFile(t, "mole.png")))
	require.NoError(t, c.Submit(context.Background()))

	stub.Hold()
	done, err := c.StartSubmit(context.Background())
	require.NoError(t, err)
	<-stub.Received()
	<-stub.Received()

	v := c.View()
	assert.True(t, v.LoadingVisible)
	assert.False(t, v.ResultVisible)

	stub.Release()
	require.NoError(t, <-done)
}

func TestResetDuringFlightDiscardsVerdict(t *testing.T) {
	stub := testutil.NewPredictionStub("Malignant", 99)
	defer stub.Close()
	stub.Hold()

	c := newTestController(t, classifier.NewClient(classifier.Options{Endpoint: stub.URL()}))
	require.NoError(t, c.AcceptFile(pngFile(t, "mole.png")))

	done, err := c.StartSubmit(context.Background())
	require.NoError(t, err)
	<-stub.Received()

	c.Reset()
	stub.Release()

	assert.ErrorIs(t, <-done, ErrSuperseded)
	assert.Equal(t, models.StateIdle, c.State())
	assert.Nil(t, c.Result())
}

func TestNewSelectionDuringFlightDiscardsVerdict(t *testing.T) {
	stub := testutil.NewPredictionStub("Malignant", 99)
	defer stub.Close()
	stub.Hold()

	c := newTestController(t, classifier.NewClient(classifier.Options{Endpoint: stub.URL()}))
	require.NoError(t, c.AcceptFile(pngFile(t, "first.png")))

	done, err := c.StartSubmit(context.Background())
	require.NoError(t, err)
	<-stub.Received()

	require.NoError(t, c.AcceptFile(pngFile(t, "second.png")))
	stub.Release()

	assert.ErrorIs(t, <-done, ErrSuperseded)
	assert.Equal(t, models.StatePreviewReady, c.State())
	assert.Equal(t, "second.png", c.Image().Name)
	assert.Nil(t, c.View().Result)
}

func TestResetFromEveryState(t *testing.T) {
	setups := map[string]func(c *Controller){
		"idle": func(c *Controller) {},
		"preview ready": func(c *Controller) {
			require.NoError(t, c.AcceptFile(pngFile(t, "a.png")))
		},
		"result shown": func(c *Controller) {
			require.NoError(t, c.AcceptFile(pngFile(t, "a.png")))
			require.NoError(t, c.Submit(context.Background()))
		},
	}

	for name, setup := range setups {
		t.Run(name, func(t *testing.T) {
			c := newTestController(t, &fakeClassifier{verdict: &classifier.Verdict{Label: "Benign", Confidence: 95}})
			setup(c)
			c.Reset()

			v := c.View()
			assert.Equal(t, models.StateIdle, v.State)
			assert.False(t, v.SubmitEnabled)
			assert.False(t, v.PreviewVisible)
			assert.False(t, v.ResultVisible)
			assert.False(t, v.LoadingVisible)
			assert.Nil(t, v.Result)
			assert.Empty(t, v.ImageInfo)
			assert.Nil(t, c.Image())
			assert.Equal(t, models.ScrollUpload, v.ScrollTo)
		})
	}
}

func TestShowErrorDoesNotChangeState(t *testing.T) {
	c := newTestController(t, &fakeClassifier{})
	require.NoError(t, c.AcceptFile(pngFile(t, "a.png")))

	c.ShowError("one")
	c.ShowError("two")

	v := c.View()
	assert.Equal(t, models.StatePreviewReady, v.State)
	require.Len(t, v.Notifications, 2)
	assert.Equal(t, "one", v.Notifications[0].Message)
	assert.Equal(t, "two", v.Notifications[1].Message)
}

func TestOnChangeFires(t *testing.T) {
	c := newTestController(t, &fakeClassifier{verdict: &classifier.Verdict{Label: "Benign", Confidence: 95}})

	var mu sync.Mutex
	var states []models.UIState
	c.OnChange(func() {
		mu.Lock()
		states = append(states, c.State())
		mu.Unlock()
	})

	require.NoError(t, c.AcceptFile(pngFile(t, "a.png")))
	require.NoError(t, c.Submit(context.Background()))
	c.Reset()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []models.UIState{
		models.StatePreviewReady,
		models.StateAnalyzing,
		models.StateResultShown,
		models.StateIdle,
	}, states)
}
