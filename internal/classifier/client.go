// Package classifier talks to the remote lesion classifier over HTTP.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/mdobak/go-xerrors"
	"github.com/skinguard/backend/internal/models"
)

const (
	DefaultEndpoint  = "http://127.0.0.1:5000/predict"
	DefaultFieldName = "file"

	maxResponseLen = 1 << 20 // 1 MiB
)

// BusinessError is returned when the classifier answers with an explicit
// error message, e.g. when it cannot classify the image.
type BusinessError struct {
	Message string
}

func (e *BusinessError) Error() string {
	return e.Message
}

// ErrMalformedResponse is returned for a response that carries neither an
// error nor a usable prediction.
var ErrMalformedResponse = errors.New("malformed classifier response")

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// Verdict is the decoded prediction as transmitted.
type Verdict struct {
	Label      string
	Confidence float64 // 0-100
}

// predictResponse mirrors both response shapes of the /predict endpoint.
type predictResponse struct {
	Error      *string  `json:"error"`
	Prediction *string  `json:"prediction"`
	Confidence *float64 `json:"confidence"`
}

// Options configures a Client.
type Options struct {
	Endpoint  string
	FieldName string
	// Timeout bounds a single request. Zero means no timeout.
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client posts images to the classifier endpoint.
type Client struct {
	endpoint  string
	fieldName string
	client    *http.Client
}

// NewClient creates a classifier client, filling unset options with the
// defaults of the reference deployment.
func NewClient(opts Options) *Client {
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if opts.FieldName == "" {
		opts.FieldName = DefaultFieldName
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	return &Client{
		endpoint:  opts.Endpoint,
		fieldName: opts.FieldName,
		client:    httpClient,
	}
}

// Endpoint returns the configured classifier URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Classify uploads the image and decodes the verdict. A *BusinessError is
// returned when the classifier reports an error; every other failure is a
// transport or parse error carrying a stack trace.
func (c *Client) Classify(ctx context.Context, img *models.SelectedImage) (*Verdict, error) {
	body, contentType, err := c.buildBody(img)
	if err != nil {
		return nil, xerrors.New(fmt.Errorf("building request body: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return nil, xerrors.New(fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, xerrors.New(fmt.Errorf("classifier request failed: %w", err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseLen))
	if err != nil {
		return nil, xerrors.New(fmt.Errorf("reading classifier response: %w", err))
	}

	return decodeResponse(resp.StatusCode, data)
}

// buildBody writes the image bytes as a single multipart file part,
// keeping the declared content type.
func (c *Client) buildBody(img *models.SelectedImage) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(c.fieldName), quoteEscaper.Replace(img.Name)))
	header.Set("Content-Type", img.MIMEType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("creating form file: %w", err)
	}
	if _, err := part.Write(img.Data); err != nil {
		return nil, "", fmt.Errorf("writing file data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("closing multipart writer: %w", err)
	}

	return body, writer.FormDataContentType(), nil
}

// decodeResponse reads the body whatever the status: the classifier
// reports business errors as 400 with an error field.
func decodeResponse(status int, data []byte) (*Verdict, error) {
	var pr predictResponse
	if err := json.Unmarshal(data, &pr); err != nil {
		return nil, xerrors.New(fmt.Errorf("decoding classifier response (status %d): %w", status, err))
	}

	if pr.Error != nil {
		return nil, &BusinessError{Message: *pr.Error}
	}

	if status < 200 || status > 299 {
		return nil, xerrors.New(fmt.Errorf("classifier returned status %d: %w", status, ErrMalformedResponse))
	}

	if pr.Prediction == nil || *pr.Prediction == "" || pr.Confidence == nil {
		return nil, xerrors.New(ErrMalformedResponse)
	}
	if *pr.Confidence < 0 || *pr.Confidence > 100 {
		return nil, xerrors.New(fmt.Errorf("confidence %v out of range: %w", *pr.Confidence, ErrMalformedResponse))
	}

	return &Verdict{Label: *pr.Prediction, Confidence: *pr.Confidence}, nil
}
