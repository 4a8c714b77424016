// stub_classifier.go - Fake classifier endpoint for tests
package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
)

// RecordedUpload is one request seen by the stub classifier.
type RecordedUpload struct {
	FieldName   string
	FileName    string
	ContentType string
	Data        []byte
}

// StubClassifier is an httptest server implementing the /predict
// contract with a canned response.
type StubClassifier struct {
	Server *httptest.Server

	mu       sync.Mutex
	status   int
	body     string
	uploads  []RecordedUpload
	release  chan struct{}
	received chan struct{}
}

// NewStubClassifier starts a stub that answers every request with the
// given status and raw body.
func NewStubClassifier(status int, body string) *StubClassifier {
	s := &StubClassifier{
		status:   status,
		body:     body,
		received: make(chan struct{}, 16),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	return s
}

// NewPredictionStub answers with {"prediction": label, "confidence": confidence}.
func NewPredictionStub(label string, confidence float64) *StubClassifier {
	body, _ := json.Marshal(map[string]interface{}{
		"prediction": label,
		"confidence": confidence,
	})
	return NewStubClassifier(http.StatusOK, string(body))
}

// NewErrorStub answers like the reference backend does for a rejected image.
func NewErrorStub(message string) *StubClassifier {
	body, _ := json.Marshal(map[string]string{"error": message})
	return NewStubClassifier(http.StatusBadRequest, string(body))
}

// URL returns the predict endpoint of the stub.
func (s *StubClassifier) URL() string {
	return s.Server.URL + "/predict"
}

// Close shuts the stub down, releasing any held request first.
func (s *StubClassifier) Close() {
	s.Release()
	s.Server.Close()
}

// Hold makes subsequent requests block until Release is called.
func (s *StubClassifier) Hold() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.release == nil {
		s.release = make(chan struct{})
	}
}

// Release unblocks held requests.
func (s *StubClassifier) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.release != nil {
		close(s.release)
		s.release = nil
	}
}

// Received is signalled once per request, before the response is held.
func (s *StubClassifier) Received() <-chan struct{} {
	return s.received
}

// Uploads returns the requests recorded so far.
func (s *StubClassifier) Uploads() []RecordedUpload {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RecordedUpload, len(s.uploads))
	copy(out, s.uploads)
	return out
}

func (s *StubClassifier) serve(w http.ResponseWriter, r *http.Request) {
	var rec RecordedUpload
	if reader, err := r.MultipartReader(); err == nil {
		for {
			part, err := reader.NextPart()
			if err != nil {
				break
			}
			data, _ := io.ReadAll(part)
			if part.FileName() != "" {
				rec = RecordedUpload{
					FieldName:   part.FormName(),
					FileName:    part.FileName(),
					ContentType: part.Header.Get("Content-Type"),
					Data:        data,
				}
			}
			part.Close()
		}
	}

	s.mu.Lock()
	s.uploads = append(s.uploads, rec)
	release := s.release
	status, body := s.status, s.body
	s.mu.Unlock()

	select {
	case s.received <- struct{}{}:
	default:
	}

	if release != nil {
		<-release
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	io.WriteString(w, body)
}
