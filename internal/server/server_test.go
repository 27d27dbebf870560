package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"google-admin-bridge/internal/notify"
	"google-admin-bridge/internal/pipeline"
	"google-admin-bridge/internal/signature"
)

const testSecret = "8f742231b10e8888abcd99yyyzzz85a5"

type fakeRunner struct {
	admit    bool
	admitted []pipeline.Invocation
	started  []*pipeline.Task
}

func (f *fakeRunner) Admit(_ context.Context, inv pipeline.Invocation) (*pipeline.Task, bool) {
	f.admitted = append(f.admitted, inv)
	if !f.admit {
		return nil, false
	}
	return &pipeline.Task{Invocation: inv}, true
}

func (f *fakeRunner) Start(_ context.Context, task *pipeline.Task) {
	f.started = append(f.started, task)
}

type fakePoster struct {
	texts []string
}

func (f *fakePoster) PostMessage(_ context.Context, _, text string) error {
	f.texts = append(f.texts, text)
	return nil
}

func newTestServer(runner Runner) (*Server, *logtest.Hook, *fakePoster) {
	logger, hook := logtest.NewNullLogger()
	poster := &fakePoster{}
	s := New(testSecret, runner, notify.New(logger, poster, "C123"))
	s.newID = func() string { return "req-1" }
	return s, hook, poster
}

func commandBody(user, text string) string {
	return url.Values{
		"user_name":    {user},
		"text":         {text},
		"response_url": {"https://hooks.example.com/response"},
	}.Encode()
}

func signedRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/google", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set(signature.TimestampHeader, "1531420618")
	req.Header.Set(signature.SignatureHeader, signature.Compute(testSecret, "1531420618", []byte(body)))
	req.Header.Add("X-Forwarded-For", "10.0.0.1")
	req.Header.Add("X-Forwarded-For", "10.0.0.2")
	return req
}

func TestCommandAccepted(t *testing.T) {
	runner := &fakeRunner{admit: true}
	s, _, _ := newTestServer(runner)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, signedRequest(commandBody("alice", "suspend jdoe")))

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, runner.admitted, 1)
	assert.Equal(t, pipeline.Invocation{
		RequestID:   "req-1",
		User:        "alice",
		Text:        "suspend jdoe",
		ResponseURL: "https://hooks.example.com/response",
		SourceIP:    []string{"10.0.0.1", "10.0.0.2"},
	}, runner.admitted[0])
	assert.Len(t, runner.started, 1)
}

func TestCommandRejectedByAdmitIsNotStarted(t *testing.T) {
	runner := &fakeRunner{}
	s, _, _ := newTestServer(runner)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, signedRequest(commandBody("alice", "bogus")))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, runner.admitted, 1)
	assert.Empty(t, runner.started)
}

func TestCommandBadSignature(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *http.Request)
	}{
		{"wrong signature", func(r *http.Request) { r.Header.Set(signature.SignatureHeader, "v0=deadbeef") }},
		{"missing signature", func(r *http.Request) { r.Header.Del(signature.SignatureHeader) }},
		{"missing timestamp", func(r *http.Request) { r.Header.Del(signature.TimestampHeader) }},
		{"altered timestamp", func(r *http.Request) { r.Header.Set(signature.TimestampHeader, "1531420619") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{admit: true}
			s, hook, poster := newTestServer(runner)

			req := signedRequest(commandBody("mallory", "offboard jdoe"))
			tt.mutate(req)
			rec := httptest.NewRecorder()
			s.Router().ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Empty(t, runner.admitted)
			assert.Empty(t, runner.started)

			var errs []*logrus.Entry
			for _, e := range hook.AllEntries() {
				if e.Level == logrus.ErrorLevel {
					errs = append(errs, e)
				}
			}
			require.Len(t, errs, 1)
			assert.Equal(t, "Client IP:[10.0.0.1 10.0.0.2] mallory could not verify request from Slack", errs[0].Message)
			s.notifier.Wait()
			assert.Equal(t, []string{"[ERROR] Client IP:[10.0.0.1 10.0.0.2] mallory could not verify request from Slack"}, poster.texts)
		})
	}
}

func TestCommandOversizedBodyFailsVerification(t *testing.T) {
	runner := &fakeRunner{admit: true}
	s, _, _ := newTestServer(runner)

	body := commandBody("alice", "suspend "+strings.Repeat("a", maxBodyBytes))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, signedRequest(body))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, runner.admitted)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestCommandUnreadableBody(t *testing.T) {
	runner := &fakeRunner{admit: true}
	s, _, _ := newTestServer(runner)

	req := httptest.NewRequest(http.MethodPost, "/google", failingReader{})
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, runner.admitted)
}

func TestTestingEndpoint(t *testing.T) {
	s, hook, poster := newTestServer(&fakeRunner{})

	req := httptest.NewRequest(http.MethodGet, "/testing", nil)
	req.Header.Set("X-Forwarded-For", "192.0.2.7")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	found := false
	for _, e := range hook.AllEntries() {
		if e.Message == "SOURCE IP = [192.0.2.7] This is a test" {
			found = true
		}
	}
	assert.True(t, found)
	assert.Empty(t, poster.texts)
}

func TestUnknownRoute(t *testing.T) {
	s, _, _ := newTestServer(&fakeRunner{})

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/google", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

type blockingPoster struct {
	release chan struct{}
}

func (b *blockingPoster) PostMessage(ctx context.Context, _, _ string) error {
	<-b.release
	return nil
}

func TestBadSignatureAnswersBeforeChatMirror(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	poster := &blockingPoster{release: make(chan struct{})}
	s := New(testSecret, &fakeRunner{admit: true}, notify.New(logger, poster, "C123"))

	req := signedRequest(commandBody("mallory", "offboard jdoe"))
	req.Header.Set(signature.SignatureHeader, "v0=deadbeef")

	answered := make(chan int, 1)
	go func() {
		rec := httptest.NewRecorder()
		s.Router().ServeHTTP(rec, req)
		answered <- rec.Code
	}()

	select {
	case code := <-answered:
		assert.Equal(t, http.StatusUnauthorized, code)
	case <-time.After(2 * time.Second):
		t.Fatal("handler waited for the chat API")
	}
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)

	close(poster.release)
	s.notifier.Wait()
}
