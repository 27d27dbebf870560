// Package server exposes the slash command webhook over HTTP.
package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"google-admin-bridge/internal/notify"
	"google-admin-bridge/internal/pipeline"
	"google-admin-bridge/internal/signature"
)

// Slack never sends more than this; larger bodies are cut and fail verification.
const maxBodyBytes = 1 << 20

const forwardedForHeader = "X-Forwarded-For"

// Runner is the part of the pipeline the webhook drives.
type Runner interface {
	Admit(ctx context.Context, inv pipeline.Invocation) (*pipeline.Task, bool)
	Start(ctx context.Context, task *pipeline.Task)
}

type Server struct {
	signingSecret string
	runner        Runner
	notifier      *notify.Notifier
	log           *logrus.Logger
	newID         func() string
}

func New(signingSecret string, runner Runner, notifier *notify.Notifier) *Server {
	return &Server{
		signingSecret: signingSecret,
		runner:        runner,
		notifier:      notifier,
		log:           notifier.Logger(),
		newID:         uuid.NewString,
	}
}

// Router builds the HTTP router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Post("/google", s.handleCommand)
	r.Get("/testing", s.handleTesting)
	return r
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	sourceIP := r.Header.Values(forwardedForHeader)

	// The raw body is needed for the signature, so it is read before parsing.
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		s.log.WithError(err).WithField("source_ip", sourceIP).Warn("Failed to read request body")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if err := signature.Verify(s.signingSecret, r.Header, body); err != nil {
		user := userNameOf(body)
		s.notifier.ErrorAsync(r.Context(), logrus.Fields{
			"source_ip":     sourceIP,
			"user":          user,
			logrus.ErrorKey: err.Error(),
		}, fmt.Sprintf("Client IP:%v %s could not verify request from Slack", sourceIP, user))
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	form, err := url.ParseQuery(string(body))
	if err != nil {
		s.log.WithError(err).WithField("source_ip", sourceIP).Warn("Failed to parse slash command form")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	inv := pipeline.Invocation{
		RequestID:   s.newID(),
		User:        form.Get("user_name"),
		Text:        form.Get("text"),
		ResponseURL: form.Get("response_url"),
		SourceIP:    sourceIP,
	}
	s.log.WithFields(logrus.Fields{
		"request_id": inv.RequestID,
		"source_ip":  sourceIP,
		"user":       inv.User,
	}).Debugf("Received slash command %q", inv.Text)

	if task, ok := s.runner.Admit(r.Context(), inv); ok {
		s.runner.Start(r.Context(), task)
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleTesting(w http.ResponseWriter, r *http.Request) {
	s.log.Infof("SOURCE IP = %v This is a test", r.Header.Values(forwardedForHeader))
	w.WriteHeader(http.StatusOK)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   ww.Status(),
			"duration": time.Since(start).String(),
		}).Debug("HTTP request")
	})
}

// userNameOf extracts user_name from an unverified body for the audit line only.
func userNameOf(body []byte) string {
	form, err := url.ParseQuery(string(body))
	if err != nil {
		return ""
	}
	return form.Get("user_name")
}
