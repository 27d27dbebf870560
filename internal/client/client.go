// Package client assembles the bridge from configuration and runs its HTTP
// listener until shutdown.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"google-admin-bridge/internal/access"
	"google-admin-bridge/internal/challenge"
	"google-admin-bridge/internal/chat"
	"google-admin-bridge/internal/directory"
	"google-admin-bridge/internal/gcp"
	"google-admin-bridge/internal/notify"
	"google-admin-bridge/internal/pipeline"
	"google-admin-bridge/internal/rotate"
	"google-admin-bridge/internal/server"
	"google-admin-bridge/internal/storage"
	"google-admin-bridge/types"
)

const (
	readHeaderTimeout = 10 * time.Second
	responderTimeout  = 15 * time.Second
)

// Option customises New.
type Option func(*options)

type options struct {
	responder pipeline.Responder
}

// WithResponder replaces the response_url client, e.g. to print callbacks locally.
func WithResponder(r pipeline.Responder) Option {
	return func(o *options) { o.responder = r }
}

type Client struct {
	config   *types.Config
	logger   *logrus.Logger
	pipeline *pipeline.Pipeline
	notifier *notify.Notifier
	server   *http.Server

	shutdownMu sync.Mutex
	isShutdown bool
	drained    chan struct{}
}

// New builds every outbound client from config and wires them into the pipeline.
func New(ctx context.Context, config *types.Config, logger *logrus.Logger, opts ...Option) (*Client, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	adminSvc, driveSvc, err := gcp.NewServices(ctx, config.ServiceAccountFile, config.AdminAccount)
	if err != nil {
		return nil, fmt.Errorf("failed to create google clients: %w", err)
	}

	var dir directory.Directory = directory.NewGoogle(adminSvc, config.AlumniOrgUnit)
	if config.DryRun {
		dir = directory.DryRun{Directory: dir, Logger: logger}
		logger.Warn("DRY-RUN mode: directory updates will be logged, not applied")
	}

	notifier := notify.New(logger, chat.NewClient(config.SlackToken), config.SlackChannelID)

	var rotator pipeline.Rotator
	if config.DriveFolderID != "" {
		rotator = rotate.New(config.LogPath, config.LogMaxBytes, storage.NewDrive(driveSvc, config.DriveFolderID), logger)
	} else {
		logger.Info("No drive folder configured, log rotation disabled")
	}

	responder := o.responder
	if responder == nil {
		responder = chat.NewResponder(&http.Client{Timeout: responderTimeout})
	}

	p := pipeline.New(pipeline.Deps{
		Directory:  dir,
		Access:     access.NewController(dir, config.GetPrivilegedGroup(), config.Domain),
		Challenger: challenge.NewDuo(config.DuoIKey, config.DuoSKey, config.DuoHost),
		Responder:  responder,
		Notifier:   notifier,
		Rotator:    rotator,
	})

	srv := server.New(config.SlackSigningSecret, p, notifier)

	return &Client{
		config:   config,
		logger:   logger,
		pipeline: p,
		notifier: notifier,
		server: &http.Server{
			Addr:              config.ListenAddr,
			Handler:           srv.Router(),
			ReadHeaderTimeout: readHeaderTimeout,
		},
		drained: make(chan struct{}),
	}, nil
}

// Pipeline returns the assembled pipeline.
func (c *Client) Pipeline() *pipeline.Pipeline {
	return c.pipeline
}

// Run serves HTTP until Shutdown is called, then waits for in-flight commands.
func (c *Client) Run() error {
	c.logger.WithField("addr", c.config.ListenAddr).Info("Listening for slash commands")

	if err := c.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}
	// Handlers may still be admitting commands until Shutdown has drained them.
	<-c.drained

	c.logger.Info("Waiting for in-flight commands to finish")
	if !c.pipeline.Wait(c.config.ShutdownTimeout) {
		c.logger.WithField("timeout", c.config.ShutdownTimeout.String()).Warn("Gave up waiting for in-flight commands")
	}
	c.notifier.Wait()
	return nil
}

// Shutdown stops accepting requests. Run returns once in-flight commands finish.
func (c *Client) Shutdown() {
	c.shutdownMu.Lock()
	defer c.shutdownMu.Unlock()
	if c.isShutdown {
		return
	}
	c.isShutdown = true
	defer close(c.drained)

	ctx, cancel := context.WithTimeout(context.Background(), readHeaderTimeout)
	defer cancel()
	if err := c.server.Shutdown(ctx); err != nil {
		c.logger.WithError(err).Warn("HTTP server did not shut down cleanly")
	}
}
