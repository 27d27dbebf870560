// Package notify writes audit events to the local log and mirrors them to a
// Slack channel.
package notify

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc"
)

const postTimeout = 10 * time.Second

// Poster is the subset of the chat client needed by the Notifier.
type Poster interface {
	PostMessage(ctx context.Context, channel, text string) error
}

// Notifier dual-logs significant events. Chat failures are logged locally and
// never returned to the caller.
type Notifier struct {
	logger  *logrus.Logger
	poster  Poster
	channel string
	pending conc.WaitGroup
}

func New(logger *logrus.Logger, poster Poster, channel string) *Notifier {
	return &Notifier{logger: logger, poster: poster, channel: channel}
}

// Info logs msg at info level and posts it to the channel.
func (n *Notifier) Info(ctx context.Context, fields logrus.Fields, msg string) {
	n.logger.WithFields(fields).Info(msg)
	n.post(ctx, "[INFO] "+msg)
}

// Error logs msg at error level and posts it to the channel.
func (n *Notifier) Error(ctx context.Context, fields logrus.Fields, msg string) {
	n.logger.WithFields(fields).Error(msg)
	n.post(ctx, "[ERROR] "+msg)
}

// ErrorAsync logs msg at error level now and posts it to the channel in the
// background. Use it while the caller still owes Slack an HTTP response.
func (n *Notifier) ErrorAsync(ctx context.Context, fields logrus.Fields, msg string) {
	n.logger.WithFields(fields).Error(msg)
	ctx = context.WithoutCancel(ctx)
	n.pending.Go(func() {
		n.post(ctx, "[ERROR] "+msg)
	})
}

// Wait blocks until every background post has finished.
func (n *Notifier) Wait() {
	n.pending.Wait()
}

// Logger returns the local logger for events that are not mirrored.
func (n *Notifier) Logger() *logrus.Logger {
	return n.logger
}

func (n *Notifier) post(ctx context.Context, text string) {
	if n.poster == nil || n.channel == "" {
		return
	}
	// The request that produced the event may already be finished.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), postTimeout)
	defer cancel()

	if err := n.poster.PostMessage(ctx, n.channel, text); err != nil {
		n.logger.WithError(err).WithField("channel", n.channel).Warn("Failed to mirror event to chat channel")
	}
}
