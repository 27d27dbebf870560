// Package pipeline runs a slash command from admission to directory mutation.
//
// Admit performs the synchronous checks while Slack waits for the HTTP response:
// parse, privileged-group membership, target existence. Every rejection is
// answered through the command's response URL. Start acknowledges the command
// and runs Execute in a goroutine: log rotation check, Duo push, directory update.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/slack-go/slack"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"

	"google-admin-bridge/internal/access"
	"google-admin-bridge/internal/challenge"
	"google-admin-bridge/internal/command"
	"google-admin-bridge/internal/directory"
	"google-admin-bridge/internal/notify"
)

// ErrChallengeFailed is returned by Execute when the push was not approved.
var ErrChallengeFailed = errors.New("second factor not approved")

// Invocation is one slash command as received from Slack.
type Invocation struct {
	RequestID   string
	User        string
	Text        string
	ResponseURL string
	SourceIP    []string
}

// Task is an admitted invocation with a recognized action and an existing target.
type Task struct {
	Invocation
	Action command.Action
	Target string
}

// Responder answers the invoker through the command's response URL.
type Responder interface {
	Respond(ctx context.Context, responseURL string, msg *slack.WebhookMessage) error
}

// Authorizer decides whether the invoker may run an action.
type Authorizer interface {
	Authorize(ctx context.Context, user string, action command.Action) error
}

// Rotator ships the local log away once it is too large.
type Rotator interface {
	Check(ctx context.Context) (bool, error)
}

// Deps are the external collaborators. Rotator may be nil.
type Deps struct {
	Directory  directory.Directory
	Access     Authorizer
	Challenger challenge.Challenger
	Responder  Responder
	Notifier   *notify.Notifier
	Rotator    Rotator
}

// Pipeline admits invocations and tracks their background tasks.
type Pipeline struct {
	deps Deps
	log  *logrus.Logger
	wg   conc.WaitGroup
}

// New returns a Pipeline over deps. deps.Notifier must be set.
func New(deps Deps) *Pipeline {
	return &Pipeline{deps: deps, log: deps.Notifier.Logger()}
}

// Admit returns the task to run, or false when the invocation was answered and
// must go no further. Chat mirroring of rejections does not delay the caller.
func (p *Pipeline) Admit(ctx context.Context, inv Invocation) (*Task, bool) {
	cmd, err := command.Parse(inv.Text)
	if err != nil {
		var invalid *command.InvalidTokenError
		if errors.As(err, &invalid) {
			p.respond(ctx, inv, command.TextMessage(invalid.Error()))
		}
		return nil, false
	}
	if cmd.Help {
		p.respond(ctx, inv, command.HelpMessage())
		return nil, false
	}

	task := &Task{Invocation: inv, Action: cmd.Action, Target: cmd.Target}
	fields := task.fields()

	if err := p.deps.Access.Authorize(ctx, inv.User, cmd.Action); err != nil {
		if errors.Is(err, access.ErrInsufficientPermissions) {
			p.deps.Notifier.ErrorAsync(ctx, fields, fmt.Sprintf("Insufficient permissions: %s attempted to %s %s",
				inv.User, cmd.Action, cmd.Target))
			p.respond(ctx, inv, command.InsufficientPermissionsMessage(cmd.Action))
			return nil, false
		}
		p.deps.Notifier.ErrorAsync(ctx, withError(fields, err), fmt.Sprintf("Client IP:%v %s permission check failed",
			inv.SourceIP, inv.User))
		p.respond(ctx, inv, command.TextMessage("Unable to verify permissions, please try again later"))
		return nil, false
	}

	if !cmd.HasTarget() {
		p.respond(ctx, inv, command.NoArgumentMessage())
		return nil, false
	}

	if err := p.deps.Directory.GetUser(ctx, cmd.Target); err != nil {
		if errors.Is(err, directory.ErrUserNotFound) {
			p.respond(ctx, inv, command.UserNotFoundMessage(cmd.Target))
			return nil, false
		}
		p.deps.Notifier.ErrorAsync(ctx, withError(fields, err), fmt.Sprintf("Client IP:%v %s could not look up %s",
			inv.SourceIP, inv.User, cmd.Target))
		p.respond(ctx, inv, command.TextMessage(fmt.Sprintf("Unable to look up %q, please try again later", cmd.Target)))
		return nil, false
	}

	return task, true
}

// Start acknowledges task and executes it in the background. The goroutine is
// detached from ctx's cancellation so it outlives the HTTP request.
func (p *Pipeline) Start(ctx context.Context, task *Task) {
	p.respond(ctx, task.Invocation, command.AckMessage())

	bg := context.WithoutCancel(ctx)
	p.wg.Go(func() {
		var pc panics.Catcher
		pc.Try(func() {
			_ = p.Execute(bg, task)
		})
		if r := pc.Recovered(); r != nil {
			p.deps.Notifier.Error(bg, withError(task.fields(), r.AsError()),
				fmt.Sprintf("Client IP:%v %s request to %s %s crashed", task.SourceIP, task.User, task.Action, task.Target))
		}
	})
}

// Execute runs the privileged half of task and reports every outcome through the
// notifier itself. The returned error is informational.
func (p *Pipeline) Execute(ctx context.Context, task *Task) error {
	fields := task.fields()

	if p.deps.Rotator != nil {
		if _, err := p.deps.Rotator.Check(ctx); err != nil {
			p.log.WithFields(withError(fields, err)).Warn("Log rotation failed")
		}
	}

	p.deps.Notifier.Info(ctx, fields, fmt.Sprintf("Client IP:%v %s attempting Duo Auth", task.SourceIP, task.User))

	outcome, err := p.deps.Challenger.Push(ctx, task.User)
	if err == nil && !outcome.Allowed() {
		err = fmt.Errorf("%w: %s", ErrChallengeFailed, outcome.Result)
	}
	if err != nil {
		status := outcome.Message
		if !errors.Is(err, ErrChallengeFailed) || status == "" {
			status = err.Error()
		}
		p.respond(ctx, task.Invocation, command.TextMessage(status))
		if outcome.Status != "" {
			fields["duo_status"] = outcome.Status
		}
		p.deps.Notifier.Error(ctx, fields, fmt.Sprintf(
			"Client IP:%v %s attempted to authorize with duo to update %s with %s - Duo Error: %s",
			task.SourceIP, task.User, task.Target, task.Action, status))
		return err
	}

	// The target was checked in Admit; it is not looked up again here.
	if err := p.deps.Directory.UpdateUser(ctx, task.Target, task.Action); err != nil {
		p.deps.Notifier.Error(ctx, withError(fields, err), fmt.Sprintf("Client IP:%v %s failed to update %s with %s",
			task.SourceIP, task.User, task.Target, task.Action))
		p.respond(ctx, task.Invocation, command.TextMessage(fmt.Sprintf("Unable to %s %s", task.Action, task.Target)))
		return err
	}

	p.deps.Notifier.Info(ctx, fields, fmt.Sprintf("Client IP:%v %s updated %s with %s",
		task.SourceIP, task.User, task.Target, task.Action))
	return nil
}

// Run admits inv and, if admitted, executes it in the calling goroutine.
func (p *Pipeline) Run(ctx context.Context, inv Invocation) error {
	task, ok := p.Admit(ctx, inv)
	if !ok {
		p.deps.Notifier.Wait()
		return nil
	}
	p.respond(ctx, inv, command.AckMessage())
	return p.Execute(ctx, task)
}

// Wait blocks until background tasks finish or timeout elapses. It reports
// whether all tasks finished.
func (p *Pipeline) Wait(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	if timeout <= 0 {
		<-done
		return true
	}
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

func (p *Pipeline) respond(ctx context.Context, inv Invocation, msg *slack.WebhookMessage) {
	if err := p.deps.Responder.Respond(ctx, inv.ResponseURL, msg); err != nil {
		p.log.WithFields(logrus.Fields{
			"request_id": inv.RequestID,
			"user":       inv.User,
		}).WithError(err).Warn("Failed to answer slash command")
	}
}

// withError copies f and adds err under logrus.ErrorKey.
func withError(f logrus.Fields, err error) logrus.Fields {
	out := logrus.Fields{logrus.ErrorKey: err.Error()}
	for k, v := range f {
		out[k] = v
	}
	return out
}

func (t *Task) fields() logrus.Fields {
	return logrus.Fields{
		"request_id": t.RequestID,
		"source_ip":  t.SourceIP,
		"user":       t.User,
		"target":     t.Target,
		"action":     t.Action.String(),
	}
}
