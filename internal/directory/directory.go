// Package directory reads and mutates user records in Google Workspace.
package directory

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"google-admin-bridge/internal/command"
)

// ErrUserNotFound means the target identity does not exist in the directory.
var ErrUserNotFound = errors.New("user not found")

// Directory is the part of the Admin SDK the bridge uses.
type Directory interface {
	// GetUser returns ErrUserNotFound when userKey does not resolve to a user.
	GetUser(ctx context.Context, userKey string) error
	// GroupMemberEmails lists the email of every member of groupKey.
	GroupMemberEmails(ctx context.Context, groupKey string) ([]string, error)
	// UpdateUser applies the fixed change for action to userKey.
	UpdateUser(ctx context.Context, userKey string, action command.Action) error
}

// DryRun logs mutations instead of applying them. Reads go to the wrapped directory.
type DryRun struct {
	Directory
	Logger *logrus.Logger
}

func (d DryRun) UpdateUser(_ context.Context, userKey string, action command.Action) error {
	d.Logger.WithFields(logrus.Fields{
		"target": userKey,
		"action": action.String(),
	}).Info("DRY-RUN: Would update directory user (no actual changes made)")
	return nil
}
