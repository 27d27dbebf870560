// Package access decides whether a Slack user may run a privileged action.
package access

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google-admin-bridge/internal/command"
)

// ErrInsufficientPermissions means the invoker is not in the privileged group.
var ErrInsufficientPermissions = errors.New("insufficient permissions")

// MemberLister lists the email addresses of a directory group.
type MemberLister interface {
	GroupMemberEmails(ctx context.Context, groupKey string) ([]string, error)
}

// Controller checks membership of the privileged group on every call.
// Slack user names are mapped to directory identities as {user}@{domain}.
type Controller struct {
	members MemberLister
	group   string
	domain  string
}

// NewController checks membership of group for users of domain.
func NewController(members MemberLister, group, domain string) *Controller {
	return &Controller{members: members, group: group, domain: domain}
}

// Authorize returns ErrInsufficientPermissions when user may not run action.
func (c *Controller) Authorize(ctx context.Context, user string, action command.Action) error {
	if !action.RequiresMembership() {
		return nil
	}

	emails, err := c.members.GroupMemberEmails(ctx, c.group)
	if err != nil {
		return fmt.Errorf("membership lookup failed: %w", err)
	}

	identity := strings.ToLower(user + "@" + c.domain)
	for _, email := range emails {
		if strings.ToLower(email) == identity {
			return nil
		}
	}
	return fmt.Errorf("%s is not a member of %s: %w", user, c.group, ErrInsufficientPermissions)
}
