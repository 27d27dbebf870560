package directory

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	admin "google.golang.org/api/admin/directory/v1"
	"google.golang.org/api/googleapi"

	"google-admin-bridge/internal/command"
)

// Google implements Directory on the Admin SDK directory_v1 service.
type Google struct {
	svc           *admin.Service
	alumniOrgUnit string
}

func NewGoogle(svc *admin.Service, alumniOrgUnit string) *Google {
	return &Google{svc: svc, alumniOrgUnit: alumniOrgUnit}
}

func (g *Google) GetUser(ctx context.Context, userKey string) error {
	if _, err := g.svc.Users.Get(userKey).Context(ctx).Do(); err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && (apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusBadRequest) {
			return fmt.Errorf("%s: %w", userKey, ErrUserNotFound)
		}
		return fmt.Errorf("failed to get user %s: %w", userKey, err)
	}
	return nil
}

func (g *Google) GroupMemberEmails(ctx context.Context, groupKey string) ([]string, error) {
	var emails []string
	err := g.svc.Members.List(groupKey).Pages(ctx, func(page *admin.Members) error {
		for _, m := range page.Members {
			emails = append(emails, m.Email)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list members of %s: %w", groupKey, err)
	}
	return emails, nil
}

func (g *Google) UpdateUser(ctx context.Context, userKey string, action command.Action) error {
	body, err := g.userPatch(action)
	if err != nil {
		return err
	}
	if _, err := g.svc.Users.Update(userKey, body).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to %s user %s: %w", action, userKey, err)
	}
	return nil
}

// userPatch is the fixed request body for each action.
func (g *Google) userPatch(action command.Action) (*admin.User, error) {
	switch action {
	case command.Suspend:
		return &admin.User{Suspended: true}, nil
	case command.Unsuspend:
		// false is the zero value and would be dropped from the JSON body otherwise.
		return &admin.User{Suspended: false, ForceSendFields: []string{"Suspended"}}, nil
	case command.Offboard:
		return &admin.User{OrgUnitPath: g.alumniOrgUnit}, nil
	default:
		return nil, fmt.Errorf("unknown action %s", action)
	}
}
