// Package gcp builds Google API clients that act as a Workspace admin through a
// service account with domain-wide delegation.
package gcp

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/oauth2/google"
	admin "google.golang.org/api/admin/directory/v1"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// Scopes granted to the service account.
var Scopes = []string{
	drive.DriveFileScope,
	admin.AdminDirectoryUserScope,
	admin.AdminDirectoryGroupReadonlyScope,
}

// ClientOption returns an option that authenticates as subject using the
// service account key in credentialsFile.
func ClientOption(ctx context.Context, credentialsFile, subject string) (option.ClientOption, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read service account file: %w", err)
	}

	conf, err := google.JWTConfigFromJSON(data, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse service account file: %w", err)
	}
	conf.Subject = subject

	return option.WithTokenSource(conf.TokenSource(ctx)), nil
}

// NewServices builds the directory and drive services from one credential.
func NewServices(ctx context.Context, credentialsFile, subject string) (*admin.Service, *drive.Service, error) {
	opt, err := ClientOption(ctx, credentialsFile, subject)
	if err != nil {
		return nil, nil, err
	}

	adminSvc, err := admin.NewService(ctx, opt)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create directory service: %w", err)
	}

	driveSvc, err := drive.NewService(ctx, opt)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create drive service: %w", err)
	}

	return adminSvc, driveSvc, nil
}
