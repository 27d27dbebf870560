// Package storage uploads rotated log files to a Google Drive folder.
package storage

import (
	"context"
	"fmt"
	"io"

	"google.golang.org/api/drive/v3"
)

// Drive uploads objects into a single folder.
type Drive struct {
	svc      *drive.Service
	folderID string
}

func NewDrive(svc *drive.Service, folderID string) *Drive {
	return &Drive{svc: svc, folderID: folderID}
}

func (d *Drive) Upload(ctx context.Context, name string, r io.Reader) error {
	file := &drive.File{
		Name:     name,
		MimeType: "text/plain",
		Parents:  []string{d.folderID},
	}
	created, err := d.svc.Files.Create(file).Media(r).Fields("id").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("drive upload failed: %w", err)
	}
	if created.Id == "" {
		return fmt.Errorf("drive upload of %s returned no file id", name)
	}
	return nil
}
