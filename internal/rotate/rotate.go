// Package rotate ships the local log file to cloud storage once it grows past a
// size threshold, then truncates it.
package rotate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Uploader stores a named object.
type Uploader interface {
	Upload(ctx context.Context, name string, r io.Reader) error
}

// Rotator is best-effort: lines written between the upload and the truncate are lost.
type Rotator struct {
	path     string
	maxBytes int64
	uploader Uploader
	logger   *logrus.Logger
	now      func() time.Time
}

// New returns a Rotator for path. A zero maxBytes or nil uploader disables rotation.
func New(path string, maxBytes int64, uploader Uploader, logger *logrus.Logger) *Rotator {
	return &Rotator{
		path:     path,
		maxBytes: maxBytes,
		uploader: uploader,
		logger:   logger,
		now:      time.Now,
	}
}

// Check uploads and truncates the log when it has reached the threshold.
// It reports whether a rotation happened.
func (r *Rotator) Check(ctx context.Context) (bool, error) {
	if r == nil || r.maxBytes <= 0 || r.uploader == nil {
		return false, nil
	}

	info, err := os.Stat(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat log file: %w", err)
	}
	if info.Size() < r.maxBytes {
		return false, nil
	}

	name := r.objectName()
	if err := r.upload(ctx, name); err != nil {
		return false, err
	}

	if err := os.Truncate(r.path, 0); err != nil {
		return false, fmt.Errorf("failed to truncate log file: %w", err)
	}

	r.logger.WithFields(logrus.Fields{
		"object": name,
		"bytes":  info.Size(),
	}).Info("Rotated log file to cloud storage")
	return true, nil
}

func (r *Rotator) upload(ctx context.Context, name string) error {
	f, err := os.Open(r.path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()

	if err := r.uploader.Upload(ctx, name, f); err != nil {
		return fmt.Errorf("failed to upload %s: %w", name, err)
	}
	return nil
}

// objectName turns logs/app.log into app-2006-01-02_15-04-05.log.
func (r *Rotator) objectName() string {
	base := filepath.Base(r.path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return fmt.Sprintf("%s-%s%s", stem, r.now().UTC().Format("2006-01-02_15-04-05"), ext)
}
