// Package download saves binary artifacts fetched from the backend, such as
// generated ID cards and CSV exports, without a second server round trip.
package download

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Artifact is a fetched file waiting to be saved.
type Artifact struct {
	Data     []byte
	Filename string
	MimeType string
}

// Saver persists an artifact and returns where it ended up.
type Saver interface {
	Save(ctx context.Context, a Artifact) (string, error)
}

// LocalSaver writes artifacts into a directory. Each save goes through a
// temporary file that is removed on every path, so a failed save leaves
// nothing behind.
type LocalSaver struct {
	dir    string
	logger *zap.Logger
	mu     sync.Mutex
}

// NewLocalSaver saves into dir, creating it on first use.
func NewLocalSaver(dir string, logger *zap.Logger) *LocalSaver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocalSaver{dir: dir, logger: logger}
}

func (s *LocalSaver) Save(ctx context.Context, a Artifact) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name := SafeName(a.Filename)
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".download-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		tmp.Close()
		if err := os.Remove(tmpName); err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("remove temp download", zap.String("path", tmpName), zap.Error(err))
		}
	}()

	if _, err := tmp.Write(a.Data); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		return "", fmt.Errorf("sync %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	target := availableName(s.dir, name)
	if err := os.Rename(tmpName, target); err != nil {
		return "", fmt.Errorf("move %s into place: %w", name, err)
	}
	s.logger.Info("artifact saved", zap.String("path", target), zap.Int("bytes", len(a.Data)))
	return target, nil
}

// SafeName reduces a server supplied name to a plain file name.
func SafeName(name string) string {
	name = strings.ReplaceAll(strings.TrimSpace(name), "\\", "/")
	name = filepath.Base(filepath.FromSlash(name))
	switch name {
	case "", ".", "..", string(filepath.Separator):
		return "download"
	}
	return name
}

// availableName appends " (n)" before the extension until the name is free.
func availableName(dir, name string) string {
	target := filepath.Join(dir, name)
	if _, err := os.Stat(target); errors.Is(err, fs.ErrNotExist) {
		return target
	}
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 1; ; i++ {
		target = filepath.Join(dir, fmt.Sprintf("%s (%d)%s", stem, i, ext))
		if _, err := os.Stat(target); errors.Is(err, fs.ErrNotExist) {
			return target
		}
	}
}

// Mirror saves to Primary and copies to Secondary. Only Primary failures
// are returned; Secondary failures are logged.
type Mirror struct {
	Primary   Saver
	Secondary Saver
	Logger    *zap.Logger
}

func (m Mirror) Save(ctx context.Context, a Artifact) (string, error) {
	loc, err := m.Primary.Save(ctx, a)
	if err != nil {
		return "", err
	}
	if m.Secondary != nil {
		if _, err := m.Secondary.Save(ctx, a); err != nil && m.Logger != nil {
			m.Logger.Warn("mirror artifact", zap.String("file", a.Filename), zap.Error(err))
		}
	}
	return loc, nil
}
