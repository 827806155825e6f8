// Package credential supplies the bearer token used to attach to consoles.
package credential

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Source returns the current credential, or "" when none is available
type Source interface {
	Credential() string
}

// Static is a fixed credential
type Static string

func (s Static) Credential() string { return strings.TrimSpace(string(s)) }

// Env reads the credential from an environment variable on every call
type Env string

func (e Env) Credential() string { return strings.TrimSpace(os.Getenv(string(e))) }

// Chain returns the first non-empty credential of its sources
type Chain []Source

func (c Chain) Credential() string {
	for _, s := range c {
		if s == nil {
			continue
		}
		if v := s.Credential(); v != "" {
			return v
		}
	}
	return ""
}

// DefaultPath returns ~/.rcw/credential
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".rcw", "credential"), nil
}

// File is a token stored in a file, as written by 'rcw login'
type File struct {
	path   string
	logger *zap.Logger
	mu     sync.Mutex
}

// NewFile creates a file-backed source. A nil logger disables logging.
func NewFile(path string, logger *zap.Logger) *File {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &File{path: path, logger: logger}
}

// Path returns the backing file path
func (f *File) Path() string { return f.path }

// Credential reads the token from disk. A missing file yields "".
func (f *File) Credential() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, err := os.ReadFile(f.path)
	if err != nil {
		if !os.IsNotExist(err) {
			f.logger.Debug("credential unreadable", zap.String("path", f.path), zap.Error(err))
		}
		return ""
	}
	return strings.TrimSpace(string(b))
}

// Save stores token with owner-only permissions
func (f *File) Save(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("refusing to save an empty credential")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	// Replace atomically so readers never observe a truncated token.
	tmp, err := os.CreateTemp(dir, ".credential-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(token + "\n"); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.path)
}

// Clear removes the stored token
func (f *File) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Watch calls onInvalid whenever the stored token disappears or becomes
// empty, until ctx is done. The parent directory must exist.
func (f *File) Watch(ctx context.Context, onInvalid func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("credential watch: %w", err)
	}
	// Watch the directory so atomic replaces and deletes are seen.
	if err := watcher.Add(filepath.Dir(f.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("credential watch: %w", err)
	}

	go func() {
		defer watcher.Close()
		valid := f.Credential() != ""
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != filepath.Clean(f.path) {
					continue
				}
				now := f.Credential() != ""
				if valid && !now {
					f.logger.Debug("credential invalidated", zap.String("path", f.path), zap.String("op", ev.Op.String()))
					onInvalid()
				}
				valid = now
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				f.logger.Debug("credential watch error", zap.Error(err))
			}
		}
	}()
	return nil
}
