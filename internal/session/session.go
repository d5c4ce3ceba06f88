// Package session holds the bearer credential used to authenticate calls to
// the collaboration API and persists it in durable storage.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

const (
	// TokenKey is the storage key holding the bearer token as plain text.
	TokenKey = "auth_token"
	// CookiesKey is the storage key holding the refresh cookies set by the API.
	CookiesKey = "refresh_cookies"
)

// ErrNoFileStorage is returned by Watch when the session is not file-backed.
var ErrNoFileStorage = errors.New("session is not backed by a file")

// Session owns the bearer credential. The API client is its only writer.
type Session struct {
	mu      sync.RWMutex
	token   string
	storage Storage
}

// New creates a session and rehydrates any credential already in storage.
func New(storage Storage) (*Session, error) {
	if storage == nil {
		storage = NewMemoryStorage()
	}

	s := &Session{storage: storage}
	token, _, err := storage.Get(TokenKey)
	if err != nil {
		return nil, fmt.Errorf("rehydrate session: %w", err)
	}
	s.token = token
	return s, nil
}

// Token returns the held credential, or "" when there is none.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Authenticated reports whether a credential is held.
func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

// Set holds token and persists it. Memory and storage change under one lock
// so they never disagree.
func (s *Session) Set(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = token
	if err := s.storage.Set(TokenKey, token); err != nil {
		return fmt.Errorf("persist token: %w", err)
	}
	return nil
}

// Clear drops the credential from memory and from storage.
func (s *Session) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = ""
	if err := s.storage.Delete(TokenKey); err != nil {
		return fmt.Errorf("remove token: %w", err)
	}
	return nil
}

// Storage exposes the backing store for collaborators such as the cookie jar.
func (s *Session) Storage() Storage {
	return s.storage
}

// Reload re-reads the credential from storage, picking up writes made by
// another process.
func (s *Session) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, _, err := s.storage.Get(TokenKey)
	if err != nil {
		return err
	}
	s.token = token
	return nil
}

// Watch reloads the credential whenever the backing session file changes and
// blocks until ctx is done. onChange, if set, is called when the session
// gains or loses its credential.
func (s *Session) Watch(ctx context.Context, onChange func(authenticated bool)) error {
	fs, ok := s.storage.(*FileStorage)
	if !ok {
		return ErrNoFileStorage
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// The file is replaced by rename on every write, so watch the directory.
	dir := filepath.Dir(fs.Path())
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	target := filepath.Clean(fs.Path())
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			before := s.Authenticated()
			if err := s.Reload(); err != nil {
				slog.Warn("Session reload failed", "path", target, "error", err)
				continue
			}
			if onChange != nil && before != s.Authenticated() {
				onChange(s.Authenticated())
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Session watcher error", "error", err)
		}
	}
}
