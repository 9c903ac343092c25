// Package auth keeps the signed-in backend user between crewclock runs.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fentz26/crewclock/internal/models"
)

// ErrNotLoggedIn is returned when an operation needs a session and none exists.
var ErrNotLoggedIn = errors.New("not logged in (run 'crewclock login')")

// Authenticator verifies credentials against the backend.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*models.User, error)
}

// Session is the stored sign-in.
type Session struct {
	User      models.User `json:"user"`
	APIBase   string      `json:"api_base"`
	CreatedAt time.Time   `json:"created_at"`
}

// Manager handles session persistence.
type Manager struct {
	configDir string
	session   *Session
	mu        sync.RWMutex
}

// NewManager creates a manager storing its session under configDir.
func NewManager(configDir string) (*Manager, error) {
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	m := &Manager{configDir: configDir}
	if err := m.loadSession(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	return m, nil
}

// IsAuthenticated reports whether a session is stored.
func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session != nil
}

// Current returns the stored session.
func (m *Manager) Current() (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return nil, ErrNotLoggedIn
	}
	s := *m.session
	return &s, nil
}

// Login verifies the credentials and stores the resulting session.
func (m *Manager) Login(ctx context.Context, a Authenticator, apiBase, username, password string) (*Session, error) {
	user, err := a.Login(ctx, username, password)
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}

	s := &Session{User: *user, APIBase: apiBase, CreatedAt: time.Now().UTC()}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.saveSession(s); err != nil {
		return nil, err
	}
	m.session = s
	return s, nil
}

// Logout removes the stored session.
func (m *Manager) Logout() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.session = nil
	if err := os.Remove(m.sessionPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session: %w", err)
	}
	return nil
}

func (m *Manager) sessionPath() string {
	return filepath.Join(m.configDir, "session.json")
}

func (m *Manager) loadSession() error {
	data, err := os.ReadFile(m.sessionPath())
	if err != nil {
		return err
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("failed to parse session: %w", err)
	}
	m.session = &s
	return nil
}

func (m *Manager) saveSession(s *Session) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	return os.WriteFile(m.sessionPath(), data, 0600)
}
