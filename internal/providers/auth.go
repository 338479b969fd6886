package providers

import (
	"context"
	"fmt"

	"github.com/edgard/geonotify/internal/database"
	"github.com/edgard/geonotify/internal/reporter"
)

// SessionStore is the subset of database.Store used for authentication.
type SessionStore interface {
	GetSession(ctx context.Context) (*database.Session, error)
}

// AuthProvider derives the session state from the persisted session. A
// session without a credential counts as signed out.
type AuthProvider struct {
	store SessionStore
}

var _ reporter.AuthProvider = (*AuthProvider)(nil)

func NewAuthProvider(store SessionStore) *AuthProvider {
	return &AuthProvider{store: store}
}

func (a *AuthProvider) SessionState(ctx context.Context) (reporter.SessionState, error) {
	session, err := a.store.GetSession(ctx)
	if err != nil {
		return reporter.SessionState{}, fmt.Errorf("failed to read session: %w", err)
	}
	if session == nil || session.Credential == "" {
		return reporter.SessionState{}, nil
	}
	return reporter.SessionState{Active: true, UserID: session.UserID}, nil
}

// Credential returns the API token of the signed-in user, or "" if none.
func (a *AuthProvider) Credential(ctx context.Context) (string, error) {
	session, err := a.store.GetSession(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read session: %w", err)
	}
	if session == nil {
		return "", nil
	}
	return session.Credential, nil
}
