package providers

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/geonotify/internal/database"
	"github.com/edgard/geonotify/internal/geo"
)

type memStore struct {
	mu        sync.Mutex
	last      *geo.Location
	session   *database.Session
	token     *database.PushToken
	err       error
	tokenHits int
}

func (m *memStore) SaveLastLocation(_ context.Context, loc geo.Location) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last = &loc
	return nil
}

func (m *memStore) LoadLastLocation(context.Context) (*geo.Location, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last, m.err
}

func (m *memStore) GetSession(context.Context) (*database.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session, m.err
}

func (m *memStore) GetPushToken(context.Context) (*database.PushToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokenHits++
	return m.token, m.err
}

type failingSource struct{ err error }

func (f failingSource) Read(context.Context) (*geo.Location, error) { return nil, f.err }

func TestStaticPermissions(t *testing.T) {
	t.Parallel()

	p := &StaticPermissions{Location: true}
	perms, err := p.CheckAll(context.Background())
	require.NoError(t, err)
	assert.True(t, perms.Location)
	assert.False(t, perms.Granted())
}

func TestLocationProviderUsesSource(t *testing.T) {
	t.Parallel()

	want := geo.Location{Latitude: 43.6, Longitude: 1.44}
	p := NewLocationProvider(StaticSource{Location: want}, &memStore{}, nil)

	got, err := p.FreshSample(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, *got)
}

func TestLocationProviderFallsBackToStore(t *testing.T) {
	t.Parallel()

	cached := geo.Location{Latitude: 1, Longitude: 2}
	store := &memStore{last: &cached}

	p := NewLocationProvider(failingSource{err: errors.New("no fix")}, store, nil)
	got, err := p.FreshSample(context.Background())
	require.NoError(t, err)
	assert.Equal(t, cached, *got)

	p = NewLocationProvider(StaticSource{Location: geo.Location{Latitude: 200}}, store, nil)
	got, err = p.FreshSample(context.Background())
	require.NoError(t, err)
	assert.Equal(t, cached, *got, "invalid fixes are replaced by the cached location")

	p = NewLocationProvider(failingSource{err: errors.New("no fix")}, nil, nil)
	_, err = p.FreshSample(context.Background())
	assert.Error(t, err)
}

func TestFileSource(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "fix.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"latitude": 48.85, "longitude": 2.35}`), 0o600))

	got, err := FileSource{Path: path}.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, geo.Location{Latitude: 48.85, Longitude: 2.35}, *got)

	_, err = FileSource{Path: filepath.Join(dir, "missing.json")}.Read(context.Background())
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte(`not json`), 0o600))
	_, err = FileSource{Path: path}.Read(context.Background())
	assert.Error(t, err)
}

func TestAuthProvider(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tests := []struct {
		name       string
		session    *database.Session
		wantActive bool
		wantCred   string
	}{
		{name: "signed out"},
		{name: "session without credential", session: &database.Session{UserID: "u1"}},
		{name: "signed in", session: &database.Session{UserID: "u1", Credential: "jwt"}, wantActive: true, wantCred: "jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			a := NewAuthProvider(&memStore{session: tt.session})

			state, err := a.SessionState(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.wantActive, state.Active)

			cred, err := a.Credential(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCred, cred)
		})
	}

	_, err := NewAuthProvider(&memStore{err: errors.New("disk")}).SessionState(ctx)
	assert.Error(t, err)
}

func TestPushTokenProvider(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("stored token wins and is cached", func(t *testing.T) {
		t.Parallel()
		store := &memStore{token: &database.PushToken{Token: "stored"}}
		p := NewPushTokenProvider(store, "configured", time.Minute, nil)

		for range 3 {
			token, err := p.Token(ctx)
			require.NoError(t, err)
			assert.Equal(t, "stored", token)
		}
		assert.Equal(t, 1, store.tokenHits)

		p.Invalidate()
		_, err := p.Token(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, store.tokenHits)
	})

	t.Run("falls back to configured token", func(t *testing.T) {
		t.Parallel()
		p := NewPushTokenProvider(&memStore{err: errors.New("locked")}, "configured", 0, nil)
		token, err := p.Token(ctx)
		require.NoError(t, err)
		assert.Equal(t, "configured", token)
	})

	t.Run("no token anywhere", func(t *testing.T) {
		t.Parallel()
		p := NewPushTokenProvider(&memStore{}, "", time.Minute, nil)
		token, err := p.Token(ctx)
		require.NoError(t, err)
		assert.Empty(t, token)

		_, err = NewPushTokenProvider(&memStore{err: errors.New("locked")}, "", 0, nil).Token(ctx)
		assert.Error(t, err)
	})
}
