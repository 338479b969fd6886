package reporter

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/edgard/geonotify/internal/background"
	"github.com/edgard/geonotify/internal/geo"
	"github.com/edgard/geonotify/internal/lifecycle"
)

type fakePermissions struct {
	mu    sync.Mutex
	perms Permissions
	err   error
}

func (f *fakePermissions) CheckAll(context.Context) (Permissions, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.perms, f.err
}

type fakeLocations struct {
	mu     sync.Mutex
	sample *geo.Location
	err    error
	calls  int
}

func (f *fakeLocations) FreshSample(context.Context) (*geo.Location, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.sample == nil {
		return nil, f.err
	}
	loc := *f.sample
	return &loc, f.err
}

func (f *fakeLocations) set(loc *geo.Location) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sample = loc
}

type fakeAuth struct {
	mu         sync.Mutex
	active     bool
	credential string
}

func (f *fakeAuth) SessionState(context.Context) (SessionState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return SessionState{Active: f.active, UserID: "user-1"}, nil
}

func (f *fakeAuth) Credential(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.credential, nil
}

type fakeTokens struct {
	token string
	err   error
	// When release is set, Token signals entered and waits for release.
	entered chan struct{}
	release chan struct{}
}

func (f *fakeTokens) Token(context.Context) (string, error) {
	if f.release != nil {
		f.entered <- struct{}{}
		<-f.release
	}
	return f.token, f.err
}

type fakeRemote struct {
	mu      sync.Mutex
	reports []Report
	err     error
	block   chan struct{}
}

func (f *fakeRemote) ReportLocation(ctx context.Context, r Report) (Ack, error) {
	f.mu.Lock()
	f.reports = append(f.reports, r)
	block, err := f.block, f.err
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return Ack{}, ctx.Err()
		}
	}
	if err != nil {
		return Ack{}, err
	}
	return Ack{Status: 200}, nil
}

func (f *fakeRemote) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reports)
}

type fakeStore struct {
	mu    sync.Mutex
	saved []geo.Location
}

func (f *fakeStore) SaveLastLocation(_ context.Context, loc geo.Location) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, loc)
	return nil
}

func (f *fakeStore) LoadLastLocation(context.Context) (*geo.Location, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.saved) == 0 {
		return nil, nil
	}
	loc := f.saved[len(f.saved)-1]
	return &loc, nil
}

func (f *fakeStore) all() []geo.Location {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]geo.Location(nil), f.saved...)
}

type fakeHandle struct {
	mu        sync.Mutex
	cancelled int
	err       error
}

func (h *fakeHandle) Cancel() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cancelled++
	return h.err
}

func (h *fakeHandle) cancelCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cancelled
}

type fakeBackground struct {
	mu       sync.Mutex
	attempts int
	failures int
	handles  []*fakeHandle
	fn       background.TaskFunc
	interval time.Duration
}

func (f *fakeBackground) RegisterPeriodic(_ string, interval time.Duration, fn background.TaskFunc) (TaskHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	if f.attempts <= f.failures {
		return nil, errors.New("registration rejected")
	}
	h := &fakeHandle{}
	f.handles = append(f.handles, h)
	f.fn = fn
	f.interval = interval
	return h, nil
}

func (f *fakeBackground) attemptCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts
}

func (f *fakeBackground) registered() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.handles)
}

func (f *fakeBackground) allHandles() []*fakeHandle {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*fakeHandle(nil), f.handles...)
}

func (f *fakeBackground) lastHandle() *fakeHandle {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.handles) == 0 {
		return nil
	}
	return f.handles[len(f.handles)-1]
}

func (f *fakeBackground) tick(ctx context.Context) error {
	f.mu.Lock()
	fn := f.fn
	f.mu.Unlock()
	return fn(ctx)
}

type harness struct {
	s       *Scheduler
	clock   *clockwork.FakeClock
	monitor *lifecycle.Monitor
	perms   *fakePermissions
	locs    *fakeLocations
	auth    *fakeAuth
	tokens  *fakeTokens
	remote  *fakeRemote
	store   *fakeStore
	bg      *fakeBackground
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newHarness(t *testing.T, initial lifecycle.State) *harness {
	t.Helper()

	h := &harness{
		clock:   clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
		monitor: lifecycle.NewMonitor(initial, discardLogger()),
		perms:   &fakePermissions{perms: Permissions{Location: true, Notifications: true}},
		locs:    &fakeLocations{sample: &geo.Location{}},
		auth:    &fakeAuth{active: true, credential: "jwt"},
		tokens:  &fakeTokens{token: "push-token"},
		remote:  &fakeRemote{},
		store:   &fakeStore{},
		bg:      &fakeBackground{},
	}

	s, err := New(Deps{
		Permissions: h.perms,
		Locations:   h.locs,
		Auth:        h.auth,
		PushTokens:  h.tokens,
		Remote:      h.remote,
		Store:       h.store,
		Background:  h.bg,
		AppState:    h.monitor,
	}, DefaultConfig(), WithClock(h.clock), WithLogger(discardLogger()))
	require.NoError(t, err)
	h.s = s
	return h
}

func waitForWaiters(t *testing.T, c *clockwork.FakeClock, n int) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.BlockUntilContext(ctx, n))
}
