package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/edgard/geonotify/internal/geo"
)

// Store defines the persistence operations of the application.
// Single-row getters return nil, nil when the row does not exist.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	SaveLastLocation(ctx context.Context, loc geo.Location) error
	LoadLastLocation(ctx context.Context) (*geo.Location, error)

	// SaveSession replaces the current session.
	SaveSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context) (*Session, error)
	// DeleteSession signs the user out. Deleting a missing session is not an error.
	DeleteSession(ctx context.Context) error

	SavePushToken(ctx context.Context, token string) error
	GetPushToken(ctx context.Context) (*PushToken, error)

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store implementation backed by sqlx.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqlxStore) SaveLastLocation(ctx context.Context, loc geo.Location) error {
	if err := loc.Validate(); err != nil {
		return fmt.Errorf("refusing to save invalid location: %w", err)
	}

	row := LastLocation{
		ID:        1,
		Latitude:  loc.Latitude,
		Longitude: loc.Longitude,
		UpdatedAt: time.Now().UTC(),
	}
	query := `
        INSERT INTO last_location (id, latitude, longitude, updated_at)
        VALUES (:id, :latitude, :longitude, :updated_at)
        ON CONFLICT(id) DO UPDATE SET
            latitude = excluded.latitude,
            longitude = excluded.longitude,
            updated_at = excluded.updated_at;
    `
	if _, err := s.db.NamedExecContext(ctx, query, row); err != nil {
		s.logger.ErrorContext(ctx, "Error saving last location", "error", err)
		return fmt.Errorf("failed to save last location: %w", err)
	}

	s.logger.DebugContext(ctx, "Saved last location", "location", loc)
	return nil
}

func (s *sqlxStore) LoadLastLocation(ctx context.Context) (*geo.Location, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var row LastLocation
	query := `SELECT id, latitude, longitude, updated_at FROM last_location WHERE id = 1`
	if err := s.db.GetContext(ctx, &row, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		s.logger.ErrorContext(ctx, "Error loading last location", "error", err)
		return nil, fmt.Errorf("failed to load last location: %w", err)
	}

	return &geo.Location{Latitude: row.Latitude, Longitude: row.Longitude}, nil
}

func (s *sqlxStore) SaveSession(ctx context.Context, session *Session) error {
	if session == nil {
		return errors.New("cannot save nil session")
	}
	if session.UserID == "" {
		return errors.New("session must have a user_id")
	}

	now := time.Now().UTC()
	session.ID = 1
	session.CreatedAt = now
	session.UpdatedAt = now

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction for saving session", "error", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
		}
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions`); err != nil {
		return fmt.Errorf("failed to clear previous session: %w", err)
	}

	query := `
        INSERT INTO sessions (id, user_id, credential, created_at, updated_at)
        VALUES (:id, :user_id, :credential, :created_at, :updated_at);
    `
	if _, err := tx.NamedExecContext(ctx, query, session); err != nil {
		s.logger.ErrorContext(ctx, "Error saving session", "user_id", session.UserID, "error", err)
		return fmt.Errorf("failed to save session for %s: %w", session.UserID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit session: %w", err)
	}

	s.logger.InfoContext(ctx, "Session saved", "user_id", session.UserID)
	return nil
}

func (s *sqlxStore) GetSession(ctx context.Context) (*Session, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var session Session
	query := `SELECT id, user_id, credential, created_at, updated_at FROM sessions WHERE id = 1`
	if err := s.db.GetContext(ctx, &session, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		s.logger.ErrorContext(ctx, "Error loading session", "error", err)
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return &session, nil
}

func (s *sqlxStore) DeleteSession(ctx context.Context) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM sessions`)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error deleting session", "error", err)
		return fmt.Errorf("failed to delete session: %w", err)
	}
	rows, _ := result.RowsAffected()
	s.logger.InfoContext(ctx, "Session deleted", "rows_affected", rows)
	return nil
}

func (s *sqlxStore) SavePushToken(ctx context.Context, token string) error {
	if token == "" {
		return errors.New("push token cannot be empty")
	}

	row := PushToken{ID: 1, Token: token, UpdatedAt: time.Now().UTC()}
	query := `
        INSERT INTO push_tokens (id, token, updated_at)
        VALUES (:id, :token, :updated_at)
        ON CONFLICT(id) DO UPDATE SET
            token = excluded.token,
            updated_at = excluded.updated_at;
    `
	if _, err := s.db.NamedExecContext(ctx, query, row); err != nil {
		s.logger.ErrorContext(ctx, "Error saving push token", "error", err)
		return fmt.Errorf("failed to save push token: %w", err)
	}

	s.logger.InfoContext(ctx, "Push token saved")
	return nil
}

func (s *sqlxStore) GetPushToken(ctx context.Context) (*PushToken, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var token PushToken
	query := `SELECT id, token, updated_at FROM push_tokens WHERE id = 1`
	if err := s.db.GetContext(ctx, &token, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		s.logger.ErrorContext(ctx, "Error loading push token", "error", err)
		return nil, fmt.Errorf("failed to load push token: %w", err)
	}
	return &token, nil
}

// RunSQLMaintenance executes VACUUM and refreshes the query planner
// statistics.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context done before starting VACUUM", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")
	start := time.Now()

	// VACUUM cannot run inside a transaction.
	if _, err := s.db.ExecContext(ctx, "VACUUM;"); err != nil {
		s.logger.ErrorContext(ctx, "Failed to execute VACUUM", "error", err)
		return fmt.Errorf("failed to execute VACUUM: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA optimize;"); err != nil {
		s.logger.WarnContext(ctx, "PRAGMA optimize failed", "error", err)
	}

	s.logger.InfoContext(ctx, "Database maintenance completed", "duration", time.Since(start))
	return nil
}
