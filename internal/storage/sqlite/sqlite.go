// Package sqlite provides a SQLite-backed implementation of the storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/auxparty/auxparty/internal/models"
	"github.com/auxparty/auxparty/internal/playback"
	"github.com/auxparty/auxparty/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// SQLiteStore implements storage.Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Open database with pure Go driver
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// Run migrations
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const partyColumns = `id, code, name, host_id, capacity, time_box_mins, status,
	current_song_id, playback_status, playback_started_at, playback_offset,
	created_at, ended_at`

// CreateParty persists a new party and its host participant in one transaction.
func (s *SQLiteStore) CreateParty(ctx context.Context, party *models.Party, host *models.Participant) error {
	// Generate IDs and timestamps if not set
	if party.ID == "" {
		party.ID = uuid.New().String()
	}
	if party.CreatedAt == 0 {
		party.CreatedAt = time.Now().Unix()
	}
	if host.ID == "" {
		host.ID = uuid.New().String()
	}
	host.PartyID = party.ID
	if host.JoinedAt == 0 {
		host.JoinedAt = time.Now().Unix()
	}
	party.HostID = host.ID

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	startedAt, offset := packPlayback(party.Playback)
	_, err = tx.ExecContext(ctx,
		`INSERT INTO parties (`+partyColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		party.ID, party.Code, party.Name, party.HostID, party.Capacity,
		party.TimeBoxMins, party.Status, party.CurrentSongID,
		string(party.Playback.Status), startedAt, offset,
		party.CreatedAt, party.EndedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert party: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO participants (id, party_id, name, is_host, joined_at) VALUES (?, ?, ?, 1, ?)",
		host.ID, host.PartyID, host.Name, host.JoinedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert host participant: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetParty retrieves a party by its join code.
func (s *SQLiteStore) GetParty(ctx context.Context, code string) (*models.Party, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+partyColumns+` FROM parties WHERE code = ?`, code)
	party, err := scanParty(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("party %s: %w", code, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get party: %w", err)
	}
	return party, nil
}

// CodeExists reports whether a join code is already allocated.
func (s *SQLiteStore) CodeExists(ctx context.Context, code string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM parties WHERE code = ?", code,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check code: %w", err)
	}
	return n > 0, nil
}

// UpdateParty persists the mutable party fields.
func (s *SQLiteStore) UpdateParty(ctx context.Context, party *models.Party) error {
	startedAt, offset := packPlayback(party.Playback)
	res, err := s.db.ExecContext(ctx,
		`UPDATE parties SET status = ?, current_song_id = ?, playback_status = ?,
		 playback_started_at = ?, playback_offset = ?, ended_at = ?
		 WHERE id = ?`,
		party.Status, party.CurrentSongID, string(party.Playback.Status),
		startedAt, offset, party.EndedAt, party.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update party: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("party %s: %w", party.ID, storage.ErrNotFound)
	}
	return nil
}

// EndParty flips the party to its terminal state and persists the final
// standings in one transaction.
func (s *SQLiteStore) EndParty(ctx context.Context, party *models.Party, standings []models.Standing) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	startedAt, offset := packPlayback(party.Playback)
	_, err = tx.ExecContext(ctx,
		`UPDATE parties SET status = ?, current_song_id = ?, playback_status = ?,
		 playback_started_at = ?, playback_offset = ?, ended_at = ?
		 WHERE id = ?`,
		party.Status, party.CurrentSongID, string(party.Playback.Status),
		startedAt, offset, party.EndedAt, party.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update party: %w", err)
	}

	for _, st := range standings {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO standings (party_id, song_id, rank, votes) VALUES (?, ?, ?, ?)",
			st.PartyID, st.SongID, st.Rank, st.Votes,
		)
		if err != nil {
			return fmt.Errorf("failed to insert standing: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ListStandings returns the persisted final standings ordered by rank.
func (s *SQLiteStore) ListStandings(ctx context.Context, partyID string) ([]models.Standing, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT party_id, song_id, rank, votes FROM standings WHERE party_id = ? ORDER BY rank",
		partyID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get standings: %w", err)
	}
	defer rows.Close()

	var standings []models.Standing
	for rows.Next() {
		var st models.Standing
		if err := rows.Scan(&st.PartyID, &st.SongID, &st.Rank, &st.Votes); err != nil {
			return nil, fmt.Errorf("failed to scan standing: %w", err)
		}
		standings = append(standings, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate standings: %w", err)
	}
	return standings, nil
}

// scanner matches both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanParty(row scanner) (*models.Party, error) {
	party := &models.Party{}
	var pbStatus string
	var pbStartedAt int64
	err := row.Scan(
		&party.ID, &party.Code, &party.Name, &party.HostID, &party.Capacity,
		&party.TimeBoxMins, &party.Status, &party.CurrentSongID,
		&pbStatus, &pbStartedAt, &party.Playback.OffsetSec,
		&party.CreatedAt, &party.EndedAt,
	)
	if err != nil {
		return nil, err
	}
	party.Playback.Status = playback.Status(pbStatus)
	if pbStartedAt != 0 {
		party.Playback.StartedAt = time.UnixMilli(pbStartedAt)
	}
	return party, nil
}

// packPlayback flattens the clock for storage. StartedAt keeps millisecond
// precision; zero means "not playing".
func packPlayback(st playback.State) (startedAt int64, offset float64) {
	if !st.StartedAt.IsZero() {
		startedAt = st.StartedAt.UnixMilli()
	}
	return startedAt, st.OffsetSec
}
