package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/auxparty/auxparty/internal/models"
	"github.com/auxparty/auxparty/internal/storage"
)

const songColumns = "id, party_id, added_by, title, artist, media_url, media_id, position, created_at"

// CreateSong persists a new song with its assigned queue position.
func (s *SQLiteStore) CreateSong(ctx context.Context, song *models.Song) error {
	if song.ID == "" {
		song.ID = uuid.New().String()
	}
	if song.CreatedAt == 0 {
		song.CreatedAt = time.Now().Unix()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO songs (`+songColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		song.ID, song.PartyID, song.AddedBy, song.Title, song.Artist,
		song.MediaURL, song.MediaID, song.Position, song.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert song: %w", err)
	}
	return nil
}

// GetSong retrieves a song by ID.
func (s *SQLiteStore) GetSong(ctx context.Context, id string) (*models.Song, error) {
	song := &models.Song{}
	err := s.db.QueryRowContext(ctx,
		`SELECT `+songColumns+` FROM songs WHERE id = ?`, id,
	).Scan(&song.ID, &song.PartyID, &song.AddedBy, &song.Title, &song.Artist,
		&song.MediaURL, &song.MediaID, &song.Position, &song.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("song %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get song: %w", err)
	}
	return song, nil
}

// ListSongs returns a party's songs ordered by queue position.
func (s *SQLiteStore) ListSongs(ctx context.Context, partyID string) ([]models.Song, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+songColumns+` FROM songs WHERE party_id = ? ORDER BY position`,
		partyID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get songs: %w", err)
	}
	defer rows.Close()

	var songs []models.Song
	for rows.Next() {
		var song models.Song
		if err := rows.Scan(&song.ID, &song.PartyID, &song.AddedBy, &song.Title,
			&song.Artist, &song.MediaURL, &song.MediaID, &song.Position, &song.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan song: %w", err)
		}
		songs = append(songs, song)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate songs: %w", err)
	}
	return songs, nil
}

// CountSongs returns the number of songs queued in a party.
func (s *SQLiteStore) CountSongs(ctx context.Context, partyID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM songs WHERE party_id = ?", partyID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count songs: %w", err)
	}
	return n, nil
}
