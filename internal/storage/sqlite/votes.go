package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/auxparty/auxparty/internal/models"
)

// HasVote reports whether an active vote exists for the pair.
func (s *SQLiteStore) HasVote(ctx context.Context, songID, participantID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM votes WHERE song_id = ? AND participant_id = ?",
		songID, participantID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check vote: %w", err)
	}
	return n > 0, nil
}

// CreateVote records an active vote for the pair.
// The (song_id, participant_id) primary key rejects duplicates, backing up
// the check-then-act the party core performs under its serialization lock.
func (s *SQLiteStore) CreateVote(ctx context.Context, vote *models.Vote) error {
	if vote.CreatedAt == 0 {
		vote.CreatedAt = time.Now().Unix()
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO votes (song_id, participant_id, created_at) VALUES (?, ?, ?)",
		vote.SongID, vote.ParticipantID, vote.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert vote: %w", err)
	}
	return nil
}

// DeleteVote removes the active vote for the pair.
func (s *SQLiteStore) DeleteVote(ctx context.Context, songID, participantID string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM votes WHERE song_id = ? AND participant_id = ?",
		songID, participantID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete vote: %w", err)
	}
	return nil
}

// CountVotes returns the number of active votes for a song.
func (s *SQLiteStore) CountVotes(ctx context.Context, songID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM votes WHERE song_id = ?", songID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count votes: %w", err)
	}
	return n, nil
}

// ListVoters returns the participant IDs with an active vote for a song,
// ordered by vote time.
func (s *SQLiteStore) ListVoters(ctx context.Context, songID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT participant_id FROM votes WHERE song_id = ? ORDER BY created_at, participant_id",
		songID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get voters: %w", err)
	}
	defer rows.Close()

	var voters []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan voter: %w", err)
		}
		voters = append(voters, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate voters: %w", err)
	}
	return voters, nil
}
