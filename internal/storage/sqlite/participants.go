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

// CreateParticipant persists a new non-host participant.
func (s *SQLiteStore) CreateParticipant(ctx context.Context, p *models.Participant) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.JoinedAt == 0 {
		p.JoinedAt = time.Now().Unix()
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO participants (id, party_id, name, is_host, joined_at) VALUES (?, ?, ?, ?, ?)",
		p.ID, p.PartyID, p.Name, boolToInt(p.IsHost), p.JoinedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert participant: %w", err)
	}
	return nil
}

// GetParticipant retrieves a participant by ID.
func (s *SQLiteStore) GetParticipant(ctx context.Context, id string) (*models.Participant, error) {
	p := &models.Participant{}
	var isHost int
	err := s.db.QueryRowContext(ctx,
		"SELECT id, party_id, name, is_host, joined_at FROM participants WHERE id = ?",
		id,
	).Scan(&p.ID, &p.PartyID, &p.Name, &isHost, &p.JoinedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("participant %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}
	p.IsHost = isHost != 0
	return p, nil
}

// ListParticipants returns a party's participants ordered by join time.
func (s *SQLiteStore) ListParticipants(ctx context.Context, partyID string) ([]models.Participant, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, party_id, name, is_host, joined_at FROM participants WHERE party_id = ? ORDER BY joined_at, id",
		partyID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}
	defer rows.Close()

	var participants []models.Participant
	for rows.Next() {
		var p models.Participant
		var isHost int
		if err := rows.Scan(&p.ID, &p.PartyID, &p.Name, &isHost, &p.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		p.IsHost = isHost != 0
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participants: %w", err)
	}
	return participants, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
