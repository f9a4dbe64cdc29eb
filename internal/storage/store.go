// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/auxparty/auxparty/internal/models"
)

// ErrNotFound is returned by lookups when no matching row exists.
// Callers distinguish it from storage failures with errors.Is.
var ErrNotFound = errors.New("not found")

// Store defines the interface for party storage operations.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the party core. The core serializes all writes for one
// party, so implementations only need per-call atomicity: the two multi-row
// writes (CreateParty, EndParty) must be transactional.
type Store interface {
	// CreateParty persists a new party together with its host participant.
	// Either both rows are committed or neither. IDs and timestamps are
	// populated by the store when unset.
	CreateParty(ctx context.Context, party *models.Party, host *models.Participant) error

	// GetParty retrieves a party by its join code (stored upper-case).
	// Returns an error if no party has that code.
	GetParty(ctx context.Context, code string) (*models.Party, error)

	// CodeExists reports whether a join code is already allocated.
	CodeExists(ctx context.Context, code string) (bool, error)

	// UpdateParty persists the mutable party fields (current song, playback
	// clock, status, end time).
	UpdateParty(ctx context.Context, party *models.Party) error

	// EndParty atomically flips the party to its terminal state and persists
	// the final standings.
	EndParty(ctx context.Context, party *models.Party, standings []models.Standing) error

	// ListStandings returns the persisted final standings ordered by rank.
	ListStandings(ctx context.Context, partyID string) ([]models.Standing, error)

	// CreateParticipant persists a new participant.
	CreateParticipant(ctx context.Context, p *models.Participant) error

	// GetParticipant retrieves a participant by ID.
	GetParticipant(ctx context.Context, id string) (*models.Participant, error)

	// ListParticipants returns a party's participants ordered by join time.
	ListParticipants(ctx context.Context, partyID string) ([]models.Participant, error)

	// CreateSong persists a new song with its assigned queue position.
	CreateSong(ctx context.Context, song *models.Song) error

	// GetSong retrieves a song by ID.
	GetSong(ctx context.Context, id string) (*models.Song, error)

	// ListSongs returns a party's songs ordered by queue position.
	ListSongs(ctx context.Context, partyID string) ([]models.Song, error)

	// CountSongs returns the number of songs queued in a party.
	CountSongs(ctx context.Context, partyID string) (int, error)

	// HasVote reports whether an active vote exists for the pair.
	HasVote(ctx context.Context, songID, participantID string) (bool, error)

	// CreateVote records an active vote for the pair.
	CreateVote(ctx context.Context, vote *models.Vote) error

	// DeleteVote removes the active vote for the pair.
	DeleteVote(ctx context.Context, songID, participantID string) error

	// CountVotes returns the number of active votes for a song.
	CountVotes(ctx context.Context, songID string) (int, error)

	// ListVoters returns the participant IDs with an active vote for a song,
	// ordered by vote time.
	ListVoters(ctx context.Context, songID string) ([]string, error)

	// Close releases any resources held by the store.
	Close() error
}
