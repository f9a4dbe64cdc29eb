package models

import "github.com/auxparty/auxparty/internal/playback"

// Party statuses. ENDED is terminal.
const (
	PartyActive = "ACTIVE"
	PartyEnded  = "ENDED"
)

// Party represents one shared listening session.
type Party struct {
	// ID is the unique identifier for the party (UUID format).
	ID string `json:"id"`

	// Code is the short join code, stored upper-case and unique.
	// Lookups compare case-insensitively by upper-casing input.
	Code string `json:"code"`

	// Name is the display name of the party.
	Name string `json:"name"`

	// HostID references the single host participant.
	// Empty only transiently, until the host row is committed alongside the party.
	HostID string `json:"hostId"`

	// Capacity is the maximum queue length. Zero means unlimited.
	Capacity int `json:"capacity"`

	// TimeBoxMins is an optional session length hint. It is stored and echoed
	// back to clients but never enforced.
	TimeBoxMins int `json:"timeBoxMins"`

	// Status is PartyActive or PartyEnded.
	Status string `json:"status"`

	// CurrentSongID is the host-selected current song, or empty for none.
	// When set, it always references a song of this party.
	CurrentSongID string `json:"currentSongId"`

	// Playback is the shared playback clock state.
	Playback playback.State `json:"playback"`

	// CreatedAt is the Unix timestamp when the party was created.
	CreatedAt int64 `json:"createdAt"`

	// EndedAt is the Unix timestamp when the party ended, zero while active.
	EndedAt int64 `json:"endedAt,omitempty"`
}

// Ended reports whether the party has reached its terminal state.
func (p *Party) Ended() bool {
	return p.Status == PartyEnded
}
