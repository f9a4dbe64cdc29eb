package models

// Song represents one queued item in a party.
// Songs are never removed or reordered after creation.
type Song struct {
	// ID is the unique identifier for the song (UUID format).
	ID string `json:"id"`

	// PartyID references the owning party.
	PartyID string `json:"partyId"`

	// AddedBy references the participant who queued the song.
	AddedBy string `json:"addedBy"`

	// Title and Artist describe the track.
	Title  string `json:"title"`
	Artist string `json:"artist"`

	// MediaURL and MediaID optionally locate the playable media.
	// Both may be empty; the core never dereferences them.
	MediaURL string `json:"mediaUrl,omitempty"`
	MediaID  string `json:"mediaId,omitempty"`

	// Position is the 1-based queue position. Positions within a party are
	// contiguous, unique, and strictly increasing by insertion order.
	Position int `json:"position"`

	// CreatedAt is the Unix timestamp when the song was queued.
	CreatedAt int64 `json:"createdAt"`
}
