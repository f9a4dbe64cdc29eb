package models

// Vote represents an active vote by a participant for a song.
// At most one row exists per (song, participant) pair; toggling a vote
// creates or deletes the row. Vote counts and voter lists are derived,
// never stored.
type Vote struct {
	// SongID references the voted song.
	SongID string `json:"songId"`

	// ParticipantID references the voter.
	ParticipantID string `json:"participantId"`

	// CreatedAt is the Unix timestamp when the vote was cast.
	CreatedAt int64 `json:"createdAt"`
}

// Standing is one row of the final ranking, computed exactly once when a
// party ends and persisted so later reads never recompute it.
type Standing struct {
	// PartyID references the ended party.
	PartyID string `json:"partyId"`

	// SongID references the ranked song.
	SongID string `json:"songId"`

	// Rank is the 1-based final position.
	Rank int `json:"rank"`

	// Votes is the vote count at the moment the party ended.
	Votes int `json:"votes"`
}
