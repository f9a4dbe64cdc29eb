package models

// Participant represents a named member of a party.
type Participant struct {
	// ID is the unique identifier for the participant (UUID format).
	ID string `json:"id"`

	// PartyID references the owning party.
	PartyID string `json:"partyId"`

	// Name is the display name, unique within the party (case-sensitive).
	// Names are never released: there is no leave operation.
	Name string `json:"name"`

	// IsHost marks the single host participant. Assigned at creation,
	// never reassigned.
	IsHost bool `json:"isHost"`

	// JoinedAt is the Unix timestamp when the participant joined.
	JoinedAt int64 `json:"joinedAt"`
}
