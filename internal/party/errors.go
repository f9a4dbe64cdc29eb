package party

import "errors"

// Typed failures surfaced by the coordinator. The API layer maps these to
// status codes with errors.Is; anything else is an internal failure.
var (
	// ErrValidation covers missing or malformed required fields.
	ErrValidation = errors.New("invalid request")

	// ErrPartyNotFound means no party has the given code.
	ErrPartyNotFound = errors.New("party not found")

	// ErrSongNotFound means the song does not exist in the given party.
	ErrSongNotFound = errors.New("song not found")

	// ErrPartyEnded rejects any mutation of a party in its terminal state,
	// including a second EndParty.
	ErrPartyEnded = errors.New("party already ended")

	// ErrNameTaken rejects a join with a display name already used in the
	// party. Names are case-sensitive and never released.
	ErrNameTaken = errors.New("display name already taken")

	// ErrQueueFull rejects an add once the party's capacity is reached.
	ErrQueueFull = errors.New("queue is full")

	// ErrNotMember rejects a caller who is not a participant of the party.
	ErrNotMember = errors.New("not a member of this party")

	// ErrNotHost rejects a host-only action from a non-host participant.
	ErrNotHost = errors.New("only the host can do this")

	// ErrCodeExhausted means code generation used up its retry budget
	// without finding a free code. Fatal; not retried.
	ErrCodeExhausted = errors.New("could not allocate a unique party code")
)
