package party

import (
	"github.com/auxparty/auxparty/internal/broadcast"
	"github.com/auxparty/auxparty/internal/models"
	"github.com/auxparty/auxparty/internal/playback"
)

// Broadcast event types. After every committed mutation the coordinator
// publishes a full snapshot followed by the operation-specific event, in
// commit order per party.
const (
	EventSnapshot        = "snapshot"
	EventEnded           = "ended"
	EventPlaybackUpdated = "playback-updated"
	EventStateUpdated    = "state-updated"
	EventQueueUpdated    = "queue-updated"
	EventVotesUpdated    = "votes-updated"
)

// StateUpdate is the payload of a state-updated event.
type StateUpdate struct {
	CurrentSongID string `json:"currentSongId"`
	Status        string `json:"status"`
}

// SongRef is the payload of queue-updated and votes-updated hint events,
// carrying only the changed identifier.
type SongRef struct {
	SongID string `json:"songId"`
}

// VoteResult is the outcome of a vote toggle.
type VoteResult struct {
	SongID string `json:"songId"`
	Votes  int    `json:"votes"`
	Voted  bool   `json:"voted"`
}

// EndResult is the payload of an ended event: the terminal standings and the
// winner (nil when the party had no songs).
type EndResult struct {
	Winner    *models.Standing  `json:"winner"`
	Standings []models.Standing `json:"standings"`
}

func snapshotEvent(code string, snap *Snapshot) broadcast.Event {
	return broadcast.Event{Type: EventSnapshot, Code: code, Payload: snap}
}

func endedEvent(code string, res *EndResult) broadcast.Event {
	return broadcast.Event{Type: EventEnded, Code: code, Payload: res}
}

func playbackEvent(code string, st playback.State) broadcast.Event {
	return broadcast.Event{Type: EventPlaybackUpdated, Code: code, Payload: st}
}

func stateEvent(code string, p *models.Party) broadcast.Event {
	return broadcast.Event{
		Type: EventStateUpdated,
		Code: code,
		Payload: StateUpdate{
			CurrentSongID: p.CurrentSongID,
			Status:        p.Status,
		},
	}
}

func queueEvent(code, songID string) broadcast.Event {
	return broadcast.Event{Type: EventQueueUpdated, Code: code, Payload: SongRef{SongID: songID}}
}

func votesEvent(code, songID string) broadcast.Event {
	return broadcast.Event{Type: EventVotesUpdated, Code: code, Payload: SongRef{SongID: songID}}
}
