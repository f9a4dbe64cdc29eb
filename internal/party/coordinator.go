// Package party implements the session core: party lifecycle, the song
// queue, vote toggling, the shared playback clock, and the final ranking.
//
// Every mutation of one party is serialized through that party's handle in
// the registry, so interleaved calls can never produce duplicate queue
// positions, duplicate votes, or standings over a half-applied vote set.
// After a mutation commits, the updated snapshot and the operation-specific
// event are published in commit order.
package party

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/auxparty/auxparty/internal/broadcast"
	"github.com/auxparty/auxparty/internal/models"
	"github.com/auxparty/auxparty/internal/playback"
	"github.com/auxparty/auxparty/internal/ranking"
	"github.com/auxparty/auxparty/internal/storage"
)

// Playback actions accepted by SetPlayback.
const (
	ActionPlay  = "PLAY"
	ActionPause = "PAUSE"
)

// Coordinator orchestrates all party operations over the storage backend
// and publishes updates through the broadcast bus.
type Coordinator struct {
	store storage.Store
	reg   *registry
	now   func() time.Time
}

// New creates a Coordinator. All events are published to bus, ordered per
// party code.
func New(store storage.Store, bus broadcast.Broadcaster) *Coordinator {
	return &Coordinator{
		store: store,
		reg:   newRegistry(bus),
		now:   time.Now,
	}
}

// CreatePartyInput are the fields for CreateParty.
type CreatePartyInput struct {
	Name        string
	HostName    string
	Capacity    int
	TimeBoxMins int
}

// CreateParty allocates a unique join code, creates the party in its initial
// state (active, no current song, paused clock) and its host participant
// atomically, and publishes the first snapshot.
func (c *Coordinator) CreateParty(ctx context.Context, in CreatePartyInput) (*models.Party, *models.Participant, error) {
	if in.Name == "" || in.HostName == "" {
		return nil, nil, fmt.Errorf("%w: name and hostName are required", ErrValidation)
	}
	if in.Capacity < 0 || in.TimeBoxMins < 0 {
		return nil, nil, fmt.Errorf("%w: capacity and timeBoxMins must not be negative", ErrValidation)
	}

	// Code allocation is serialized so two concurrent creates cannot both
	// pass the uniqueness check with the same candidate.
	c.reg.allocMu.Lock()
	defer c.reg.allocMu.Unlock()

	code, err := c.allocateCode(ctx)
	if err != nil {
		return nil, nil, err
	}

	party := &models.Party{
		Code:        code,
		Name:        in.Name,
		Capacity:    in.Capacity,
		TimeBoxMins: in.TimeBoxMins,
		Status:      models.PartyActive,
		Playback:    playback.Paused(),
	}
	host := &models.Participant{Name: in.HostName, IsHost: true}

	if err := c.store.CreateParty(ctx, party, host); err != nil {
		slog.Error("CreateParty failed", "code", code, "error", err)
		return nil, nil, fmt.Errorf("create party: %w", err)
	}

	h := c.reg.handle(code)
	h.mu.Lock()
	defer h.mu.Unlock()
	c.publishSnapshot(ctx, h, party)

	slog.Info("party created", "code", code, "party_id", party.ID, "host", host.Name)
	return party, host, nil
}

// allocateCode generates candidates until one is free, up to a fixed budget.
func (c *Coordinator) allocateCode(ctx context.Context) (string, error) {
	for range codeAttempts {
		code := randomCode()
		exists, err := c.store.CodeExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check code: %w", err)
		}
		if !exists {
			return code, nil
		}
	}
	slog.Error("code generation exhausted", "attempts", codeAttempts)
	return "", ErrCodeExhausted
}

// JoinParty adds a non-host participant to an active party. Display names
// are unique per party (case-sensitive).
func (c *Coordinator) JoinParty(ctx context.Context, code, name string) (*Snapshot, *models.Participant, error) {
	code = NormalizeCode(code)
	if name == "" {
		return nil, nil, fmt.Errorf("%w: name is required", ErrValidation)
	}

	h, err := c.partyHandle(ctx, code)
	if err != nil {
		return nil, nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	party, err := c.activeParty(ctx, code)
	if err != nil {
		return nil, nil, err
	}

	participants, err := c.store.ListParticipants(ctx, party.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("list participants: %w", err)
	}
	for _, p := range participants {
		if p.Name == name {
			return nil, nil, fmt.Errorf("%w: %q", ErrNameTaken, name)
		}
	}

	participant := &models.Participant{PartyID: party.ID, Name: name}
	if err := c.store.CreateParticipant(ctx, participant); err != nil {
		slog.Error("JoinParty failed", "code", code, "error", err)
		return nil, nil, fmt.Errorf("create participant: %w", err)
	}

	// The snapshot is part of the join response, so unlike the other
	// operations a failure to assemble it here is a failure of the call.
	snap, err := c.snapshot(ctx, party)
	if err != nil {
		slog.Error("JoinParty snapshot failed", "code", code, "error", err)
		return nil, nil, fmt.Errorf("assemble snapshot: %w", err)
	}
	h.enqueue(snapshotEvent(code, snap))

	slog.Info("participant joined", "code", code, "participant_id", participant.ID, "name", name)
	return snap, participant, nil
}

// Snapshot returns a point-in-time view of the party. It takes the party's
// lock shared, so concurrent reads proceed together but never observe a
// torn write.
func (c *Coordinator) Snapshot(ctx context.Context, code string) (*Snapshot, error) {
	code = NormalizeCode(code)
	h, err := c.partyHandle(ctx, code)
	if err != nil {
		return nil, err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()

	party, err := c.loadParty(ctx, code)
	if err != nil {
		return nil, err
	}
	return c.snapshot(ctx, party)
}

// AddSongInput are the fields for AddSong.
type AddSongInput struct {
	Title    string
	Artist   string
	MediaURL string
	MediaID  string
}

// AddSong appends a song to the party's queue. Positions are assigned
// contiguously from 1 under the party lock, so concurrent adds can never
// collide, and the capacity check happens before the position is taken.
func (c *Coordinator) AddSong(ctx context.Context, code, participantID string, in AddSongInput) (*models.Song, error) {
	code = NormalizeCode(code)
	if in.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}

	h, err := c.partyHandle(ctx, code)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	party, err := c.activeParty(ctx, code)
	if err != nil {
		return nil, err
	}
	participant, err := c.member(ctx, party, participantID)
	if err != nil {
		return nil, err
	}

	count, err := c.store.CountSongs(ctx, party.ID)
	if err != nil {
		return nil, fmt.Errorf("count songs: %w", err)
	}
	if party.Capacity > 0 && count >= party.Capacity {
		return nil, fmt.Errorf("%w: capacity %d reached", ErrQueueFull, party.Capacity)
	}

	song := &models.Song{
		PartyID:  party.ID,
		AddedBy:  participant.ID,
		Title:    in.Title,
		Artist:   in.Artist,
		MediaURL: in.MediaURL,
		MediaID:  in.MediaID,
		Position: count + 1,
	}
	if err := c.store.CreateSong(ctx, song); err != nil {
		slog.Error("AddSong failed", "code", code, "error", err)
		return nil, fmt.Errorf("create song: %w", err)
	}

	c.publishSnapshot(ctx, h, party)
	h.enqueue(queueEvent(code, song.ID))

	slog.Info("song queued", "code", code, "song_id", song.ID, "position", song.Position, "title", song.Title)
	return song, nil
}

// ToggleVote flips the caller's vote on a song: absent becomes active,
// active is removed. The check-then-act runs under the party lock, so two
// concurrent toggles for the same pair serialize to one net insert or
// delete.
func (c *Coordinator) ToggleVote(ctx context.Context, code, participantID, songID string) (*VoteResult, error) {
	code = NormalizeCode(code)

	h, err := c.partyHandle(ctx, code)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	party, err := c.activeParty(ctx, code)
	if err != nil {
		return nil, err
	}
	participant, err := c.member(ctx, party, participantID)
	if err != nil {
		return nil, err
	}
	song, err := c.partySong(ctx, party, songID)
	if err != nil {
		return nil, err
	}

	voted, err := c.store.HasVote(ctx, song.ID, participant.ID)
	if err != nil {
		return nil, fmt.Errorf("check vote: %w", err)
	}
	if voted {
		err = c.store.DeleteVote(ctx, song.ID, participant.ID)
	} else {
		err = c.store.CreateVote(ctx, &models.Vote{SongID: song.ID, ParticipantID: participant.ID})
	}
	if err != nil {
		slog.Error("ToggleVote failed", "code", code, "song_id", songID, "error", err)
		return nil, fmt.Errorf("toggle vote: %w", err)
	}

	votes, err := c.store.CountVotes(ctx, song.ID)
	if err != nil {
		return nil, fmt.Errorf("count votes: %w", err)
	}

	c.publishSnapshot(ctx, h, party)
	h.enqueue(votesEvent(code, song.ID))

	slog.Info("vote toggled", "code", code, "song_id", song.ID, "voted", !voted, "votes", votes)
	return &VoteResult{SongID: song.ID, Votes: votes, Voted: !voted}, nil
}

// SetCurrentSong points the party at a new current song. Host only.
// Switching always resets the clock to paused at offset zero: a new song
// starts from silence.
func (c *Coordinator) SetCurrentSong(ctx context.Context, code, participantID, songID string) (*models.Party, error) {
	code = NormalizeCode(code)

	h, err := c.partyHandle(ctx, code)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	party, err := c.activeParty(ctx, code)
	if err != nil {
		return nil, err
	}
	if _, err := c.host(ctx, party, participantID); err != nil {
		return nil, err
	}
	song, err := c.partySong(ctx, party, songID)
	if err != nil {
		return nil, err
	}

	party.CurrentSongID = song.ID
	party.Playback = playback.Paused()
	if err := c.store.UpdateParty(ctx, party); err != nil {
		slog.Error("SetCurrentSong failed", "code", code, "error", err)
		return nil, fmt.Errorf("update party: %w", err)
	}

	c.publishSnapshot(ctx, h, party)
	h.enqueue(stateEvent(code, party))

	slog.Info("current song set", "code", code, "song_id", song.ID)
	return party, nil
}

// SetPlayback applies a PLAY or PAUSE action to the shared clock. Host only.
// With no explicit offset the clock continues from its derived position.
func (c *Coordinator) SetPlayback(ctx context.Context, code, participantID, action string, offsetSec *float64) (playback.State, error) {
	code = NormalizeCode(code)

	h, err := c.partyHandle(ctx, code)
	if err != nil {
		return playback.State{}, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	party, err := c.activeParty(ctx, code)
	if err != nil {
		return playback.State{}, err
	}
	if _, err := c.host(ctx, party, participantID); err != nil {
		return playback.State{}, err
	}

	switch action {
	case ActionPlay:
		party.Playback = party.Playback.Play(offsetSec, c.now())
	case ActionPause:
		party.Playback = party.Playback.Pause(offsetSec, c.now())
	default:
		return playback.State{}, fmt.Errorf("%w: action must be PLAY or PAUSE", ErrValidation)
	}

	if err := c.store.UpdateParty(ctx, party); err != nil {
		slog.Error("SetPlayback failed", "code", code, "error", err)
		return playback.State{}, fmt.Errorf("update party: %w", err)
	}

	c.publishSnapshot(ctx, h, party)
	h.enqueue(playbackEvent(code, party.Playback))

	slog.Info("playback set", "code", code, "action", action, "offset", party.Playback.OffsetSec)
	return party.Playback, nil
}

// EndParty computes the final standings exactly once, persists them together
// with the terminal status flip, and publishes the result. Host only. A
// second call fails with ErrPartyEnded and never recomputes or re-broadcasts.
func (c *Coordinator) EndParty(ctx context.Context, code, participantID string) (*EndResult, error) {
	code = NormalizeCode(code)

	h, err := c.partyHandle(ctx, code)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	party, err := c.activeParty(ctx, code)
	if err != nil {
		return nil, err
	}
	if _, err := c.host(ctx, party, participantID); err != nil {
		return nil, err
	}

	songs, err := c.store.ListSongs(ctx, party.ID)
	if err != nil {
		return nil, fmt.Errorf("list songs: %w", err)
	}
	entries := make([]ranking.Entry, len(songs))
	for i, song := range songs {
		votes, err := c.store.CountVotes(ctx, song.ID)
		if err != nil {
			return nil, fmt.Errorf("count votes: %w", err)
		}
		entries[i] = ranking.Entry{SongID: song.ID, Position: song.Position, Votes: votes}
	}

	ranked := ranking.Rank(entries)
	standings := make([]models.Standing, len(ranked))
	for i, st := range ranked {
		standings[i] = models.Standing{
			PartyID: party.ID,
			SongID:  st.SongID,
			Rank:    st.Rank,
			Votes:   st.Votes,
		}
	}

	party.Status = models.PartyEnded
	party.EndedAt = c.now().Unix()
	// Freeze the clock at its final position; an ended party is immutable.
	party.Playback = party.Playback.Pause(nil, c.now())

	if err := c.store.EndParty(ctx, party, standings); err != nil {
		slog.Error("EndParty failed", "code", code, "error", err)
		return nil, fmt.Errorf("end party: %w", err)
	}

	result := &EndResult{Standings: standings}
	if len(standings) > 0 {
		result.Winner = &standings[0]
	}

	c.publishSnapshot(ctx, h, party)
	h.enqueue(endedEvent(code, result))
	h.enqueue(stateEvent(code, party))

	slog.Info("party ended", "code", code, "songs", len(standings))
	return result, nil
}

// partyHandle returns the serialization handle for a code. For a code the
// registry has never seen it verifies a party exists before allocating, so
// probing random codes cannot grow the handle map or the drain goroutines.
func (c *Coordinator) partyHandle(ctx context.Context, code string) (*handle, error) {
	if h, ok := c.reg.lookup(code); ok {
		return h, nil
	}
	if _, err := c.loadParty(ctx, code); err != nil {
		return nil, err
	}
	return c.reg.handle(code), nil
}

// loadParty maps the storage not-found to the typed error.
func (c *Coordinator) loadParty(ctx context.Context, code string) (*models.Party, error) {
	party, err := c.store.GetParty(ctx, code)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrPartyNotFound, code)
	}
	if err != nil {
		return nil, fmt.Errorf("load party: %w", err)
	}
	return party, nil
}

// activeParty loads a party and rejects it if it has ended.
func (c *Coordinator) activeParty(ctx context.Context, code string) (*models.Party, error) {
	party, err := c.loadParty(ctx, code)
	if err != nil {
		return nil, err
	}
	if party.Ended() {
		return nil, fmt.Errorf("%w: %s", ErrPartyEnded, code)
	}
	return party, nil
}

// member resolves a participant and verifies they belong to the party.
func (c *Coordinator) member(ctx context.Context, party *models.Party, participantID string) (*models.Participant, error) {
	p, err := c.store.GetParticipant(ctx, participantID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotMember
	}
	if err != nil {
		return nil, fmt.Errorf("load participant: %w", err)
	}
	if p.PartyID != party.ID {
		return nil, ErrNotMember
	}
	return p, nil
}

// host verifies the participant is the party's host.
func (c *Coordinator) host(ctx context.Context, party *models.Party, participantID string) (*models.Participant, error) {
	p, err := c.member(ctx, party, participantID)
	if err != nil {
		return nil, err
	}
	if p.ID != party.HostID {
		return nil, ErrNotHost
	}
	return p, nil
}

// partySong resolves a song and verifies it belongs to the party.
func (c *Coordinator) partySong(ctx context.Context, party *models.Party, songID string) (*models.Song, error) {
	song, err := c.store.GetSong(ctx, songID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrSongNotFound, songID)
	}
	if err != nil {
		return nil, fmt.Errorf("load song: %w", err)
	}
	if song.PartyID != party.ID {
		return nil, fmt.Errorf("%w: %s", ErrSongNotFound, songID)
	}
	return song, nil
}

// publishSnapshot assembles and enqueues the post-commit snapshot. A failure
// to assemble it only costs the broadcast, never the committed operation.
func (c *Coordinator) publishSnapshot(ctx context.Context, h *handle, party *models.Party) {
	snap, err := c.snapshot(ctx, party)
	if err != nil {
		slog.Error("snapshot after commit failed", "code", party.Code, "error", err)
		return
	}
	h.enqueue(snapshotEvent(party.Code, snap))
}
