package party

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/auxparty/auxparty/internal/broadcast"
	"github.com/auxparty/auxparty/internal/models"
	"github.com/auxparty/auxparty/internal/playback"
	"github.com/auxparty/auxparty/internal/storage"
	"github.com/auxparty/auxparty/internal/storage/sqlite"
)

// recordingBus captures published events for assertions.
type recordingBus struct {
	mu     sync.Mutex
	events []broadcast.Event
}

func (b *recordingBus) Publish(code string, ev broadcast.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, ev)
}

func (b *recordingBus) snapshot() []broadcast.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]broadcast.Event, len(b.events))
	copy(out, b.events)
	return out
}

// waitForEvent polls until an event of the given type shows up. Broadcasts
// are drained asynchronously after commit, so assertions have to wait.
func waitForEvent(t *testing.T, bus *recordingBus, evType string) broadcast.Event {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		for _, ev := range bus.snapshot() {
			if ev.Type == evType {
				return ev
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s event", evType)
	return broadcast.Event{}
}

func newTestCoordinator(t *testing.T) (*Coordinator, *recordingBus) {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	bus := &recordingBus{}
	return New(store, bus), bus
}

func createTestParty(t *testing.T, c *Coordinator, in CreatePartyInput) (*models.Party, *models.Participant) {
	t.Helper()
	if in.Name == "" {
		in.Name = "Test Party"
	}
	if in.HostName == "" {
		in.HostName = "Host"
	}
	party, host, err := c.CreateParty(context.Background(), in)
	if err != nil {
		t.Fatalf("CreateParty failed: %v", err)
	}
	return party, host
}

func joinTestParty(t *testing.T, c *Coordinator, code, name string) *models.Participant {
	t.Helper()
	_, p, err := c.JoinParty(context.Background(), code, name)
	if err != nil {
		t.Fatalf("JoinParty(%s) failed: %v", name, err)
	}
	return p
}

func addTestSong(t *testing.T, c *Coordinator, code, participantID, title string) *models.Song {
	t.Helper()
	song, err := c.AddSong(context.Background(), code, participantID, AddSongInput{
		Title:  title,
		Artist: "Artist",
	})
	if err != nil {
		t.Fatalf("AddSong(%s) failed: %v", title, err)
	}
	return song
}

func TestCreateParty(t *testing.T) {
	c, _ := newTestCoordinator(t)

	party, host, err := c.CreateParty(context.Background(), CreatePartyInput{
		Name:     "Birthday Bash",
		HostName: "Alice",
		Capacity: 5,
	})
	if err != nil {
		t.Fatalf("CreateParty failed: %v", err)
	}

	if len(party.Code) != codeLength {
		t.Errorf("code length: expected %d, got %d (%s)", codeLength, len(party.Code), party.Code)
	}
	if party.Status != models.PartyActive {
		t.Errorf("status: expected %s, got %s", models.PartyActive, party.Status)
	}
	if party.CurrentSongID != "" {
		t.Error("expected no current song on a new party")
	}
	if party.Playback.Status != playback.StatusPaused || party.Playback.OffsetSec != 0 {
		t.Errorf("expected paused zero-offset playback, got %+v", party.Playback)
	}
	if !host.IsHost {
		t.Error("expected host flag on host participant")
	}
	if party.HostID != host.ID {
		t.Errorf("host link mismatch: party.HostID=%s host.ID=%s", party.HostID, host.ID)
	}
}

func TestCreateParty_Validation(t *testing.T) {
	c, _ := newTestCoordinator(t)

	_, _, err := c.CreateParty(context.Background(), CreatePartyInput{Name: "No Host"})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}

	_, _, err = c.CreateParty(context.Background(), CreatePartyInput{Name: "X", HostName: "Y", Capacity: -1})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for negative capacity, got %v", err)
	}
}

// collidingStore reports every code as taken, forcing generation to exhaust
// its retry budget.
type collidingStore struct {
	storage.Store
}

func (collidingStore) CodeExists(ctx context.Context, code string) (bool, error) {
	return true, nil
}

func TestCreateParty_CodeExhausted(t *testing.T) {
	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	c := New(collidingStore{Store: store}, &recordingBus{})
	_, _, err = c.CreateParty(context.Background(), CreatePartyInput{Name: "X", HostName: "Y"})
	if !errors.Is(err, ErrCodeExhausted) {
		t.Errorf("expected ErrCodeExhausted, got %v", err)
	}
}

func TestJoinParty(t *testing.T) {
	c, _ := newTestCoordinator(t)
	party, _ := createTestParty(t, c, CreatePartyInput{})

	snap, p, err := c.JoinParty(context.Background(), party.Code, "Bob")
	if err != nil {
		t.Fatalf("JoinParty failed: %v", err)
	}
	if p.IsHost {
		t.Error("joined participant must not be host")
	}
	if len(snap.Participants) != 2 {
		t.Errorf("expected 2 participants in snapshot, got %d", len(snap.Participants))
	}

	// Codes resolve case-insensitively
	if _, _, err := c.JoinParty(context.Background(), strings.ToLower(party.Code), "Carol"); err != nil {
		t.Errorf("join with lowercase code failed: %v", err)
	}
}

// listFailStore serves a bounded number of participant lists and then fails,
// so the snapshot assembly after a committed join can be broken in isolation.
type listFailStore struct {
	storage.Store
	mu    sync.Mutex
	allow int
}

func (s *listFailStore) ListParticipants(ctx context.Context, partyID string) ([]models.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.allow <= 0 {
		return nil, errors.New("participants unavailable")
	}
	s.allow--
	return s.Store.ListParticipants(ctx, partyID)
}

func (s *listFailStore) setAllow(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.allow = n
}

func TestJoinParty_SnapshotFailureIsAnError(t *testing.T) {
	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	stub := &listFailStore{Store: store, allow: 1}
	c := New(stub, &recordingBus{})
	party, _, err := c.CreateParty(context.Background(), CreatePartyInput{Name: "X", HostName: "Alice"})
	if err != nil {
		t.Fatalf("CreateParty failed: %v", err)
	}

	// One list for the name-conflict scan; the snapshot assembly after the
	// participant commit then fails.
	stub.setAllow(1)
	snap, participant, err := c.JoinParty(context.Background(), party.Code, "Bob")
	if err == nil {
		t.Fatal("expected an error when the join snapshot cannot be assembled")
	}
	if snap != nil || participant != nil {
		t.Errorf("failed join must not return partial results, got snap=%v participant=%v", snap, participant)
	}

	// The participant row itself committed before the failure
	stub.setAllow(10)
	after, err := c.Snapshot(context.Background(), party.Code)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if len(after.Participants) != 2 {
		t.Errorf("expected the joined participant to be persisted, got %d participants", len(after.Participants))
	}
}

func TestUnknownCodeAllocatesNoHandle(t *testing.T) {
	c, _ := newTestCoordinator(t)

	if _, err := c.Snapshot(context.Background(), "NOPE42"); !errors.Is(err, ErrPartyNotFound) {
		t.Fatalf("Snapshot: expected ErrPartyNotFound, got %v", err)
	}
	if _, _, err := c.JoinParty(context.Background(), "NOPE43", "Bob"); !errors.Is(err, ErrPartyNotFound) {
		t.Fatalf("JoinParty: expected ErrPartyNotFound, got %v", err)
	}
	if _, err := c.AddSong(context.Background(), "NOPE44", "p", AddSongInput{Title: "X"}); !errors.Is(err, ErrPartyNotFound) {
		t.Fatalf("AddSong: expected ErrPartyNotFound, got %v", err)
	}

	c.reg.mu.Lock()
	n := len(c.reg.handles)
	c.reg.mu.Unlock()
	if n != 0 {
		t.Errorf("expected no handles for codes that resolve to no party, got %d", n)
	}
}

func TestJoinParty_Failures(t *testing.T) {
	c, _ := newTestCoordinator(t)
	party, host := createTestParty(t, c, CreatePartyInput{HostName: "Alice"})

	t.Run("unknown code", func(t *testing.T) {
		_, _, err := c.JoinParty(context.Background(), "NOPE42", "Bob")
		if !errors.Is(err, ErrPartyNotFound) {
			t.Errorf("expected ErrPartyNotFound, got %v", err)
		}
	})

	t.Run("empty name", func(t *testing.T) {
		_, _, err := c.JoinParty(context.Background(), party.Code, "")
		if !errors.Is(err, ErrValidation) {
			t.Errorf("expected ErrValidation, got %v", err)
		}
	})

	t.Run("name taken", func(t *testing.T) {
		_, _, err := c.JoinParty(context.Background(), party.Code, "Alice")
		if !errors.Is(err, ErrNameTaken) {
			t.Errorf("expected ErrNameTaken, got %v", err)
		}
	})

	t.Run("ended party", func(t *testing.T) {
		if _, err := c.EndParty(context.Background(), party.Code, host.ID); err != nil {
			t.Fatalf("EndParty failed: %v", err)
		}
		_, _, err := c.JoinParty(context.Background(), party.Code, "Late")
		if !errors.Is(err, ErrPartyEnded) {
			t.Errorf("expected ErrPartyEnded, got %v", err)
		}
	})
}

func TestAddSong_AssignsContiguousPositions(t *testing.T) {
	c, _ := newTestCoordinator(t)
	party, host := createTestParty(t, c, CreatePartyInput{})

	for i := 1; i <= 5; i++ {
		song := addTestSong(t, c, party.Code, host.ID, fmt.Sprintf("Song %d", i))
		if song.Position != i {
			t.Errorf("song %d: expected position %d, got %d", i, i, song.Position)
		}
	}
}

func TestAddSong_QueueFull(t *testing.T) {
	c, _ := newTestCoordinator(t)
	party, host := createTestParty(t, c, CreatePartyInput{Capacity: 2})

	addTestSong(t, c, party.Code, host.ID, "A")
	addTestSong(t, c, party.Code, host.ID, "B")

	_, err := c.AddSong(context.Background(), party.Code, host.ID, AddSongInput{Title: "C"})
	if !errors.Is(err, ErrQueueFull) {
		t.Errorf("expected ErrQueueFull, got %v", err)
	}
}

func TestAddSong_NotMember(t *testing.T) {
	c, _ := newTestCoordinator(t)
	party, _ := createTestParty(t, c, CreatePartyInput{})
	_, stranger := createTestParty(t, c, CreatePartyInput{Name: "Other", HostName: "Zed"})

	_, err := c.AddSong(context.Background(), party.Code, stranger.ID, AddSongInput{Title: "X"})
	if !errors.Is(err, ErrNotMember) {
		t.Errorf("expected ErrNotMember, got %v", err)
	}

	_, err = c.AddSong(context.Background(), party.Code, "no-such-participant", AddSongInput{Title: "X"})
	if !errors.Is(err, ErrNotMember) {
		t.Errorf("expected ErrNotMember for unknown participant, got %v", err)
	}
}

func TestToggleVote(t *testing.T) {
	c, _ := newTestCoordinator(t)
	party, host := createTestParty(t, c, CreatePartyInput{})
	song := addTestSong(t, c, party.Code, host.ID, "X")
	p1 := joinTestParty(t, c, party.Code, "P1")
	p2 := joinTestParty(t, c, party.Code, "P2")

	// P1 and P2 vote
	res, err := c.ToggleVote(context.Background(), party.Code, p1.ID, song.ID)
	if err != nil {
		t.Fatalf("ToggleVote failed: %v", err)
	}
	if !res.Voted || res.Votes != 1 {
		t.Errorf("after P1 vote: expected voted=true votes=1, got %+v", res)
	}

	res, err = c.ToggleVote(context.Background(), party.Code, p2.ID, song.ID)
	if err != nil {
		t.Fatalf("ToggleVote failed: %v", err)
	}
	if !res.Voted || res.Votes != 2 {
		t.Errorf("after P2 vote: expected voted=true votes=2, got %+v", res)
	}

	// P1 toggles again: removed
	res, err = c.ToggleVote(context.Background(), party.Code, p1.ID, song.ID)
	if err != nil {
		t.Fatalf("ToggleVote failed: %v", err)
	}
	if res.Voted || res.Votes != 1 {
		t.Errorf("after P1 re-toggle: expected voted=false votes=1, got %+v", res)
	}
}

func TestToggleVote_TwiceReturnsToOriginal(t *testing.T) {
	c, _ := newTestCoordinator(t)
	party, host := createTestParty(t, c, CreatePartyInput{})
	song := addTestSong(t, c, party.Code, host.ID, "X")

	first, err := c.ToggleVote(context.Background(), party.Code, host.ID, song.ID)
	if err != nil {
		t.Fatalf("ToggleVote failed: %v", err)
	}
	second, err := c.ToggleVote(context.Background(), party.Code, host.ID, song.ID)
	if err != nil {
		t.Fatalf("ToggleVote failed: %v", err)
	}

	if !first.Voted || first.Votes != 1 {
		t.Errorf("first toggle: expected voted=true votes=1, got %+v", first)
	}
	if second.Voted || second.Votes != 0 {
		t.Errorf("second toggle: expected voted=false votes=0, got %+v", second)
	}
}

func TestToggleVote_SongNotFound(t *testing.T) {
	c, _ := newTestCoordinator(t)
	party, host := createTestParty(t, c, CreatePartyInput{})

	_, err := c.ToggleVote(context.Background(), party.Code, host.ID, "no-such-song")
	if !errors.Is(err, ErrSongNotFound) {
		t.Errorf("expected ErrSongNotFound, got %v", err)
	}

	// A song from a different party is invisible here
	other, otherHost := createTestParty(t, c, CreatePartyInput{Name: "Other", HostName: "Zed"})
	foreign := addTestSong(t, c, other.Code, otherHost.ID, "Foreign")

	_, err = c.ToggleVote(context.Background(), party.Code, host.ID, foreign.ID)
	if !errors.Is(err, ErrSongNotFound) {
		t.Errorf("expected ErrSongNotFound for foreign song, got %v", err)
	}
}

func TestSetCurrentSong(t *testing.T) {
	c, _ := newTestCoordinator(t)
	party, host := createTestParty(t, c, CreatePartyInput{})
	song := addTestSong(t, c, party.Code, host.ID, "X")

	// Start playback so the reset is observable
	offset := 30.0
	if _, err := c.SetPlayback(context.Background(), party.Code, host.ID, ActionPlay, &offset); err != nil {
		t.Fatalf("SetPlayback failed: %v", err)
	}

	updated, err := c.SetCurrentSong(context.Background(), party.Code, host.ID, song.ID)
	if err != nil {
		t.Fatalf("SetCurrentSong failed: %v", err)
	}
	if updated.CurrentSongID != song.ID {
		t.Errorf("current song: expected %s, got %s", song.ID, updated.CurrentSongID)
	}
	// Switching always resets the clock
	if updated.Playback.Status != playback.StatusPaused || updated.Playback.OffsetSec != 0 {
		t.Errorf("expected paused zero-offset clock after switch, got %+v", updated.Playback)
	}
}

func TestSetCurrentSong_NotHost(t *testing.T) {
	c, _ := newTestCoordinator(t)
	party, host := createTestParty(t, c, CreatePartyInput{})
	song := addTestSong(t, c, party.Code, host.ID, "X")
	guest := joinTestParty(t, c, party.Code, "Guest")

	_, err := c.SetCurrentSong(context.Background(), party.Code, guest.ID, song.ID)
	if !errors.Is(err, ErrNotHost) {
		t.Errorf("expected ErrNotHost, got %v", err)
	}
}

func TestSetPlayback(t *testing.T) {
	c, _ := newTestCoordinator(t)
	party, host := createTestParty(t, c, CreatePartyInput{})

	now := time.Now()
	c.now = func() time.Time { return now }

	offset := 42.0
	st, err := c.SetPlayback(context.Background(), party.Code, host.ID, ActionPlay, &offset)
	if err != nil {
		t.Fatalf("SetPlayback failed: %v", err)
	}
	if st.Status != playback.StatusPlaying {
		t.Errorf("status: expected %s, got %s", playback.StatusPlaying, st.Status)
	}
	if got := st.Position(now); got != 42.0 {
		t.Errorf("position at start: expected 42.0, got %f", got)
	}
	if got := st.Position(now.Add(3 * time.Second)); got != 45.0 {
		t.Errorf("position after 3s: expected 45.0, got %f", got)
	}

	// Pause without an explicit offset freezes the derived position
	c.now = func() time.Time { return now.Add(5 * time.Second) }
	st, err = c.SetPlayback(context.Background(), party.Code, host.ID, ActionPause, nil)
	if err != nil {
		t.Fatalf("SetPlayback failed: %v", err)
	}
	if st.Status != playback.StatusPaused || st.OffsetSec != 47.0 {
		t.Errorf("expected paused at 47.0, got %+v", st)
	}
}

func TestSetPlayback_Failures(t *testing.T) {
	c, _ := newTestCoordinator(t)
	party, host := createTestParty(t, c, CreatePartyInput{})
	guest := joinTestParty(t, c, party.Code, "Guest")

	if _, err := c.SetPlayback(context.Background(), party.Code, guest.ID, ActionPlay, nil); !errors.Is(err, ErrNotHost) {
		t.Errorf("expected ErrNotHost, got %v", err)
	}
	if _, err := c.SetPlayback(context.Background(), party.Code, host.ID, "STOP", nil); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for bad action, got %v", err)
	}
}

func TestEndParty_Standings(t *testing.T) {
	c, _ := newTestCoordinator(t)
	party, host := createTestParty(t, c, CreatePartyInput{})
	p1 := joinTestParty(t, c, party.Code, "P1")
	p2 := joinTestParty(t, c, party.Code, "P2")

	a := addTestSong(t, c, party.Code, host.ID, "A") // position 1
	b := addTestSong(t, c, party.Code, host.ID, "B") // position 2
	d := addTestSong(t, c, party.Code, host.ID, "C") // position 3

	// B gets 2 votes, C gets 1, A gets 0
	for _, voter := range []string{p1.ID, p2.ID} {
		if _, err := c.ToggleVote(context.Background(), party.Code, voter, b.ID); err != nil {
			t.Fatalf("ToggleVote failed: %v", err)
		}
	}
	if _, err := c.ToggleVote(context.Background(), party.Code, p1.ID, d.ID); err != nil {
		t.Fatalf("ToggleVote failed: %v", err)
	}

	result, err := c.EndParty(context.Background(), party.Code, host.ID)
	if err != nil {
		t.Fatalf("EndParty failed: %v", err)
	}

	want := []struct {
		songID string
		votes  int
	}{{b.ID, 2}, {d.ID, 1}, {a.ID, 0}}

	if len(result.Standings) != 3 {
		t.Fatalf("expected 3 standings, got %d", len(result.Standings))
	}
	for i, w := range want {
		st := result.Standings[i]
		if st.SongID != w.songID || st.Votes != w.votes || st.Rank != i+1 {
			t.Errorf("standings[%d]: expected (%s, %d votes, rank %d), got %+v", i, w.songID, w.votes, i+1, st)
		}
	}
	if result.Winner == nil || result.Winner.SongID != b.ID {
		t.Errorf("winner: expected %s, got %+v", b.ID, result.Winner)
	}
}

func TestEndParty_TieBrokenByQueuePosition(t *testing.T) {
	c, _ := newTestCoordinator(t)
	party, host := createTestParty(t, c, CreatePartyInput{})
	p1 := joinTestParty(t, c, party.Code, "P1")
	p2 := joinTestParty(t, c, party.Code, "P2")

	a := addTestSong(t, c, party.Code, host.ID, "A") // position 1
	b := addTestSong(t, c, party.Code, host.ID, "B") // position 2

	// Two votes each
	for _, songID := range []string{a.ID, b.ID} {
		for _, voter := range []string{p1.ID, p2.ID} {
			if _, err := c.ToggleVote(context.Background(), party.Code, voter, songID); err != nil {
				t.Fatalf("ToggleVote failed: %v", err)
			}
		}
	}

	result, err := c.EndParty(context.Background(), party.Code, host.ID)
	if err != nil {
		t.Fatalf("EndParty failed: %v", err)
	}
	if result.Standings[0].SongID != a.ID || result.Standings[1].SongID != b.ID {
		t.Errorf("tie break: expected [A, B], got %+v", result.Standings)
	}
}

func TestEndParty_NoSongs(t *testing.T) {
	c, _ := newTestCoordinator(t)
	party, host := createTestParty(t, c, CreatePartyInput{})

	result, err := c.EndParty(context.Background(), party.Code, host.ID)
	if err != nil {
		t.Fatalf("EndParty failed: %v", err)
	}
	if result.Winner != nil {
		t.Errorf("expected nil winner, got %+v", result.Winner)
	}
	if len(result.Standings) != 0 {
		t.Errorf("expected empty standings, got %d", len(result.Standings))
	}
}

func TestEndParty_TerminalState(t *testing.T) {
	c, _ := newTestCoordinator(t)
	party, host := createTestParty(t, c, CreatePartyInput{})
	song := addTestSong(t, c, party.Code, host.ID, "X")

	if _, err := c.EndParty(context.Background(), party.Code, host.ID); err != nil {
		t.Fatalf("EndParty failed: %v", err)
	}

	// Every further mutation is rejected with ErrPartyEnded
	ctx := context.Background()
	checks := map[string]error{}

	_, err := c.AddSong(ctx, party.Code, host.ID, AddSongInput{Title: "Y"})
	checks["AddSong"] = err
	_, err = c.ToggleVote(ctx, party.Code, host.ID, song.ID)
	checks["ToggleVote"] = err
	_, err = c.SetCurrentSong(ctx, party.Code, host.ID, song.ID)
	checks["SetCurrentSong"] = err
	_, err = c.SetPlayback(ctx, party.Code, host.ID, ActionPlay, nil)
	checks["SetPlayback"] = err
	_, err = c.EndParty(ctx, party.Code, host.ID)
	checks["EndParty"] = err

	for op, err := range checks {
		if !errors.Is(err, ErrPartyEnded) {
			t.Errorf("%s after end: expected ErrPartyEnded, got %v", op, err)
		}
	}
}

func TestSnapshot_EndedPartyKeepsStandings(t *testing.T) {
	c, _ := newTestCoordinator(t)
	party, host := createTestParty(t, c, CreatePartyInput{})
	song := addTestSong(t, c, party.Code, host.ID, "X")

	result, err := c.EndParty(context.Background(), party.Code, host.ID)
	if err != nil {
		t.Fatalf("EndParty failed: %v", err)
	}

	snap, err := c.Snapshot(context.Background(), party.Code)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if snap.Party.Status != models.PartyEnded {
		t.Errorf("status: expected %s, got %s", models.PartyEnded, snap.Party.Status)
	}
	if len(snap.Standings) != len(result.Standings) {
		t.Fatalf("expected %d standings in snapshot, got %d", len(result.Standings), len(snap.Standings))
	}
	if snap.Standings[0].SongID != song.ID {
		t.Errorf("standings mismatch: %+v", snap.Standings)
	}
}

func TestSnapshot_NotFound(t *testing.T) {
	c, _ := newTestCoordinator(t)

	_, err := c.Snapshot(context.Background(), "NOPE42")
	if !errors.Is(err, ErrPartyNotFound) {
		t.Errorf("expected ErrPartyNotFound, got %v", err)
	}
}

func TestConcurrentAddSongs(t *testing.T) {
	c, _ := newTestCoordinator(t)
	party, host := createTestParty(t, c, CreatePartyInput{})

	const n = 20
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.AddSong(context.Background(), party.Code, host.ID, AddSongInput{
				Title: fmt.Sprintf("Song %d", i),
			})
			if err != nil {
				t.Errorf("AddSong failed: %v", err)
			}
		}()
	}
	wg.Wait()

	snap, err := c.Snapshot(context.Background(), party.Code)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if len(snap.Songs) != n {
		t.Fatalf("expected %d songs, got %d", n, len(snap.Songs))
	}
	// Positions are exactly 1..n, no gaps or duplicates
	for i, song := range snap.Songs {
		if song.Position != i+1 {
			t.Errorf("songs[%d]: expected position %d, got %d", i, i+1, song.Position)
		}
	}
}

func TestConcurrentToggleVotes(t *testing.T) {
	c, _ := newTestCoordinator(t)
	party, host := createTestParty(t, c, CreatePartyInput{})
	song := addTestSong(t, c, party.Code, host.ID, "X")

	// An even number of toggles for one pair nets out to no vote
	const n = 10
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.ToggleVote(context.Background(), party.Code, host.ID, song.ID); err != nil {
				t.Errorf("ToggleVote failed: %v", err)
			}
		}()
	}
	wg.Wait()

	snap, err := c.Snapshot(context.Background(), party.Code)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if snap.Songs[0].Votes != 0 {
		t.Errorf("expected 0 net votes after %d toggles, got %d", n, snap.Songs[0].Votes)
	}
}

func TestBroadcastOrderAndEvents(t *testing.T) {
	c, bus := newTestCoordinator(t)
	party, host := createTestParty(t, c, CreatePartyInput{})

	song := addTestSong(t, c, party.Code, host.ID, "X")
	if _, err := c.ToggleVote(context.Background(), party.Code, host.ID, song.ID); err != nil {
		t.Fatalf("ToggleVote failed: %v", err)
	}
	if _, err := c.EndParty(context.Background(), party.Code, host.ID); err != nil {
		t.Fatalf("EndParty failed: %v", err)
	}

	waitForEvent(t, bus, EventEnded)

	queueEv := waitForEvent(t, bus, EventQueueUpdated)
	if ref, ok := queueEv.Payload.(SongRef); !ok || ref.SongID != song.ID {
		t.Errorf("queue-updated payload mismatch: %+v", queueEv.Payload)
	}
	votesEv := waitForEvent(t, bus, EventVotesUpdated)
	if ref, ok := votesEv.Payload.(SongRef); !ok || ref.SongID != song.ID {
		t.Errorf("votes-updated payload mismatch: %+v", votesEv.Payload)
	}

	// Each mutation publishes its snapshot before the specific event, and
	// per-party order follows commit order.
	events := bus.snapshot()
	index := func(evType string) int {
		for i, ev := range events {
			if ev.Type == evType {
				return i
			}
		}
		return -1
	}
	if !(index(EventQueueUpdated) < index(EventVotesUpdated) && index(EventVotesUpdated) < index(EventEnded)) {
		t.Errorf("events out of commit order: %+v", eventTypes(events))
	}
	if index(EventSnapshot) > index(EventQueueUpdated) {
		t.Errorf("snapshot must precede the first specific event: %+v", eventTypes(events))
	}
	for _, ev := range events {
		if ev.Code != party.Code {
			t.Errorf("event scoped to wrong code: %+v", ev)
		}
	}

	endedIdx := index(EventEnded)
	res, ok := events[endedIdx].Payload.(*EndResult)
	if !ok {
		t.Fatalf("ended payload: expected *EndResult, got %T", events[endedIdx].Payload)
	}
	if res.Winner == nil || res.Winner.SongID != song.ID {
		t.Errorf("ended winner mismatch: %+v", res.Winner)
	}
}

func eventTypes(events []broadcast.Event) []string {
	types := make([]string, len(events))
	for i, ev := range events {
		types[i] = ev.Type
	}
	return types
}
