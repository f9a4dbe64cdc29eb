package party

import (
	"context"
	"fmt"

	"github.com/auxparty/auxparty/internal/models"
)

// SongView is a song together with its derived vote state.
type SongView struct {
	models.Song
	Votes    int      `json:"votes"`
	VoterIDs []string `json:"voterIds"`
}

// Snapshot is a point-in-time view of a whole party: the party row, its
// participants, and its songs with derived vote counts and voter lists.
// For an ended party it also carries the persisted final standings.
type Snapshot struct {
	Party        *models.Party        `json:"party"`
	Participants []models.Participant `json:"participants"`
	Songs        []SongView           `json:"songs"`
	Standings    []models.Standing    `json:"standings,omitempty"`
}

// snapshot assembles a consistent view of the party. Callers hold the
// party's serialization lock (shared or exclusive), so the reads cannot
// interleave with a mutation.
func (c *Coordinator) snapshot(ctx context.Context, party *models.Party) (*Snapshot, error) {
	participants, err := c.store.ListParticipants(ctx, party.ID)
	if err != nil {
		return nil, fmt.Errorf("snapshot participants: %w", err)
	}

	songs, err := c.store.ListSongs(ctx, party.ID)
	if err != nil {
		return nil, fmt.Errorf("snapshot songs: %w", err)
	}

	views := make([]SongView, len(songs))
	for i, song := range songs {
		votes, err := c.store.CountVotes(ctx, song.ID)
		if err != nil {
			return nil, fmt.Errorf("snapshot votes: %w", err)
		}
		voters, err := c.store.ListVoters(ctx, song.ID)
		if err != nil {
			return nil, fmt.Errorf("snapshot voters: %w", err)
		}
		views[i] = SongView{Song: song, Votes: votes, VoterIDs: voters}
	}

	snap := &Snapshot{
		Party:        party,
		Participants: participants,
		Songs:        views,
	}

	if party.Ended() {
		standings, err := c.store.ListStandings(ctx, party.ID)
		if err != nil {
			return nil, fmt.Errorf("snapshot standings: %w", err)
		}
		snap.Standings = standings
	}

	return snap, nil
}
