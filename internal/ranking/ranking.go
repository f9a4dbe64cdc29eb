// Package ranking computes the final standings of an ended party.
package ranking

import "sort"

// Entry is one song as seen by the ranking: its identity, queue position,
// and vote count at the moment the party ends.
type Entry struct {
	SongID   string
	Position int
	Votes    int
}

// Standing is one row of the final ranking.
type Standing struct {
	SongID string
	Rank   int
	Votes  int
}

// Rank sorts entries by vote count descending, breaking ties by queue
// position ascending, and assigns 1-based ranks. The input slice is not
// modified. An empty input yields empty standings (and no winner).
func Rank(entries []Entry) []Standing {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)

	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Votes != sorted[j].Votes {
			return sorted[i].Votes > sorted[j].Votes
		}
		return sorted[i].Position < sorted[j].Position
	})

	standings := make([]Standing, len(sorted))
	for i, e := range sorted {
		standings[i] = Standing{
			SongID: e.SongID,
			Rank:   i + 1,
			Votes:  e.Votes,
		}
	}
	return standings
}
