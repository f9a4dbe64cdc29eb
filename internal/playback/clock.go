// Package playback models the shared playback clock of a party.
//
// The clock is a pure value: (status, startedAt, offset). The play position at
// any reference time is derived algebraically, so readers never need a lock
// beyond copying the current State. Reconciling a client's local player
// against the derived position (drift correction) is the client's concern.
package playback

import (
	"math"
	"time"
)

// Status is the playback status of a party.
type Status string

const (
	StatusPlaying Status = "PLAYING"
	StatusPaused  Status = "PAUSED"
)

// State is the shared playback clock.
// Invariant: StartedAt is non-zero if and only if Status is StatusPlaying.
type State struct {
	Status    Status    `json:"status"`
	StartedAt time.Time `json:"startedAt,omitzero"`
	OffsetSec float64   `json:"offsetSec"`
}

// Paused returns the initial clock state: paused at offset zero.
func Paused() State {
	return State{Status: StatusPaused}
}

// Position derives the play position in seconds at the reference time now.
// While paused it is the stored offset; while playing it is the offset plus
// the elapsed wall time since StartedAt.
func (s State) Position(now time.Time) float64 {
	if s.Status != StatusPlaying {
		return s.OffsetSec
	}
	elapsed := now.Sub(s.StartedAt).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}
	return s.OffsetSec + elapsed
}

// Play starts the clock at the given offset, or at the current derived
// position when offset is nil or invalid.
func (s State) Play(offset *float64, now time.Time) State {
	return State{
		Status:    StatusPlaying,
		StartedAt: now,
		OffsetSec: base(s, offset, now),
	}
}

// Pause stops the clock at the given offset, or at the current derived
// position when offset is nil or invalid.
func (s State) Pause(offset *float64, now time.Time) State {
	return State{
		Status:    StatusPaused,
		OffsetSec: base(s, offset, now),
	}
}

// base picks the explicit offset when it is finite and non-negative,
// otherwise the derived position.
func base(s State, offset *float64, now time.Time) float64 {
	if offset != nil && !math.IsNaN(*offset) && !math.IsInf(*offset, 0) && *offset >= 0 {
		return *offset
	}
	return s.Position(now)
}
