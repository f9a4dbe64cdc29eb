package party

import (
	"math/rand/v2"
	"strings"
)

// Join-code alphabet. Ambiguous characters (0/O, 1/I) are excluded so codes
// survive being read aloud.
const (
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeLength   = 6

	// codeAttempts bounds the generate-and-check loop in CreateParty.
	// With a 32^6 code space, exhausting it means something is very wrong;
	// the create fails rather than falling back to longer codes.
	codeAttempts = 10
)

// NormalizeCode upper-cases a join code for case-insensitive comparison.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func randomCode() string {
	var b strings.Builder
	b.Grow(codeLength)
	for range codeLength {
		b.WriteByte(codeAlphabet[rand.IntN(len(codeAlphabet))])
	}
	return b.String()
}
