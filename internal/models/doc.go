// Package models defines the core domain models for auxparty.
//
// # Models
//
//   - Party: one shared listening session, identified by a short join code
//   - Participant: a named member of a party; exactly one is the host
//   - Song: a queued item with a contiguous 1-based queue position
//   - Vote: an active (song, participant) vote; at most one per pair
//   - Standing: one row of the final ranking, persisted when a party ends
//
// # Design Principles
//
// 1. **Plain structs**: no behavior beyond trivial helpers; the party package
//    owns all mutation rules
// 2. **Avoid circular references**: relationships use ID strings, not pointers
// 3. **Unix timestamps**: all times are Unix seconds except the playback clock,
//    which needs sub-second precision and lives in the playback package
//
// Participants are identified by display name within a party (unique,
// case-sensitive); there are no user accounts.
package models
