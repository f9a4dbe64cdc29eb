package sqlite

import "database/sql"

// migrations contains the SQL statements to set up the database schema.
// These run on startup to ensure tables exist.
// IMPORTANT: parties must be created BEFORE participants/songs due to foreign
// key constraints; host_id is a plain column (not a FK) because the party and
// its host are inserted in the same transaction.
const schema = `
CREATE TABLE IF NOT EXISTS parties (
    id TEXT PRIMARY KEY,
    code TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL,
    host_id TEXT NOT NULL DEFAULT '',
    capacity INTEGER NOT NULL DEFAULT 0,
    time_box_mins INTEGER NOT NULL DEFAULT 0,
    status TEXT NOT NULL,
    current_song_id TEXT NOT NULL DEFAULT '',
    playback_status TEXT NOT NULL,
    playback_started_at INTEGER NOT NULL DEFAULT 0,
    playback_offset REAL NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL,
    ended_at INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS participants (
    id TEXT PRIMARY KEY,
    party_id TEXT NOT NULL,
    name TEXT NOT NULL,
    is_host INTEGER NOT NULL DEFAULT 0,
    joined_at INTEGER NOT NULL,
    UNIQUE (party_id, name),
    FOREIGN KEY (party_id) REFERENCES parties(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS songs (
    id TEXT PRIMARY KEY,
    party_id TEXT NOT NULL,
    added_by TEXT NOT NULL,
    title TEXT NOT NULL,
    artist TEXT NOT NULL,
    media_url TEXT NOT NULL DEFAULT '',
    media_id TEXT NOT NULL DEFAULT '',
    position INTEGER NOT NULL,
    created_at INTEGER NOT NULL,
    UNIQUE (party_id, position),
    FOREIGN KEY (party_id) REFERENCES parties(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS votes (
    song_id TEXT NOT NULL,
    participant_id TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    PRIMARY KEY (song_id, participant_id),
    FOREIGN KEY (song_id) REFERENCES songs(id) ON DELETE CASCADE,
    FOREIGN KEY (participant_id) REFERENCES participants(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS standings (
    party_id TEXT NOT NULL,
    song_id TEXT NOT NULL,
    rank INTEGER NOT NULL,
    votes INTEGER NOT NULL,
    PRIMARY KEY (party_id, song_id),
    FOREIGN KEY (party_id) REFERENCES parties(id) ON DELETE CASCADE,
    FOREIGN KEY (song_id) REFERENCES songs(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_participants_party_id ON participants(party_id);
CREATE INDEX IF NOT EXISTS idx_songs_party_id ON songs(party_id);
CREATE INDEX IF NOT EXISTS idx_votes_song_id ON votes(song_id);
CREATE INDEX IF NOT EXISTS idx_standings_party_id ON standings(party_id);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
