package ledger

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/sopti/sopti/internal/model"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS downloads (
    id          TEXT PRIMARY KEY,
    title       TEXT NOT NULL DEFAULT '',
    artists     TEXT NOT NULL DEFAULT '',
    album       TEXT NOT NULL DEFAULT '',
    playlist_id TEXT NOT NULL DEFAULT '',
    url         TEXT NOT NULL DEFAULT ''
);
`

// Ledger is the durable record of tracks that completed successfully.
// Presence of an id means a fetch reported success in some run; entries are
// never removed. Writes are serialized so completion callbacks from multiple
// workers can add entries concurrently.
type Ledger struct {
	db *sql.DB
	mu sync.Mutex
}

// DefaultPath returns the ledger location inside the user cache directory.
func DefaultPath() (string, error) {
	cache, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("resolving cache dir: %w", err)
	}
	return filepath.Join(cache, "sopti", "downloads.db"), nil
}

// Open opens or creates the SQLite ledger at the given path, creating parent
// directories as needed.
func Open(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating ledger dir: %w", err)
	}

	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening ledger at %s: %w", path, err)
	}

	// SQLite pragmas for durability under concurrent completion callbacks
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := sqlDB.Exec(pragma); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", pragma, err)
		}
	}

	if _, err := sqlDB.Exec(createTableSQL); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Ledger{db: sqlDB}, nil
}

// Close closes the underlying database.
func (l *Ledger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

// Exists reports whether the track id has a completed entry.
func (l *Ledger) Exists(id string) (bool, error) {
	if l == nil || l.db == nil {
		return false, fmt.Errorf("ledger not initialized")
	}

	var one int
	err := l.db.QueryRow("SELECT 1 FROM downloads WHERE id = ?", id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("querying ledger for %s: %w", id, err)
	}
	return true, nil
}

// Add records a completed track. Re-adding an existing id is a no-op.
func (l *Ledger) Add(track model.Track) error {
	if l == nil || l.db == nil {
		return fmt.Errorf("ledger not initialized")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	_, err := l.db.Exec(
		"INSERT OR IGNORE INTO downloads (id, title, artists, album, playlist_id, url) VALUES (?, ?, ?, ?, ?, ?)",
		track.ID, track.Title, track.ArtistsJoined(), track.Album, track.PlaylistID, track.URL,
	)
	if err != nil {
		return fmt.Errorf("inserting ledger entry %s: %w", track.ID, err)
	}
	return nil
}

// Count returns the number of completed entries.
func (l *Ledger) Count() (int, error) {
	if l == nil || l.db == nil {
		return 0, fmt.Errorf("ledger not initialized")
	}

	var count int
	if err := l.db.QueryRow("SELECT COUNT(*) FROM downloads").Scan(&count); err != nil {
		return 0, fmt.Errorf("counting ledger entries: %w", err)
	}
	return count, nil
}
