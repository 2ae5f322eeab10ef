package sampleindex

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"os"

	_ "modernc.org/sqlite"
)

// Cache persists computed line offsets in a SQLite database so that
// reopening a large sample file skips the full scan. Entries are keyed by
// file path and validated against size and mtime; a stale or unreadable
// entry is treated as a miss and rebuilt, never an error.
type Cache struct {
	db *sql.DB
}

// OpenCache opens (and if needed initializes) an offset cache database.
func OpenCache(path string) (*Cache, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open offset cache: %w", err)
	}
	const schema = `
		CREATE TABLE IF NOT EXISTS line_offsets (
			path       TEXT NOT NULL,
			skip_first INTEGER NOT NULL,
			size       INTEGER NOT NULL,
			mtime_ns   INTEGER NOT NULL,
			offsets    BLOB NOT NULL,
			PRIMARY KEY (path, skip_first)
		)
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing offset cache: %w", err)
	}
	return &Cache{db: db}, nil
}

// Close closes the cache database.
func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Load returns the cached offsets for path, or ok=false on a miss. A hit
// requires the stored size and mtime to match the file's current state.
func (c *Cache) Load(path string, skipFirst bool) ([]int64, bool) {
	if c == nil || c.db == nil {
		return nil, false
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, false
	}

	var size, mtimeNS int64
	var blob []byte
	row := c.db.QueryRow(
		`SELECT size, mtime_ns, offsets FROM line_offsets WHERE path = ? AND skip_first = ?`,
		path, boolInt(skipFirst),
	)
	if err := row.Scan(&size, &mtimeNS, &blob); err != nil {
		return nil, false
	}
	if size != info.Size() || mtimeNS != info.ModTime().UnixNano() {
		return nil, false
	}
	offsets, err := decodeOffsets(blob)
	if err != nil {
		return nil, false
	}
	return offsets, true
}

// Store saves offsets for path, stamped with the file's current size and
// mtime. Failures are returned but safe to ignore; the cache is an
// optimization only.
func (c *Cache) Store(path string, skipFirst bool, offsets []int64) error {
	if c == nil || c.db == nil {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat for offset cache: %w", err)
	}
	_, err = c.db.Exec(
		`INSERT OR REPLACE INTO line_offsets (path, skip_first, size, mtime_ns, offsets)
		 VALUES (?, ?, ?, ?, ?)`,
		path, boolInt(skipFirst), info.Size(), info.ModTime().UnixNano(), encodeOffsets(offsets),
	)
	if err != nil {
		return fmt.Errorf("storing offset cache entry: %w", err)
	}
	return nil
}

// Invalidate drops any cached entries for path.
func (c *Cache) Invalidate(path string) error {
	if c == nil || c.db == nil {
		return nil
	}
	_, err := c.db.Exec(`DELETE FROM line_offsets WHERE path = ?`, path)
	return err
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func encodeOffsets(offsets []int64) []byte {
	buf := make([]byte, 8*len(offsets))
	for i, off := range offsets {
		binary.LittleEndian.PutUint64(buf[8*i:], uint64(off))
	}
	return buf
}

func decodeOffsets(blob []byte) ([]int64, error) {
	if len(blob)%8 != 0 {
		return nil, fmt.Errorf("corrupt offsets blob (%d bytes)", len(blob))
	}
	offsets := make([]int64, len(blob)/8)
	for i := range offsets {
		offsets[i] = int64(binary.LittleEndian.Uint64(blob[8*i:]))
	}
	return offsets, nil
}
