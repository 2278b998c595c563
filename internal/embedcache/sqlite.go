// Package embedcache persists record embeddings in SQLite so that unchanged
// records are not re-embedded on every run. The similarity index itself is
// always rebuilt in memory from these vectors.
package embedcache

import (
	"bytes"
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Store is a persistent embedding cache keyed by record id and text hash
type Store struct {
	db       *sql.DB
	dbPath   string
	provider string
	model    string
	dims     int
	mu       sync.RWMutex
}

// Open opens or creates the cache at dbPath for the given embedder identity.
// If the stored provider, model or dimensions differ, cached vectors are
// discarded.
func Open(dbPath, provider, model string, dims int) (*Store, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{
		db:       db,
		dbPath:   dbPath,
		provider: provider,
		model:    model,
		dims:     dims,
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	valid, err := store.matches(provider, model, dims)
	if err != nil {
		db.Close()
		return nil, err
	}
	if !valid {
		if _, err := db.Exec(`DELETE FROM embeddings`); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to clear stale embeddings: %w", err)
		}
	}

	for key, value := range map[string]string{
		"version":    "1",
		"provider":   provider,
		"model":      model,
		"dimensions": strconv.Itoa(dims),
	} {
		if err := store.setMetadata(key, value); err != nil {
			db.Close()
			return nil, err
		}
	}

	return store, nil
}

// initSchema creates the database schema
func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS embeddings (
		record_id INTEGER PRIMARY KEY,
		text_hash TEXT NOT NULL,
		vector BLOB NOT NULL,
		created_at INTEGER NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// matches reports whether the cache was written by the same embedder. A
// fresh database with no metadata matches.
func (s *Store) matches(provider, model string, dims int) (bool, error) {
	storedProvider, err := s.getMetadata("provider")
	if errors.Is(err, errNoMetadata) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	storedModel, err := s.getMetadata("model")
	if err != nil && !errors.Is(err, errNoMetadata) {
		return false, err
	}
	storedDims, err := s.getMetadata("dimensions")
	if err != nil && !errors.Is(err, errNoMetadata) {
		return false, err
	}

	return storedProvider == provider && storedModel == model && storedDims == strconv.Itoa(dims), nil
}

// HashText returns the cache key component for a record's text
func HashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached vector for id if it was stored for the same text hash
func (s *Store) Get(ctx context.Context, id int64, textHash string) ([]float32, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var storedHash string
	var blob []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT text_hash, vector FROM embeddings WHERE record_id = ?`, id,
	).Scan(&storedHash, &blob)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if storedHash != textHash {
		return nil, false, nil
	}

	vec, err := decodeVector(blob)
	if err != nil {
		return nil, false, fmt.Errorf("record %d: %w", id, err)
	}
	return vec, true, nil
}

// Put stores the vector for id, replacing any previous entry
func (s *Store) Put(ctx context.Context, id int64, textHash string, vector []float32) error {
	if len(vector) == 0 {
		return fmt.Errorf("empty vector")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO embeddings (record_id, text_hash, vector, created_at)
		VALUES (?, ?, ?, ?)
	`, id, textHash, encodeVector(vector), time.Now().Unix())
	return err
}

// Clear removes all cached vectors
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `DELETE FROM embeddings`)
	return err
}

// Count returns the number of cached vectors
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM embeddings`).Scan(&count); err != nil {
		return 0
	}
	return count
}

// UpdateIndexTime records when the cache was last used to build an index
func (s *Store) UpdateIndexTime() error {
	return s.setMetadata("indexed_at", time.Now().Format(time.RFC3339))
}

// IndexedAt returns the last UpdateIndexTime, or the zero time
func (s *Store) IndexedAt() time.Time {
	value, err := s.getMetadata("indexed_at")
	if err != nil {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Path returns the database file path
func (s *Store) Path() string {
	return s.dbPath
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

var errNoMetadata = errors.New("metadata key not found")

// getMetadata retrieves a metadata value
func (s *Store) getMetadata(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("%w: %s", errNoMetadata, key)
	}
	return value, err
}

// setMetadata stores a metadata value
func (s *Store) setMetadata(key, value string) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO metadata (key, value)
		VALUES (?, ?)
	`, key, value)
	return err
}

// encodeVector encodes a float32 slice to little-endian bytes
func encodeVector(v []float32) []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, v)
	return buf.Bytes()
}

// decodeVector decodes little-endian bytes to a float32 slice
func decodeVector(b []byte) ([]float32, error) {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil, fmt.Errorf("corrupt vector blob of %d bytes", len(b))
	}
	v := make([]float32, len(b)/4)
	if err := binary.Read(bytes.NewReader(b), binary.LittleEndian, v); err != nil {
		return nil, err
	}
	return v, nil
}
