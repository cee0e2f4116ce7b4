// Package session owns the current authenticated user. The value is held
// in process state and mirrored into a single slot of a local sqlite
// database so it survives restarts.
package session

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/picfeed/picfeed-client/cmd/models"
)

const currentUserSlot = "current_user"

// Store is the injected session context. Dependent view-models register a
// change listener and reset themselves whenever the user changes.
type Store struct {
	db *sql.DB

	mu        sync.Mutex
	current   *models.User
	listeners []func(*models.User)
}

// Open opens (or creates) the local state database at path and restores a
// previously persisted user, if any.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}
	schema := `
	CREATE TABLE IF NOT EXISTS local_state (
		slot TEXT PRIMARY KEY,
		payload TEXT NOT NULL,
		saved_at DATETIME NOT NULL
	);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create state table: %w", err)
	}

	s := &Store{db: db}
	s.restore()
	return s, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// OnChange registers fn to run after every session change. The new user is
// passed, or nil on logout.
func (s *Store) OnChange(fn func(*models.User)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Current returns the logged-in user, or ok=false when nobody is.
func (s *Store) Current() (models.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return models.User{}, false
	}
	return *s.current, true
}

// Login sets and persists the current user.
func (s *Store) Login(user models.User) error {
	payload, err := json.Marshal(user)
	if err != nil {
		return err
	}
	s.mu.Lock()
	_, err = s.db.Exec(
		`INSERT INTO local_state (slot, payload, saved_at) VALUES (?, ?, ?)
		 ON CONFLICT(slot) DO UPDATE SET payload=excluded.payload, saved_at=excluded.saved_at`,
		currentUserSlot, string(payload), time.Now().UTC(),
	)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to persist session: %w", err)
	}
	s.current = &user
	listeners := append([]func(*models.User){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(&user)
	}
	return nil
}

// Logout clears the current user and removes the persisted slot.
func (s *Store) Logout() error {
	s.mu.Lock()
	_, err := s.db.Exec(`DELETE FROM local_state WHERE slot = ?`, currentUserSlot)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to clear session: %w", err)
	}
	s.current = nil
	listeners := append([]func(*models.User){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(nil)
	}
	return nil
}

// restore loads the persisted user at startup. A malformed payload is
// treated as no session and the bad row is dropped.
func (s *Store) restore() {
	var payload string
	err := s.db.QueryRow(
		`SELECT payload FROM local_state WHERE slot = ?`, currentUserSlot,
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return
	}
	if err != nil {
		log.Printf("session restore failed: %v", err)
		return
	}

	var user models.User
	if err := json.Unmarshal([]byte(payload), &user); err != nil || user.ID == "" {
		log.Printf("discarding malformed persisted session")
		s.db.Exec(`DELETE FROM local_state WHERE slot = ?`, currentUserSlot)
		return
	}
	s.current = &user
}
