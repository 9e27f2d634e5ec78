// Package queue manages the playback queue.
package queue

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"jukeboxd/internal/store"
)

// Entry is a queued track with the metadata clients see in listings.
type Entry struct {
	ID     int64
	Track  string
	Artist string
}

// Manager maintains the persistent playback queue and the random mode flag.
type Manager struct {
	mu     sync.Mutex
	store  *store.Store
	random bool
	rng    *rand.Rand
	now    func() int64
}

// NewManager creates a queue manager backed by the given store.
func NewManager(s *store.Store) *Manager {
	return &Manager{
		store: s,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
		now:   func() int64 { return time.Now().Unix() },
	}
}

// EnqueueTrack appends a single track to the queue.
func (m *Manager) EnqueueTrack(trackID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.store.TrackByID(trackID); err != nil {
		return err
	}
	if err := m.store.InsertQueueEntry(trackID, m.now()); err != nil {
		return err
	}
	log.Printf("[QUEUE] Enqueued track %d", trackID)
	return nil
}

// EnqueueAlbum appends every track of an album in track order. Tracks that
// fail to enqueue are skipped, a missing album aborts the whole operation.
func (m *Manager) EnqueueAlbum(albumID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.store.AlbumByID(albumID); err != nil {
		return err
	}
	ids, err := m.store.AlbumTrackIDs(albumID)
	if err != nil {
		return err
	}
	base := m.now()
	for i, trackID := range ids {
		// Increasing timestamps keep the album in track order
		if err := m.store.InsertQueueEntry(trackID, base+int64(i)); err != nil {
			log.Printf("[QUEUE] Skipping track %d of album %d: %v", trackID, albumID, err)
		}
	}
	log.Printf("[QUEUE] Enqueued album %d (%d tracks)", albumID, len(ids))
	return nil
}

// Next returns the queue entry to play next. In random mode an entry is
// drawn from the library when nothing is pending, so at most one sampled
// entry exists at a time. store.ErrNotFound means the queue is exhausted.
func (m *Manager) Next() (store.QueueEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, err := m.store.NextPending()
	if err == nil {
		return e, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return store.QueueEntry{}, err
	}
	if !m.random {
		return store.QueueEntry{}, err
	}
	if err := m.sample(); err != nil {
		return store.QueueEntry{}, err
	}
	return m.store.NextPending()
}

// sample inserts one random library track as a pending entry.
func (m *Manager) sample() error {
	n, err := m.store.TrackCount()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	trackID, err := m.store.TrackIDAt(m.rng.Int63n(n))
	if err != nil {
		return err
	}
	if err := m.store.InsertQueueEntry(trackID, m.now()); err != nil {
		return fmt.Errorf("sampling track %d: %w", trackID, err)
	}
	log.Printf("[QUEUE] Random pick: track %d", trackID)
	return nil
}

// MarkPlaying flags the entry as the one currently being played.
func (m *Manager) MarkPlaying(id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.SetQueuePlaying(id, true)
}

// MarkStopped clears the playing flag without removing the entry.
func (m *Manager) MarkStopped(id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.SetQueuePlaying(id, false)
}

// Remove deletes the entry with the given id. Unknown ids are ignored.
func (m *Manager) Remove(id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.DeleteQueueEntry(id)
}

// Clear deletes every entry, including the one marked playing.
func (m *Manager) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	log.Printf("[QUEUE] Cleared")
	return m.store.DeleteQueueAll()
}

// SetRandom toggles random mode. Enabling it discards pending entries so
// playback continues from fresh random picks.
func (m *Manager) SetRandom(enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if enabled && !m.random {
		if err := m.store.DeleteQueuePending(); err != nil {
			return err
		}
	}
	m.random = enabled
	log.Printf("[QUEUE] Random mode: %v", enabled)
	return nil
}

// Random reports whether random mode is enabled.
func (m *Manager) Random() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.random
}

// List returns all entries in playback order with resolved titles. Entries
// whose track or artist rows are gone show a "?" placeholder.
func (m *Manager) List() ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows, err := m.store.QueueEntries()
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		e := Entry{ID: row.ID, Track: "?", Artist: "?"}
		if tr, err := m.store.TrackByID(row.TrackID); err == nil {
			e.Track = tr.Title
			if ar, err := m.store.ArtistByID(tr.ArtistID); err == nil {
				e.Artist = ar.Name
			}
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// TrackFor resolves the track behind a queue entry.
func (m *Manager) TrackFor(entryID int64) (store.Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, err := m.store.QueueEntryByID(entryID)
	if err != nil {
		return store.Track{}, err
	}
	return m.store.TrackByID(e.TrackID)
}
