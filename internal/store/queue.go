package store

import "fmt"

// QueueEntry is one pending-or-playing reservation of a track.
type QueueEntry struct {
	ID         int64 `db:"id"`
	TrackID    int64 `db:"trackid"`
	EnqueuedAt int64 `db:"enqueued_at"`
	Playing    bool  `db:"playing"`
}

// InsertQueueEntry appends a pending entry for a track.
func (s *Store) InsertQueueEntry(trackID, enqueuedAt int64) error {
	_, err := s.db.Exec(s.db.Rebind(
		`INSERT INTO queue (trackid, enqueued_at, playing) VALUES (?, ?, `+s.boolLit(false)+`)`),
		trackID, enqueuedAt)
	if err != nil {
		return fmt.Errorf("failed to insert queue entry: %w", err)
	}
	return nil
}

// NextPending returns the earliest pending entry by (enqueued_at, id),
// or ErrNotFound when nothing is pending.
func (s *Store) NextPending() (QueueEntry, error) {
	var e QueueEntry
	err := s.db.Get(&e,
		`SELECT id, trackid, enqueued_at, playing FROM queue
		 WHERE playing = `+s.boolLit(false)+`
		 ORDER BY enqueued_at, id LIMIT 1`)
	return e, notFound(err)
}

// SetQueuePlaying flips the playing mark on an entry. Unknown ids are a
// no-op.
func (s *Store) SetQueuePlaying(id int64, playing bool) error {
	_, err := s.db.Exec(s.db.Rebind(
		`UPDATE queue SET playing = `+s.boolLit(playing)+` WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to update queue entry: %w", err)
	}
	return nil
}

// DeleteQueueEntry removes an entry unconditionally. Unknown ids are a
// no-op.
func (s *Store) DeleteQueueEntry(id int64) error {
	_, err := s.db.Exec(s.db.Rebind(`DELETE FROM queue WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete queue entry: %w", err)
	}
	return nil
}

// DeleteQueuePending removes every entry not currently playing.
func (s *Store) DeleteQueuePending() error {
	_, err := s.db.Exec(`DELETE FROM queue WHERE playing = ` + s.boolLit(false))
	if err != nil {
		return fmt.Errorf("failed to purge pending queue entries: %w", err)
	}
	return nil
}

// DeleteQueueAll removes every entry, playing or not.
func (s *Store) DeleteQueueAll() error {
	_, err := s.db.Exec(`DELETE FROM queue`)
	if err != nil {
		return fmt.Errorf("failed to clear queue: %w", err)
	}
	return nil
}

// QueueEntries lists all entries ordered by (enqueued_at, id). Each call
// re-queries current state.
func (s *Store) QueueEntries() ([]QueueEntry, error) {
	var entries []QueueEntry
	err := s.db.Select(&entries,
		`SELECT id, trackid, enqueued_at, playing FROM queue ORDER BY enqueued_at, id`)
	return entries, err
}

// QueueEntryByID fetches a single entry.
func (s *Store) QueueEntryByID(id int64) (QueueEntry, error) {
	var e QueueEntry
	err := s.db.Get(&e, s.db.Rebind(
		`SELECT id, trackid, enqueued_at, playing FROM queue WHERE id = ?`), id)
	return e, notFound(err)
}
