// Package player supervises the external decoder process.
package player

import (
	"log"
	"strings"
	"sync"
	"syscall"

	"jukeboxd/internal/config"
	"jukeboxd/internal/queue"
	"jukeboxd/internal/store"
)

// Status is the playback state of the supervisor.
type Status int

const (
	StatusIdle Status = iota
	StatusPlaying
	StatusPaused
)

// Char returns the single-character status code used on the wire.
func (s Status) Char() byte {
	switch s {
	case StatusPlaying:
		return 'P'
	case StatusPaused:
		return 'p'
	default:
		return 'I'
	}
}

// Notifier receives song change notifications for broadcasting to clients.
type Notifier func(status byte, artist, title string)

// process pairs a decoder handle with its exit signal. done is closed by
// the watcher goroutine after Wait returns.
type process struct {
	handle Handle
	done   chan struct{}
}

// Supervisor owns at most one decoder process and advances through the
// queue as tracks finish. All methods are safe for concurrent use.
type Supervisor struct {
	mu      sync.Mutex
	status  Status
	locked  bool
	entryID int64
	trackID int64
	proc    *process

	runner Runner
	queue  *queue.Manager
	store  *store.Store
	config *config.Manager
	notify Notifier
}

// NewSupervisor creates an idle supervisor.
func NewSupervisor(r Runner, q *queue.Manager, s *store.Store, cfg *config.Manager) *Supervisor {
	return &Supervisor{
		runner: r,
		queue:  q,
		store:  s,
		config: cfg,
		notify: func(byte, string, string) {},
	}
}

// OnSongChange registers the callback invoked when a new track starts.
func (s *Supervisor) OnSongChange(n Notifier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notify = n
}

// Status returns the current playback state.
func (s *Supervisor) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// TrackID returns the track currently loaded, or 0 when idle.
func (s *Supervisor) TrackID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trackID
}

// QueueEntryID returns the queue entry currently loaded, or 0 when none.
func (s *Supervisor) QueueEntryID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entryID
}

// Locked reports whether the player is locked against unprivileged control.
func (s *Supervisor) Locked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locked
}

// Lock locks the player.
func (s *Supervisor) Lock() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locked = true
}

// Unlock unlocks the player.
func (s *Supervisor) Unlock() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locked = false
}

// Play starts playback when idle. It does nothing while playing or paused.
func (s *Supervisor) Play() {
	s.mu.Lock()

	if s.status != StatusIdle {
		s.mu.Unlock()
		return
	}
	s.status = StatusPlaying
	s.launchAndNotify()
}

// Pause suspends the decoder process.
func (s *Supervisor) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusPlaying {
		return
	}
	s.status = StatusPaused
	if s.proc != nil {
		if err := s.proc.handle.Signal(syscall.SIGSTOP); err != nil {
			log.Printf("[PLAYER] SIGSTOP failed: %v", err)
		}
	}
}

// Resume continues a paused decoder process.
func (s *Supervisor) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusPaused {
		return
	}
	s.status = StatusPlaying
	if s.proc != nil {
		if err := s.proc.handle.Signal(syscall.SIGCONT); err != nil {
			log.Printf("[PLAYER] SIGCONT failed: %v", err)
		}
	}
}

// Stop kills the decoder and waits for it to be reaped. The current queue
// entry stays in the queue, marked not playing.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stop()
}

func (s *Supervisor) stop() {
	if s.status == StatusIdle {
		return
	}
	s.status = StatusIdle

	if p := s.proc; p != nil {
		// Detach first so handleExit ignores the kill-initiated wait
		s.proc = nil
		if err := p.handle.Kill(); err != nil {
			log.Printf("[PLAYER] Kill failed: %v", err)
		}
		// Safe to block while holding the mutex: the watcher closes done
		// before it tries to take the lock
		<-p.done
	}

	if s.entryID != 0 {
		if err := s.queue.MarkStopped(s.entryID); err != nil {
			log.Printf("[PLAYER] Cannot unmark entry %d: %v", s.entryID, err)
		}
	}
	s.trackID = 0
}

// Next stops the current track, drops its queue entry and starts the next.
func (s *Supervisor) Next() {
	s.mu.Lock()

	s.stop()
	if s.entryID != 0 {
		if err := s.queue.Remove(s.entryID); err != nil {
			log.Printf("[PLAYER] Cannot remove entry %d: %v", s.entryID, err)
		}
		s.entryID = 0
	}
	s.status = StatusPlaying
	s.launchAndNotify()
}

// launchAndNotify advances playback and releases the mutex before the
// now-playing notification goes out. A subscriber whose connection has
// stopped draining must not hold up playback control.
func (s *Supervisor) launchAndNotify() {
	note := s.launch()
	notify := s.notify
	s.mu.Unlock()
	if note != nil {
		notify('N', note.artist, note.title)
	}
}

// songNote is a now-playing notification waiting to be delivered.
type songNote struct {
	artist string
	title  string
}

// launch consumes the previous queue entry, pulls the next one and starts
// a decoder for it. Called with the mutex held and status Playing. Any
// resolution failure drops the pulled entry and returns to idle. The
// returned note, if any, is delivered by the caller after unlocking.
func (s *Supervisor) launch() *songNote {
	if s.status == StatusIdle {
		return nil
	}

	if s.entryID != 0 {
		if err := s.queue.Remove(s.entryID); err != nil {
			log.Printf("[PLAYER] Cannot remove entry %d: %v", s.entryID, err)
		}
		s.entryID = 0
	}

	e, err := s.queue.Next()
	if err != nil {
		s.status = StatusIdle
		s.trackID = 0
		return nil
	}
	s.entryID = e.ID

	tr, err := s.store.TrackByID(e.TrackID)
	if err != nil {
		log.Printf("[PLAYER] Track %d from queue doesn't exist: %v", e.TrackID, err)
		s.abort()
		return nil
	}

	artist := "?"
	if a, err := s.store.ArtistByID(tr.ArtistID); err == nil {
		artist = a.Name
	}

	if err := s.store.IncrementPlayCount(tr.ID); err != nil {
		log.Printf("[PLAYER] Cannot bump play count of track %d: %v", tr.ID, err)
	}

	dot := strings.LastIndexByte(tr.Filename, '.')
	if dot < 0 {
		log.Printf("[PLAYER] Track %d ['%s'] has a filename without extension, skipped", tr.ID, tr.Filename)
		s.abort()
		return nil
	}
	command, ok := s.config.Get().PlayerFor(tr.Filename[dot+1:])
	if !ok {
		log.Printf("[PLAYER] No registered player for '%s' files", tr.Filename[dot+1:])
		s.abort()
		return nil
	}

	log.Printf("[PLAYER] Now playing %s - %s", artist, tr.Title)

	if err := s.queue.MarkPlaying(e.ID); err != nil {
		log.Printf("[PLAYER] Cannot mark entry %d playing: %v", e.ID, err)
	}

	h, err := s.runner.Start(command, tr.Filename)
	if err != nil {
		log.Printf("[PLAYER] Player '%s' didn't start: %v", command, err)
		s.abort()
		return nil
	}

	s.trackID = tr.ID
	p := &process{handle: h, done: make(chan struct{})}
	s.proc = p
	go s.watch(p)
	return &songNote{artist: artist, title: tr.Title}
}

// abort drops the consumed queue entry and goes idle.
func (s *Supervisor) abort() {
	if s.entryID != 0 {
		if err := s.queue.Remove(s.entryID); err != nil {
			log.Printf("[PLAYER] Cannot remove entry %d: %v", s.entryID, err)
		}
		s.entryID = 0
	}
	s.status = StatusIdle
	s.trackID = 0
}

// watch reaps the decoder process and advances to the next track.
func (s *Supervisor) watch(p *process) {
	if err := p.handle.Wait(); err != nil {
		log.Printf("[PLAYER] Decoder exited: %v", err)
	}
	close(p.done)
	s.handleExit(p)
}

// handleExit runs after a decoder process ends on its own. Exits of
// processes the supervisor no longer owns are ignored.
func (s *Supervisor) handleExit(p *process) {
	s.mu.Lock()

	if s.proc != p {
		s.mu.Unlock()
		return
	}
	s.proc = nil
	if s.status == StatusIdle {
		s.mu.Unlock()
		return
	}
	s.status = StatusPlaying
	s.launchAndNotify()
}
