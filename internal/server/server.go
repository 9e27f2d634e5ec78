// Package server accepts client connections and serves the line-based
// jukebox control protocol.
package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"sync"

	"jukeboxd/internal/auth"
	"jukeboxd/internal/config"
	"jukeboxd/internal/player"
	"jukeboxd/internal/queue"
	"jukeboxd/internal/store"
	"jukeboxd/internal/volume"
)

// Server handles client connections on a TCP socket.
type Server struct {
	addr     string
	config   *config.Manager
	store    *store.Store
	queue    *queue.Manager
	player   *player.Supervisor
	users    auth.Chain
	volume   volume.Manager
	listener net.Listener

	mu       sync.Mutex
	sessions map[*Session]struct{}
}

// NewServer creates a server and hooks the player's song change
// notifications up to the update broadcast.
func NewServer(addr string, cfg *config.Manager, st *store.Store, q *queue.Manager, p *player.Supervisor, users auth.Chain, vol volume.Manager) *Server {
	s := &Server{
		addr:     addr,
		config:   cfg,
		store:    st,
		queue:    q,
		player:   p,
		users:    users,
		volume:   vol,
		sessions: make(map[*Session]struct{}),
	}

	p.OnSongChange(func(status byte, artist, title string) {
		s.SendUpdate(fmt.Sprintf(updateSong, status, artist, title))
	})

	return s
}

// Start listens on the configured address and serves clients until the
// context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	log.Printf("[SERVER] Listening on %s", s.addr)

	go s.acceptLoop(ctx)

	<-ctx.Done()

	log.Printf("[SERVER] Shutting down...")

	s.mu.Lock()
	count := len(s.sessions)
	for sess := range s.sessions {
		sess.conn.Close()
	}
	s.mu.Unlock()

	log.Printf("[SERVER] Closed %d client connections", count)

	listener.Close()
	return nil
}

// Addr returns the bound listen address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) acceptLoop(ctx context.Context) {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
				log.Printf("[SERVER] Accept error: %v", err)
				continue
			}
		}
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	sess := newSession(s, conn)

	s.mu.Lock()
	s.sessions[sess] = struct{}{}
	count := len(s.sessions)
	s.mu.Unlock()

	log.Printf("[SERVER] Client %s connected from %s (%d active)", sess.id, conn.RemoteAddr(), count)

	sess.serve()

	conn.Close()
	s.mu.Lock()
	delete(s.sessions, sess)
	count = len(s.sessions)
	s.mu.Unlock()

	log.Printf("[SERVER] Client %s disconnected (%d active)", sess.id, count)
}

// SendUpdate sends a message to every session that asked for updates.
// Delivery is fire and forget; a failed write only affects that client.
func (s *Server) SendUpdate(msg string) {
	for _, sess := range s.snapshot() {
		if sess.wantsUpdates() {
			sess.sendUpdate(msg)
		}
	}
}

// authenticatedUsers lists the usernames of all authenticated sessions.
func (s *Server) authenticatedUsers() []string {
	var names []string
	for _, sess := range s.snapshot() {
		if name, ok := sess.authenticatedUser(); ok {
			names = append(names, name)
		}
	}
	return names
}

func (s *Server) snapshot() []*Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sessions := make([]*Session, 0, len(s.sessions))
	for sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	return sessions
}
