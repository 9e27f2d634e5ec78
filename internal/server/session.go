package server

import (
	"bufio"
	"fmt"
	"log"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"jukeboxd/internal/auth"
	"jukeboxd/internal/ident"
	"jukeboxd/internal/player"
	"jukeboxd/internal/volume"
)

type sessionState int

const (
	stateConnected sessionState = iota
	stateAuthenticated
)

// Session is one connected client: its connection, authentication state
// and update subscription.
type Session struct {
	id   uuid.UUID
	srv  *Server
	conn net.Conn

	mu      sync.Mutex
	state   sessionState
	user    auth.User
	updates bool

	// pending is the identity named by USER. It becomes the session's
	// user only after PASS or IDENT verifies it.
	pending    auth.User
	hasPending bool
}

func newSession(srv *Server, conn net.Conn) *Session {
	return &Session{
		id:   uuid.New(),
		srv:  srv,
		conn: conn,
	}
}

// serve greets the client and handles commands until the connection
// ends or the client disconnects.
func (sess *Session) serve() {
	sess.send(msgWelcome)

	reader := bufio.NewReader(sess.conn)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		cmd, arg := splitCommand(strings.TrimRight(line, "\r\n"))
		if sess.dispatch(strings.ToLower(cmd), arg) {
			return
		}
	}
}

// splitCommand separates the command word from its argument. Extra
// spaces between them are skipped; the argument itself is untouched.
func splitCommand(line string) (string, string) {
	idx := strings.IndexByte(line, ' ')
	if idx < 0 {
		return line, ""
	}
	return line[:idx], strings.TrimLeft(line[idx+1:], " ")
}

func (sess *Session) send(msg string) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if _, err := sess.conn.Write([]byte(msg)); err != nil {
		log.Printf("[SERVER] Write to client %s failed: %v", sess.id, err)
	}
}

func (sess *Session) sendf(format string, args ...interface{}) {
	sess.send(fmt.Sprintf(format, args...))
}

// updateWriteTimeout bounds broadcast writes. Updates are best effort;
// a subscriber that stops draining its socket only loses its own updates.
const updateWriteTimeout = time.Second

func (sess *Session) sendUpdate(msg string) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.conn.SetWriteDeadline(time.Now().Add(updateWriteTimeout))
	defer sess.conn.SetWriteDeadline(time.Time{})
	if _, err := sess.conn.Write([]byte(msg)); err != nil {
		log.Printf("[SERVER] Update to client %s dropped: %v", sess.id, err)
	}
}

func (sess *Session) wantsUpdates() bool {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.updates
}

// authenticatedUser returns the username when the session has completed
// authentication.
func (sess *Session) authenticatedUser() (string, bool) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.state != stateAuthenticated {
		return "", false
	}
	return sess.user.Username, true
}

// dispatch runs one command. It reports whether the session should end.
func (sess *Session) dispatch(cmd, arg string) bool {
	switch cmd {
	case "help":
		sess.send(helpText)
		return false
	case "exit", "disconnect", "disc", "bye":
		sess.send(msgBye)
		return true
	case "user":
		sess.cmdUser(arg)
		return false
	case "pass", "password":
		sess.cmdPassword(arg)
		return false
	case "ident":
		sess.cmdIdent()
		return false
	case "stat", "status":
		if sess.state == stateConnected && !sess.srv.config.Get().IsAnonymousStatusAllowed() {
			sess.send(msgMustAuth)
			return false
		}
		sess.cmdStatus()
		return false
	}

	// everything below requires authentication
	if sess.state == stateConnected {
		sess.send(msgMustAuth)
		return false
	}

	switch cmd {
	case "users":
		sess.cmdUsers()
		return false
	case "queue", "q":
		sess.cmdQueue()
		return false
	}

	// a locked player shuts out everyone below admin
	if sess.srv.player.Locked() && sess.user.Level < auth.LevelAdmin {
		sess.send(msgLockErr)
		return false
	}

	switch cmd {
	case "pause":
		sess.cmdPause()
	case "continue", "cont":
		sess.cmdResume()
	case "stop":
		sess.cmdStop()
	case "play":
		sess.cmdPlay()
	case "next", "skip":
		sess.cmdSkip()
	case "random", "rand":
		sess.cmdRandom(arg)
	case "remove", "rem":
		sess.cmdRemove(arg)
	case "lock":
		sess.cmdLock()
	case "unlock":
		sess.cmdUnlock()
	case "clear":
		sess.cmdClear()
	case "albums":
		sess.cmdAlbums()
	case "artists":
		sess.cmdArtists()
	case "enqueuetrack":
		sess.cmdEnqueueTrack(arg)
	case "enqueuealbum":
		sess.cmdEnqueueAlbum(arg)
	case "listalbum":
		sess.cmdListAlbum(arg)
	case "getalbum":
		sess.cmdGetAlbum(arg)
	case "getartist":
		sess.cmdGetArtist(arg)
	case "gettrack":
		sess.cmdGetTrack(arg)
	case "artistalbums":
		sess.cmdArtistAlbums(arg)
	case "volume":
		sess.cmdVolume(arg)
	case "volup":
		sess.cmdVolumeUp()
	case "voldn":
		sess.cmdVolumeDown()
	case "updates":
		sess.cmdUpdates(arg)
	default:
		sess.send(msgUnknown)
	}
	return false
}

// checkPriv verifies the session's privilege for a command, complaining
// to the client when it falls short.
func (sess *Session) checkPriv(cmd string) bool {
	if !sess.srv.config.Get().CheckRight(cmd, sess.user.Level) {
		sess.send(msgNoPrivs)
		return false
	}
	return true
}

func (sess *Session) cmdUser(arg string) {
	user, ok := sess.srv.users.FetchByName(arg)
	if !ok {
		sess.send(msgNoUser)
		return
	}
	sess.pending = user
	sess.hasPending = true
	sess.send(msgUserOK)
}

func (sess *Session) cmdPassword(arg string) {
	if !sess.hasPending {
		sess.send(msgUserFirst)
		return
	}
	if !sess.srv.users.VerifyPassword(sess.pending, arg) {
		sess.send(msgBadPass)
		log.Printf("[AUTH] User %s supplied a bad password", sess.pending.Username)
		return
	}
	sess.mu.Lock()
	sess.user = sess.pending
	sess.state = stateAuthenticated
	sess.mu.Unlock()
	sess.sendf(msgPassOK, sess.user.Username)
}

func (sess *Session) cmdIdent() {
	if !sess.hasPending {
		sess.send(msgUserFirst)
		return
	}
	cfg := sess.srv.config.Get()
	if !cfg.IsIdentAllowed() {
		sess.send(msgNoIdent)
		return
	}

	host, portStr, err := net.SplitHostPort(sess.conn.RemoteAddr().String())
	if err != nil {
		sess.send(msgIdentFail)
		return
	}
	if !cfg.IdentAllowedFrom(host) {
		sess.send(msgNoIdentHost)
		return
	}
	clientPort, _ := strconv.Atoi(portStr)
	serverPort := 0
	if _, p, err := net.SplitHostPort(sess.conn.LocalAddr().String()); err == nil {
		serverPort, _ = strconv.Atoi(p)
	}

	if !ident.Verify(host, clientPort, serverPort, sess.pending.Username) {
		sess.send(msgIdentFail)
		return
	}
	sess.mu.Lock()
	sess.user = sess.pending
	sess.state = stateAuthenticated
	sess.mu.Unlock()
	sess.sendf(msgPassOK, sess.user.Username)
}

func (sess *Session) cmdStatus() {
	p := sess.srv.player
	status := p.Status()

	if status == player.StatusIdle {
		sess.sendf(msgStatus, status.Char(), yesNo(sess.srv.queue.Random()), yesNo(p.Locked()), "", "")
		return
	}

	title, artist := "?", "?"
	if tr, err := sess.srv.store.TrackByID(p.TrackID()); err == nil {
		title = tr.Title
		if a, err := sess.srv.store.ArtistByID(tr.ArtistID); err == nil {
			artist = a.Name
		}
	}
	sess.sendf(msgStatus, status.Char(), yesNo(sess.srv.queue.Random()), yesNo(p.Locked()), title, artist)
}

func (sess *Session) cmdUsers() {
	for _, name := range sess.srv.authenticatedUsers() {
		sess.sendf(msgUserList, name)
	}
	sess.send(msgUsersListed)
}

func (sess *Session) cmdPause() {
	if !sess.checkPriv("pause") {
		return
	}
	sess.srv.player.Pause()
	sess.send(msgPaused)
	sess.srv.SendUpdate(fmt.Sprintf(updateSong, 'p', "", ""))
	log.Printf("[SERVER] Playback paused by %s", sess.user.Username)
}

func (sess *Session) cmdResume() {
	if !sess.checkPriv("continue") {
		return
	}
	sess.srv.player.Resume()
	sess.send(msgResumed)
	sess.srv.SendUpdate(fmt.Sprintf(updateSong, 'P', "", ""))
	log.Printf("[SERVER] Playback resumed by %s", sess.user.Username)
}

func (sess *Session) cmdStop() {
	if !sess.checkPriv("stop") {
		return
	}
	sess.srv.player.Stop()
	sess.send(msgStopped)
	sess.srv.SendUpdate(fmt.Sprintf(updateSong, 'I', "", ""))
	log.Printf("[SERVER] Playback stopped by %s", sess.user.Username)
}

func (sess *Session) cmdPlay() {
	if !sess.checkPriv("play") {
		return
	}
	switch sess.srv.player.Status() {
	case player.StatusPaused:
		sess.srv.player.Resume()
		sess.send(msgResumed)
		log.Printf("[SERVER] Playback resumed by %s", sess.user.Username)
	case player.StatusPlaying:
		sess.send(msgAlreadyPlaying)
	default:
		sess.srv.player.Play()
		sess.send(msgStarted)
		log.Printf("[SERVER] Playback started by %s", sess.user.Username)
	}
}

func (sess *Session) cmdSkip() {
	if !sess.checkPriv("next") {
		return
	}
	if sess.srv.player.Status() != player.StatusPlaying {
		sess.send(msgNotPlaying)
		return
	}
	sess.srv.player.Next()
	sess.sendf(msgSkipped, sess.user.Username)
	log.Printf("[SERVER] Track skipped by %s", sess.user.Username)
}

func (sess *Session) cmdRandom(arg string) {
	if !sess.checkPriv("random") {
		return
	}
	on, ok := parseYesNo(arg)
	if !ok {
		sess.send(msgYesOrNo)
		return
	}
	if err := sess.srv.queue.SetRandom(on); err != nil {
		log.Printf("[SERVER] Cannot set random mode: %v", err)
	}
	if on {
		sess.send(msgRandomOn)
		log.Printf("[SERVER] Random play enabled by %s", sess.user.Username)
	} else {
		sess.send(msgRandomOff)
		log.Printf("[SERVER] Random play disabled by %s", sess.user.Username)
	}
}

func (sess *Session) cmdQueue() {
	entries, err := sess.srv.queue.List()
	if err != nil {
		log.Printf("[SERVER] Cannot list queue: %v", err)
	}
	for _, e := range entries {
		sess.sendf(msgQueueItem, e.ID, e.Track, e.Artist)
	}
	sess.send(msgQueueDone)
}

func (sess *Session) cmdRemove(arg string) {
	if !sess.checkPriv("remove") {
		return
	}
	id, ok := parseID(arg)
	if !ok {
		sess.send(msgRemoveSyn)
		return
	}

	if sess.srv.config.Get().Log.Remove {
		title, artist := "?", "?"
		if tr, err := sess.srv.queue.TrackFor(id); err == nil {
			title = tr.Title
			if a, err := sess.srv.store.ArtistByID(tr.ArtistID); err == nil {
				artist = a.Name
			}
		}
		log.Printf("[SERVER] Track %s - %s removed by %s", artist, title, sess.user.Username)
	} else {
		log.Printf("[SERVER] Queue item removed by %s", sess.user.Username)
	}

	// removing the playing item means skipping it
	if sess.srv.player.QueueEntryID() == id {
		sess.srv.player.Next()
	} else if err := sess.srv.queue.Remove(id); err != nil {
		log.Printf("[SERVER] Cannot remove queue item %d: %v", id, err)
	}
	sess.send(msgRemoveOK)
}

func (sess *Session) cmdLock() {
	if !sess.checkPriv("lock") {
		return
	}
	sess.srv.player.Lock()
	sess.send(msgLocked)
	log.Printf("[SERVER] Jukebox locked by %s", sess.user.Username)
}

func (sess *Session) cmdUnlock() {
	if !sess.checkPriv("unlock") {
		return
	}
	sess.srv.player.Unlock()
	sess.send(msgUnlocked)
	log.Printf("[SERVER] Jukebox unlocked by %s", sess.user.Username)
}

func (sess *Session) cmdClear() {
	if !sess.checkPriv("clear") {
		return
	}
	if err := sess.srv.queue.Clear(); err != nil {
		log.Printf("[SERVER] Cannot clear queue: %v", err)
	}
	sess.send(msgCleared)
	log.Printf("[SERVER] Jukebox cleared by %s", sess.user.Username)
}

func (sess *Session) cmdAlbums() {
	albums, err := sess.srv.store.Albums()
	if err != nil {
		log.Printf("[SERVER] Cannot list albums: %v", err)
	}
	for _, a := range albums {
		sess.sendf(msgAlbum, a.ID, a.ArtistID, a.Name)
	}
	sess.send(msgAlbumEnd)
}

func (sess *Session) cmdArtists() {
	artists, err := sess.srv.store.Artists()
	if err != nil {
		log.Printf("[SERVER] Cannot list artists: %v", err)
	}
	for _, a := range artists {
		sess.sendf(msgArtist, a.ID, a.Name)
	}
	sess.send(msgArtistEnd)
}

func (sess *Session) cmdEnqueueTrack(arg string) {
	if !sess.checkPriv("enqueuetrack") {
		return
	}
	id, ok := parseID(arg)
	if !ok {
		sess.send(msgNumberSyn)
		return
	}
	if err := sess.srv.queue.EnqueueTrack(id); err != nil {
		sess.send(msgNoTrack)
		return
	}
	sess.send(msgEnqueueOK)

	if sess.srv.config.Get().Log.Enqueue {
		title, artist := "?", "?"
		if tr, err := sess.srv.store.TrackByID(id); err == nil {
			title = tr.Title
			if a, err := sess.srv.store.ArtistByID(tr.ArtistID); err == nil {
				artist = a.Name
			}
		}
		log.Printf("[SERVER] Track %s - %s enqueued by %s", artist, title, sess.user.Username)
	}
}

func (sess *Session) cmdEnqueueAlbum(arg string) {
	if !sess.checkPriv("enqueuealbum") {
		return
	}
	id, ok := parseID(arg)
	if !ok {
		sess.send(msgNumberSyn)
		return
	}
	if err := sess.srv.queue.EnqueueAlbum(id); err != nil {
		sess.send(msgNoAlbum)
		return
	}
	sess.send(msgEnqueueOK)

	if sess.srv.config.Get().Log.Enqueue {
		name, artist := "?", "?"
		if album, err := sess.srv.store.AlbumByID(id); err == nil {
			name = album.Name
			if a, err := sess.srv.store.ArtistByID(album.ArtistID); err == nil {
				artist = a.Name
			}
		}
		log.Printf("[SERVER] Album %s - %s enqueued by %s", artist, name, sess.user.Username)
	}
}

func (sess *Session) cmdListAlbum(arg string) {
	id, ok := parseID(arg)
	if !ok {
		sess.send(msgNumberSyn)
		return
	}
	if _, err := sess.srv.store.AlbumByID(id); err != nil {
		sess.send(msgNoAlbum)
		return
	}
	trackIDs, err := sess.srv.store.AlbumTrackIDs(id)
	if err != nil {
		log.Printf("[SERVER] Cannot list album %d: %v", id, err)
	}
	for _, trackID := range trackIDs {
		tr, err := sess.srv.store.TrackByID(trackID)
		if err != nil {
			continue
		}
		sess.sendf(msgTrack, tr.ID, tr.Title)
	}
	sess.send(msgListOK)
}

func (sess *Session) cmdGetAlbum(arg string) {
	id, ok := parseID(arg)
	if !ok {
		sess.send(msgNumberSyn)
		return
	}
	a, err := sess.srv.store.AlbumByID(id)
	if err != nil {
		sess.send(msgNoAlbum)
		return
	}
	sess.sendf(msgAlbum, a.ID, a.ArtistID, a.Name)
}

func (sess *Session) cmdGetArtist(arg string) {
	id, ok := parseID(arg)
	if !ok {
		sess.send(msgNumberSyn)
		return
	}
	a, err := sess.srv.store.ArtistByID(id)
	if err != nil {
		sess.send(msgNoArtist)
		return
	}
	sess.sendf(msgArtist, a.ID, a.Name)
}

func (sess *Session) cmdGetTrack(arg string) {
	id, ok := parseID(arg)
	if !ok {
		sess.send(msgNumberSyn)
		return
	}
	tr, err := sess.srv.store.TrackByID(id)
	if err != nil {
		sess.send(msgNoTrack)
		return
	}
	sess.sendf(msgTrack, tr.ID, tr.Title)
}

func (sess *Session) cmdArtistAlbums(arg string) {
	id, ok := parseID(arg)
	if !ok {
		sess.send(msgNumberSyn)
		return
	}
	albums, err := sess.srv.store.AlbumsByArtist(id)
	if err != nil {
		log.Printf("[SERVER] Cannot list albums of artist %d: %v", id, err)
	}
	for _, a := range albums {
		sess.sendf(msgAlbum, a.ID, a.ArtistID, a.Name)
	}
	sess.send(msgAlbumEnd)
}

func (sess *Session) cmdVolume(arg string) {
	if !sess.checkPriv("volume") {
		return
	}
	vol := sess.srv.volume
	if !vol.Available() {
		sess.send(msgNoVolume)
		return
	}

	level, ok := parseID(arg)
	if !ok {
		// no usable argument: report the current volume instead
		current, err := vol.Get()
		if err != nil {
			log.Printf("[SERVER] Cannot read volume: %v", err)
			sess.send(msgNoVolume)
			return
		}
		sess.sendf(msgVolume, current)
		return
	}

	if err := vol.Set(int(level)); err != nil {
		log.Printf("[SERVER] Cannot set volume: %v", err)
		sess.send(msgNoVolume)
		return
	}
	sess.send(msgVolumeOK)
}

func (sess *Session) cmdVolumeUp() {
	sess.stepVolume(volume.StepSize)
}

func (sess *Session) cmdVolumeDown() {
	sess.stepVolume(-volume.StepSize)
}

func (sess *Session) stepVolume(delta int) {
	if !sess.checkPriv("volume") {
		return
	}
	vol := sess.srv.volume
	if !vol.Available() {
		sess.send(msgNoVolume)
		return
	}
	current, err := vol.Get()
	if err != nil {
		log.Printf("[SERVER] Cannot read volume: %v", err)
		sess.send(msgNoVolume)
		return
	}
	if err := vol.Set(current + delta); err != nil {
		log.Printf("[SERVER] Cannot set volume: %v", err)
		sess.send(msgNoVolume)
		return
	}
	sess.send(msgVolumeOK)
}

func (sess *Session) cmdUpdates(arg string) {
	if !sess.checkPriv("updates") {
		return
	}
	on, ok := parseYesNo(arg)
	if !ok {
		sess.send(msgYesOrNo)
		return
	}
	sess.mu.Lock()
	sess.updates = on
	sess.mu.Unlock()
	if on {
		sess.send(msgUpdatesOn)
	} else {
		sess.send(msgUpdatesOff)
	}
}

func parseYesNo(arg string) (bool, bool) {
	switch strings.ToLower(arg) {
	case "yes":
		return true, true
	case "no":
		return false, true
	default:
		return false, false
	}
}

func parseID(arg string) (int64, bool) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func yesNo(v bool) byte {
	if v {
		return 'Y'
	}
	return 'N'
}
