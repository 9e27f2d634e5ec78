package server

import (
	"bufio"
	"bytes"
	"fmt"
	"log"
	"net"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"jukeboxd/internal/auth"
	"jukeboxd/internal/config"
	"jukeboxd/internal/player"
	"jukeboxd/internal/queue"
	"jukeboxd/internal/store"
	"jukeboxd/internal/volume"
)

type fakeHandle struct {
	exit chan struct{}
	once sync.Once
}

func (h *fakeHandle) Signal(os.Signal) error { return nil }
func (h *fakeHandle) Kill() error            { h.finish(); return nil }
func (h *fakeHandle) Wait() error            { <-h.exit; return nil }
func (h *fakeHandle) finish()                { h.once.Do(func() { close(h.exit) }) }

type fakeRunner struct {
	mu    sync.Mutex
	files []string
}

func (r *fakeRunner) Start(command, filename string) (player.Handle, error) {
	r.mu.Lock()
	r.files = append(r.files, filename)
	r.mu.Unlock()
	return &fakeHandle{exit: make(chan struct{})}, nil
}

func (r *fakeRunner) playedFiles() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.files...)
}

func newTestServer(t *testing.T) (*Server, *fakeRunner, *store.Store) {
	t.Helper()
	st, err := store.Open("sqlite://:memory:")
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	if err := st.InsertArtist(store.Artist{ID: 1, Name: "TheEnds"}); err != nil {
		t.Fatal(err)
	}
	if err := st.InsertAlbum(store.Album{ID: 1, ArtistID: 1, Name: "First Light"}); err != nil {
		t.Fatal(err)
	}
	tracks := []store.Track{
		{ID: 10, ArtistID: 1, AlbumID: 1, Title: "Opener", Filename: "/music/opener.mp3", TrackNo: 1},
		{ID: 11, ArtistID: 1, AlbumID: 1, Title: "Middle", Filename: "/music/middle.mp3", TrackNo: 2},
	}
	for _, tr := range tracks {
		if err := st.InsertTrack(tr); err != nil {
			t.Fatal(err)
		}
	}

	cfg := config.NewManager(t.TempDir() + "/config.json")
	cfg.Get().Players = map[string]string{"mp3": "/usr/bin/mpg123 -q"}
	cfg.Get().Users = []config.StaticUser{
		{ID: 1, Username: "joe", Password: "secret", Level: "user"},
		{ID: 2, Username: "root", Password: "toor", Level: "admin"},
	}

	users := auth.Chain{auth.NewStaticProvider(cfg.Get().StaticAuthUsers())}
	q := queue.NewManager(st)
	r := &fakeRunner{}
	p := player.NewSupervisor(r, q, st, cfg)
	srv := NewServer(":0", cfg, st, q, p, users, volume.Unavailable{})
	return srv, r, st
}

type testClient struct {
	t    *testing.T
	conn net.Conn
	r    *bufio.Reader
}

func connect(t *testing.T, srv *Server) *testClient {
	t.Helper()
	client, server := net.Pipe()
	go srv.handleConnection(server)
	t.Cleanup(func() { client.Close() })

	c := &testClient{t: t, conn: client, r: bufio.NewReader(client)}
	c.expect(msgWelcome)
	return c
}

func (c *testClient) sendLine(line string) {
	c.t.Helper()
	c.conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
	if _, err := fmt.Fprintf(c.conn, "%s\n", line); err != nil {
		c.t.Fatalf("write %q failed: %v", line, err)
	}
}

func (c *testClient) readLine() string {
	c.t.Helper()
	c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err := c.r.ReadString('\n')
	if err != nil {
		c.t.Fatalf("read failed: %v", err)
	}
	return line
}

// expect reads one line and compares it with the wanted message, which
// may contain its trailing newline.
func (c *testClient) expect(want string) {
	c.t.Helper()
	if got := c.readLine(); got != want {
		c.t.Fatalf("got %q, want %q", got, want)
	}
}

func (c *testClient) expectf(format string, args ...interface{}) {
	c.t.Helper()
	c.expect(fmt.Sprintf(format, args...))
}

// login authenticates the client with USER and PASS.
func (c *testClient) login(user, pass string) {
	c.t.Helper()
	c.sendLine("user " + user)
	c.expect(msgUserOK)
	c.sendLine("pass " + pass)
	c.expectf(msgPassOK, user)
}

func TestUnknownCommand(t *testing.T) {
	srv, _, _ := newTestServer(t)
	c := connect(t, srv)

	c.login("joe", "secret")
	c.sendLine("frobnicate")
	c.expect(msgUnknown)
}

func TestMustAuthenticateFirst(t *testing.T) {
	srv, _, _ := newTestServer(t)
	c := connect(t, srv)

	c.sendLine("queue")
	c.expect(msgMustAuth)
	c.sendLine("play")
	c.expect(msgMustAuth)
	c.sendLine("status")
	c.expect(msgMustAuth)
}

func TestAnonymousStatusAllowed(t *testing.T) {
	srv, _, _ := newTestServer(t)
	srv.config.Get().AllowAnonymousStatus = true
	c := connect(t, srv)

	c.sendLine("status")
	c.expectf(msgStatus, 'I', 'N', 'N', "", "")
}

func TestPasswordBeforeUser(t *testing.T) {
	srv, _, _ := newTestServer(t)
	c := connect(t, srv)

	c.sendLine("pass secret")
	c.expect(msgUserFirst)
}

func TestUnknownUser(t *testing.T) {
	srv, _, _ := newTestServer(t)
	c := connect(t, srv)

	c.sendLine("user nobody")
	c.expect(msgNoUser)
}

func TestWrongThenRightPassword(t *testing.T) {
	srv, _, _ := newTestServer(t)
	c := connect(t, srv)

	c.sendLine("user joe")
	c.expect(msgUserOK)
	c.sendLine("pass wrong")
	c.expect(msgBadPass)
	c.sendLine("pass secret")
	c.expectf(msgPassOK, "joe")

	// now authenticated
	c.sendLine("queue")
	c.expect(msgQueueDone)
}

func TestUserSwitchNeedsPassword(t *testing.T) {
	srv, _, _ := newTestServer(t)
	c := connect(t, srv)
	c.login("joe", "secret")

	// naming the admin must not grant its privileges before PASS
	c.sendLine("user root")
	c.expect(msgUserOK)
	c.sendLine("lock")
	c.expect(msgNoPrivs)

	c.sendLine("pass toor")
	c.expectf(msgPassOK, "root")
	c.sendLine("lock")
	c.expect(msgLocked)
}

func TestDisconnect(t *testing.T) {
	srv, _, _ := newTestServer(t)
	c := connect(t, srv)

	c.sendLine("bye")
	c.expect(msgBye)
}

func TestCommandAliases(t *testing.T) {
	srv, _, _ := newTestServer(t)
	c := connect(t, srv)

	c.login("joe", "secret")
	c.sendLine("q")
	c.expect(msgQueueDone)
	c.sendLine("stat")
	c.expectf(msgStatus, 'I', 'N', 'N', "", "")
	c.sendLine("REM notanumber")
	c.expect(msgRemoveSyn)
}

func TestEnqueueAndPlay(t *testing.T) {
	srv, r, _ := newTestServer(t)
	c := connect(t, srv)

	c.login("joe", "secret")
	c.sendLine("enqueuetrack 10")
	c.expect(msgEnqueueOK)
	c.sendLine("queue")
	c.expectf(msgQueueItem, 1, "Opener", "TheEnds")
	c.expect(msgQueueDone)

	c.sendLine("play")
	c.expect(msgStarted)

	files := r.playedFiles()
	if len(files) != 1 || files[0] != "/music/opener.mp3" {
		t.Errorf("played files = %v", files)
	}

	c.sendLine("status")
	c.expectf(msgStatus, 'P', 'N', 'N', "Opener", "TheEnds")

	c.sendLine("play")
	c.expect(msgAlreadyPlaying)
}

func TestEnqueueUnknownTrack(t *testing.T) {
	srv, _, _ := newTestServer(t)
	c := connect(t, srv)

	c.login("joe", "secret")
	c.sendLine("enqueuetrack 999")
	c.expect(msgNoTrack)
	c.sendLine("enqueuetrack")
	c.expect(msgNumberSyn)
}

func TestEnqueueAlbum(t *testing.T) {
	srv, _, _ := newTestServer(t)
	c := connect(t, srv)

	c.login("joe", "secret")
	c.sendLine("enqueuealbum 1")
	c.expect(msgEnqueueOK)
	c.sendLine("queue")
	c.expectf(msgQueueItem, 1, "Opener", "TheEnds")
	c.expectf(msgQueueItem, 2, "Middle", "TheEnds")
	c.expect(msgQueueDone)

	c.sendLine("enqueuealbum 99")
	c.expect(msgNoAlbum)
}

func TestRemoveLeniency(t *testing.T) {
	srv, _, _ := newTestServer(t)
	c := connect(t, srv)

	c.login("joe", "secret")
	// removing an id that was never queued still succeeds
	c.sendLine("remove 12345")
	c.expect(msgRemoveOK)
}

func TestRemoveAuditFallsBackToPlaceholders(t *testing.T) {
	srv, _, _ := newTestServer(t)
	srv.config.Get().Log.Remove = true

	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	c := connect(t, srv)
	c.login("joe", "secret")
	// the id resolves to no track, so the audit line carries placeholders
	c.sendLine("remove 12345")
	c.expect(msgRemoveOK)

	if !strings.Contains(buf.String(), "Track ? - ? removed by joe") {
		t.Errorf("audit log = %q, want placeholder line", buf.String())
	}
}

func TestPauseResumeStop(t *testing.T) {
	srv, _, _ := newTestServer(t)
	c := connect(t, srv)

	c.login("joe", "secret")
	c.sendLine("enqueuetrack 10")
	c.expect(msgEnqueueOK)
	c.sendLine("play")
	c.expect(msgStarted)

	c.sendLine("pause")
	c.expect(msgPaused)
	c.sendLine("status")
	c.expectf(msgStatus, 'p', 'N', 'N', "Opener", "TheEnds")

	c.sendLine("cont")
	c.expect(msgResumed)

	c.sendLine("stop")
	c.expect(msgStopped)
	c.sendLine("status")
	c.expectf(msgStatus, 'I', 'N', 'N', "", "")
}

func TestSkipWhenNotPlaying(t *testing.T) {
	srv, _, _ := newTestServer(t)
	c := connect(t, srv)

	c.login("joe", "secret")
	c.sendLine("skip")
	c.expect(msgNotPlaying)
}

func TestRandomNeedsAdmin(t *testing.T) {
	srv, _, _ := newTestServer(t)
	c := connect(t, srv)

	c.login("joe", "secret")
	c.sendLine("random yes")
	c.expect(msgNoPrivs)
}

func TestRandomYesNoValidation(t *testing.T) {
	srv, _, _ := newTestServer(t)
	c := connect(t, srv)

	c.login("root", "toor")
	c.sendLine("random maybe")
	c.expect(msgYesOrNo)
	c.sendLine("random YES")
	c.expect(msgRandomOn)
	c.sendLine("rand no")
	c.expect(msgRandomOff)
}

func TestLockGate(t *testing.T) {
	srv, _, _ := newTestServer(t)
	admin := connect(t, srv)
	admin.login("root", "toor")
	admin.sendLine("lock")
	admin.expect(msgLocked)

	user := connect(t, srv)
	user.login("joe", "secret")

	// queue listing stays allowed, playback control does not
	user.sendLine("queue")
	user.expect(msgQueueDone)
	user.sendLine("play")
	user.expect(msgLockErr)
	user.sendLine("enqueuetrack 10")
	user.expect(msgLockErr)

	// admins override the lock
	admin.sendLine("enqueuetrack 10")
	admin.expect(msgEnqueueOK)

	admin.sendLine("unlock")
	admin.expect(msgUnlocked)
	user.sendLine("enqueuetrack 11")
	user.expect(msgEnqueueOK)
}

func TestClearNeedsAdmin(t *testing.T) {
	srv, _, _ := newTestServer(t)
	c := connect(t, srv)

	c.login("joe", "secret")
	c.sendLine("clear")
	c.expect(msgNoPrivs)

	a := connect(t, srv)
	a.login("root", "toor")
	a.sendLine("clear")
	a.expect(msgCleared)
}

func TestBrowsingCommands(t *testing.T) {
	srv, _, _ := newTestServer(t)
	c := connect(t, srv)

	c.login("joe", "secret")

	c.sendLine("artists")
	c.expectf(msgArtist, 1, "TheEnds")
	c.expect(msgArtistEnd)

	c.sendLine("albums")
	c.expectf(msgAlbum, 1, 1, "First Light")
	c.expect(msgAlbumEnd)

	c.sendLine("artistalbums 1")
	c.expectf(msgAlbum, 1, 1, "First Light")
	c.expect(msgAlbumEnd)

	c.sendLine("listalbum 1")
	c.expectf(msgTrack, 10, "Opener")
	c.expectf(msgTrack, 11, "Middle")
	c.expect(msgListOK)

	c.sendLine("listalbum 99")
	c.expect(msgNoAlbum)

	c.sendLine("getartist 1")
	c.expectf(msgArtist, 1, "TheEnds")
	c.sendLine("getartist 9")
	c.expect(msgNoArtist)

	c.sendLine("getalbum 1")
	c.expectf(msgAlbum, 1, 1, "First Light")
	c.sendLine("gettrack 11")
	c.expectf(msgTrack, 11, "Middle")
	c.sendLine("gettrack 99")
	c.expect(msgNoTrack)
}

func TestUsersListing(t *testing.T) {
	srv, _, _ := newTestServer(t)
	c := connect(t, srv)
	c.login("joe", "secret")

	// a connected but unauthenticated client stays invisible
	connect(t, srv)

	c.sendLine("users")
	c.expectf(msgUserList, "joe")
	c.expect(msgUsersListed)
}

func TestVolumeUnavailable(t *testing.T) {
	srv, _, _ := newTestServer(t)
	c := connect(t, srv)

	c.login("joe", "secret")
	c.sendLine("volume")
	c.expect(msgNoVolume)
	c.sendLine("volup")
	c.expect(msgNoVolume)
	c.sendLine("voldn")
	c.expect(msgNoVolume)
}

func TestVolumeWithMixer(t *testing.T) {
	srv, _, _ := newTestServer(t)
	srv.volume = volume.NewMixerCmd("echo 40", "true")
	c := connect(t, srv)

	c.login("joe", "secret")
	c.sendLine("volume")
	c.expectf(msgVolume, 40)
	c.sendLine("volume 70")
	c.expect(msgVolumeOK)
	c.sendLine("volup")
	c.expect(msgVolumeOK)
}

func TestUpdatesBroadcast(t *testing.T) {
	srv, _, _ := newTestServer(t)

	listener := connect(t, srv)
	listener.login("joe", "secret")
	listener.sendLine("updates yes")
	listener.expect(msgUpdatesOn)

	actor := connect(t, srv)
	actor.login("root", "toor")
	actor.sendLine("enqueuetrack 10")
	actor.expect(msgEnqueueOK)

	done := make(chan struct{})
	go func() {
		defer close(done)
		listener.expectf(updateSong, 'N', "TheEnds", "Opener")
	}()

	actor.sendLine("play")
	actor.expect(msgStarted)
	<-done

	// the actor did not subscribe, so pausing reaches only the listener
	paused := make(chan struct{})
	go func() {
		defer close(paused)
		listener.expectf(updateSong, 'p', "", "")
	}()
	actor.sendLine("pause")
	actor.expect(msgPaused)
	<-paused

	listener.sendLine("updates no")
	listener.expect(msgUpdatesOff)
}

func TestStalledSubscriberOnlyLosesItsUpdates(t *testing.T) {
	srv, _, _ := newTestServer(t)

	sub := connect(t, srv)
	sub.login("root", "toor")
	sub.sendLine("updates yes")
	sub.expect(msgUpdatesOn)
	// sub goes silent and stops draining its end of the connection

	actor := connect(t, srv)
	actor.login("joe", "secret")
	actor.sendLine("enqueuetrack 10")
	actor.expect(msgEnqueueOK)

	// the update write to sub times out instead of wedging playback
	actor.sendLine("play")
	actor.expect(msgStarted)

	actor.sendLine("status")
	actor.expectf(msgStatus, 'P', 'N', 'N', "Opener", "TheEnds")
}

func TestUpdatesValidation(t *testing.T) {
	srv, _, _ := newTestServer(t)
	c := connect(t, srv)

	c.login("joe", "secret")
	c.sendLine("updates sometimes")
	c.expect(msgYesOrNo)
}

func TestIdentDisallowed(t *testing.T) {
	srv, _, _ := newTestServer(t)
	c := connect(t, srv)

	c.sendLine("ident")
	c.expect(msgUserFirst)
	c.sendLine("user joe")
	c.expect(msgUserOK)
	c.sendLine("ident")
	c.expect(msgNoIdent)
}

func TestHelp(t *testing.T) {
	srv, _, _ := newTestServer(t)
	c := connect(t, srv)

	c.sendLine("help")
	for _, want := range strings.SplitAfter(helpText, "\n") {
		if want == "" {
			continue
		}
		c.expect(want)
	}
}

func TestSplitCommand(t *testing.T) {
	tests := []struct {
		line string
		cmd  string
		arg  string
	}{
		{"play", "play", ""},
		{"user joe", "user", "joe"},
		{"user   joe", "user", "joe"},
		{"pass p w d", "pass", "p w d"},
		{"", "", ""},
	}
	for _, tt := range tests {
		cmd, arg := splitCommand(tt.line)
		if cmd != tt.cmd || arg != tt.arg {
			t.Errorf("splitCommand(%q) = %q, %q, want %q, %q", tt.line, cmd, arg, tt.cmd, tt.arg)
		}
	}
}
