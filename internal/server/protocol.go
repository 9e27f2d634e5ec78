package server

// Messages sent to clients. The leading tag classifies the line: [I]
// informational, [E] error, [A] artist or album record, [T] track
// record, [S] status, [Q] queue item, [U] update or user list entry,
// [V] volume.
const (
	msgWelcome        = "[I] Welcome to JukeServer 0.1\n"
	msgUnknown        = "[E] Unknown command\n"
	msgBye            = "[I] Be seeing ya!\n"
	msgNoUser         = "[E] No such user\n"
	msgUserOK         = "[I] Username OK\n"
	msgUserFirst      = "[E] Tell me the username first\n"
	msgBadPass        = "[E] Incorrect password\n"
	msgPassOK         = "[I] Welcome %s!\n"
	msgMustAuth       = "[E] You must be authenticated first\n"
	msgPaused         = "[I] Playback paused\n"
	msgResumed        = "[I] Playback resumed\n"
	msgStopped        = "[I] Playback stopped\n"
	msgStarted        = "[I] Playback started\n"
	msgNotPlaying     = "[E] Not playing\n"
	msgSkipped        = "[I] Track skipped by %s\n"
	msgUserList       = "[U] %s\n"
	msgUsersListed    = "[I] User list end\n"
	msgStatus         = "[S] Status:{%c} Random:{%c} Locked:{%c} Song:{%s} Artist:{%s}\n"
	msgYesOrNo        = "[E] Arguments must be YES or NO\n"
	msgRandomOn       = "[I] Random play turned on\n"
	msgRandomOff      = "[I] Random play turned off\n"
	msgQueueItem      = "[Q] ID:{%d} Song:{%s} Artist:{%s}\n"
	msgQueueDone      = "[I] Queue listed\n"
	msgRemoveSyn      = "[E] Argument must be a queue item ID\n"
	msgRemoveOK       = "[I] Queue item removed\n"
	msgAlreadyPlaying = "[E] Already playing\n"
	msgNoPrivs        = "[E] Privileged command, and not for you\n"
	msgLocked         = "[I] Player is now locked\n"
	msgUnlocked       = "[I] Player is now unlocked\n"
	msgLockErr        = "[E] Player locked, and you can't override it\n"
	msgCleared        = "[I] Queue cleared\n"
	msgAlbum          = "[A] ID:{%d} Artist:{%d} Album:{%s}\n"
	msgAlbumEnd       = "[I] Albums listed\n"
	msgArtist         = "[A] ID:{%d} Artist:{%s}\n"
	msgArtistEnd      = "[I] Artists listed\n"
	msgNumberSyn      = "[E] Argument must be a number\n"
	msgEnqueueOK      = "[I] Enqueued\n"
	msgListOK         = "[I] Tracks listed\n"
	msgTrack          = "[T] ID:{%d} Title:{%s}\n"
	msgNoArtist       = "[E] No such artist\n"
	msgNoAlbum        = "[E] No such album\n"
	msgNoTrack        = "[E] No such track\n"
	msgNoVolume       = "[E] Volume manager unavailable\n"
	msgVolumeOK       = "[I] Volume changed\n"
	msgVolume         = "[V] Volume:{%d}\n"
	msgIdentFail      = "[E] Identify failed\n"
	msgNoIdent        = "[E] Ident is not allowed\n"
	msgNoIdentHost    = "[E] Ident is not allowed from this host\n"
	msgUpdatesOn      = "[I] Updates turned on\n"
	msgUpdatesOff     = "[I] Updates turned off\n"
	updateSong        = "[U] Status:{%c} Artist:{%s} Song:{%s}\n"
)

const helpText = "[I] JukeServer 0.1 help\n" +
	"Commands:\n" +
	"help                    Display this text\n" +
	"user <username>         authenticate with <username>\n" +
	"pass(word) <password>   authenticate with <password>\n" +
	"ident                   authenticate through RFC1413 ident\n" +
	"play                    start playback\n" +
	"pause                   pause playback\n" +
	"cont(inue)              continue playback\n" +
	"skip                    skip playing track\n" +
	"stop                    stop playback\n" +
	"rand(om) <yes|no>       enable or disable random queue\n" +
	"q(ueue)                 display queue\n" +
	"rem(ove) <id>           remove a queue item\n" +
	"lock                    lock queue for adding tracks\n" +
	"unlock                  unlock queue for adding tracks\n" +
	"users                   display currently connected users\n" +
	"stat(us)                display status of jukebox\n" +
	"clear                   clear the jukebox queue\n" +
	"albums                  display all albums\n" +
	"artistalbums <id>       display all albums by an artist\n" +
	"artists                 display all artists\n" +
	"getalbum <id>           fetch information on an album\n" +
	"getartist <id>          fetch information on an artist\n" +
	"gettrack <id>           fetch information on a track\n" +
	"listalbum <id>          displays all tracks in an album\n" +
	"enqueuetrack <id>       enqueue a track\n" +
	"enqueuealbum <id>       enqueue a complete album\n" +
	"volume [level]          display or change the volume\n" +
	"volup                   turn the volume up a step\n" +
	"voldn                   turn the volume down a step\n" +
	"bye                     see you later..\n" +
	"exit                    close client\n" +
	"disc(onnect)            close connection with server\n" +
	"updates <yes|no>        receive updates on player changes\n" +
	"\n"
