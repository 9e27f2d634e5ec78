// Package scanner imports audio files into the jukebox library.
// It walks a music directory tree and writes artist, album and track
// records for every audio file it finds.
package scanner

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"log"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"jukeboxd/internal/store"
)

// SupportedExtensions are the audio file extensions we recognize.
var SupportedExtensions = map[string]bool{
	".mp3":  true,
	".flac": true,
	".m4a":  true,
	".aac":  true,
	".ogg":  true,
	".wav":  true,
	".opus": true,
}

// TrackMetadata contains extracted audio metadata.
type TrackMetadata struct {
	Title   string
	Artist  string
	Album   string
	Year    int
	TrackNo int
}

// Result summarizes a completed import.
type Result struct {
	Scanned  int
	Imported int
	Skipped  int
}

// Scanner imports a directory tree into the record store.
type Scanner struct {
	store       *store.Store
	ffprobePath string

	// probe is swappable so tests need no ffprobe binary
	probe func(ctx context.Context, path string) *TrackMetadata
}

// NewScanner creates a scanner writing into the given store.
func NewScanner(st *store.Store) *Scanner {
	ffprobePath, _ := exec.LookPath("ffprobe")
	s := &Scanner{store: st, ffprobePath: ffprobePath}
	s.probe = s.extractMetadata
	return s
}

// ScanDir walks root and imports every supported audio file. Files
// already known by filename are skipped, so rescans are cheap.
func (s *Scanner) ScanDir(ctx context.Context, root string) (*Result, error) {
	res := &Result{}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !SupportedExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		res.Scanned++
		switch err := s.importFile(ctx, path); {
		case err == nil:
			res.Imported++
		case errors.Is(err, errAlreadyImported):
			res.Skipped++
		default:
			log.Printf("[SCANNER] Cannot import %s: %v", path, err)
		}
		return nil
	})
	if err != nil {
		return res, err
	}

	log.Printf("[SCANNER] Scanned %d files: %d imported, %d already known",
		res.Scanned, res.Imported, res.Skipped)
	return res, nil
}

// importFile writes the library records for one audio file.
func (s *Scanner) importFile(ctx context.Context, path string) error {
	if _, err := s.store.TrackByFilename(path); err == nil {
		return errAlreadyImported
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	meta := s.probe(ctx, path)
	if meta == nil {
		meta = &TrackMetadata{}
	}
	fillFromFilename(meta, path)

	artistID, err := s.store.EnsureArtist(meta.Artist)
	if err != nil {
		return err
	}
	albumID, err := s.store.EnsureAlbum(artistID, meta.Album)
	if err != nil {
		return err
	}
	trackID, err := s.store.NextTrackID()
	if err != nil {
		return err
	}
	return s.store.InsertTrack(store.Track{
		ID:       trackID,
		ArtistID: artistID,
		AlbumID:  albumID,
		Year:     meta.Year,
		Title:    meta.Title,
		Filename: path,
		TrackNo:  meta.TrackNo,
	})
}

var errAlreadyImported = errors.New("already imported")

// extractMetadata uses ffprobe to read the track tags.
func (s *Scanner) extractMetadata(ctx context.Context, path string) *TrackMetadata {
	if s.ffprobePath == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, s.ffprobePath,
		"-v", "error",
		"-show_entries", "format_tags=title,artist,album,date,track:stream_tags=title,artist,album",
		"-of", "json",
		path,
	)
	output, err := cmd.Output()
	if err != nil {
		return nil
	}

	var result struct {
		Format struct {
			Tags probeTags `json:"tags"`
		} `json:"format"`
		Streams []struct {
			Tags probeTags `json:"tags"`
		} `json:"streams"`
	}
	if err := json.Unmarshal(output, &result); err != nil {
		return nil
	}

	tags := result.Format.Tags
	if len(result.Streams) > 0 {
		tags = tags.merge(result.Streams[0].Tags)
	}

	meta := &TrackMetadata{
		Title:  tags.Title,
		Artist: tags.Artist,
		Album:  tags.Album,
	}
	if len(tags.Date) >= 4 {
		meta.Year, _ = strconv.Atoi(tags.Date[:4])
	}
	// track tags often read "3/12"
	if no, _, found := strings.Cut(tags.Track, "/"); found {
		meta.TrackNo, _ = strconv.Atoi(no)
	} else {
		meta.TrackNo, _ = strconv.Atoi(tags.Track)
	}
	return meta
}

type probeTags struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Album  string `json:"album"`
	Date   string `json:"date"`
	Track  string `json:"track"`
}

// merge fills empty fields from another tag set.
func (t probeTags) merge(other probeTags) probeTags {
	if t.Title == "" {
		t.Title = other.Title
	}
	if t.Artist == "" {
		t.Artist = other.Artist
	}
	if t.Album == "" {
		t.Album = other.Album
	}
	return t
}

// fillFromFilename supplies fallbacks for missing tags. A name like
// "Artist - Title.mp3" yields both, anything else becomes the title;
// the album falls back to the containing directory's name.
func fillFromFilename(meta *TrackMetadata, path string) {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if artist, title, found := strings.Cut(base, " - "); found {
		if meta.Artist == "" {
			meta.Artist = strings.TrimSpace(artist)
		}
		if meta.Title == "" {
			meta.Title = strings.TrimSpace(title)
		}
	} else if meta.Title == "" {
		meta.Title = base
	}
	if meta.Artist == "" {
		meta.Artist = "?"
	}
	if meta.Album == "" {
		meta.Album = filepath.Base(filepath.Dir(path))
	}
}
