package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// Track is one playable file in the library.
type Track struct {
	ID        int64  `db:"id"`
	ArtistID  int64  `db:"artistid"`
	AlbumID   int64  `db:"albumid"`
	Year      int    `db:"year"`
	Title     string `db:"title"`
	Filename  string `db:"filename"`
	TrackNo   int    `db:"trackno"`
	PlayCount int    `db:"playcount"`
}

// Album groups tracks under an artist.
type Album struct {
	ID       int64  `db:"id"`
	ArtistID int64  `db:"artistid"`
	Name     string `db:"name"`
}

// Artist is a library artist.
type Artist struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// TrackByID fetches a track record.
func (s *Store) TrackByID(id int64) (Track, error) {
	var t Track
	err := s.db.Get(&t, s.db.Rebind(
		`SELECT id, artistid, albumid, year, title, filename, trackno, playcount
		 FROM tracks WHERE id = ?`), id)
	return t, notFound(err)
}

// TrackByFilename fetches a track record by its file path.
func (s *Store) TrackByFilename(filename string) (Track, error) {
	var t Track
	err := s.db.Get(&t, s.db.Rebind(
		`SELECT id, artistid, albumid, year, title, filename, trackno, playcount
		 FROM tracks WHERE filename = ?`), filename)
	return t, notFound(err)
}

// IncrementPlayCount bumps and persists a track's play count.
func (s *Store) IncrementPlayCount(id int64) error {
	_, err := s.db.Exec(s.db.Rebind(
		`UPDATE tracks SET playcount = playcount + 1 WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to update play count: %w", err)
	}
	return nil
}

// TrackCount returns the number of tracks in the library.
func (s *Store) TrackCount() (int64, error) {
	var n int64
	err := s.db.Get(&n, `SELECT COUNT(id) FROM tracks`)
	return n, err
}

// TrackIDAt returns the track id at the given offset in id order. Used
// for uniform random sampling over the whole library.
func (s *Store) TrackIDAt(offset int64) (int64, error) {
	var id int64
	err := s.db.Get(&id, s.db.Rebind(
		`SELECT id FROM tracks ORDER BY id LIMIT 1 OFFSET ?`), offset)
	return id, notFound(err)
}

// AlbumByID fetches an album record.
func (s *Store) AlbumByID(id int64) (Album, error) {
	var a Album
	err := s.db.Get(&a, s.db.Rebind(
		`SELECT id, artistid, name FROM albums WHERE id = ?`), id)
	return a, notFound(err)
}

// Albums lists every album in id order.
func (s *Store) Albums() ([]Album, error) {
	var albums []Album
	err := s.db.Select(&albums, `SELECT id, artistid, name FROM albums ORDER BY id`)
	return albums, err
}

// AlbumsByArtist lists an artist's albums in id order.
func (s *Store) AlbumsByArtist(artistID int64) ([]Album, error) {
	var albums []Album
	err := s.db.Select(&albums, s.db.Rebind(
		`SELECT id, artistid, name FROM albums WHERE artistid = ? ORDER BY id`), artistID)
	return albums, err
}

// AlbumTrackIDs lists an album's track ids in stored track-number order.
func (s *Store) AlbumTrackIDs(albumID int64) ([]int64, error) {
	var ids []int64
	err := s.db.Select(&ids, s.db.Rebind(
		`SELECT id FROM tracks WHERE albumid = ? ORDER BY trackno`), albumID)
	return ids, err
}

// ArtistByID fetches an artist record.
func (s *Store) ArtistByID(id int64) (Artist, error) {
	var a Artist
	err := s.db.Get(&a, s.db.Rebind(
		`SELECT id, name FROM artists WHERE id = ?`), id)
	return a, notFound(err)
}

// Artists lists every artist in id order.
func (s *Store) Artists() ([]Artist, error) {
	var artists []Artist
	err := s.db.Select(&artists, `SELECT id, name FROM artists ORDER BY id`)
	return artists, err
}

// InsertArtist adds an artist record with an explicit id. Records are
// normally written by the library import tooling, not the daemon.
func (s *Store) InsertArtist(a Artist) error {
	_, err := s.db.Exec(s.db.Rebind(
		`INSERT INTO artists (id, name) VALUES (?, ?)`), a.ID, a.Name)
	return err
}

// InsertAlbum adds an album record with an explicit id.
func (s *Store) InsertAlbum(a Album) error {
	_, err := s.db.Exec(s.db.Rebind(
		`INSERT INTO albums (id, artistid, name) VALUES (?, ?, ?)`),
		a.ID, a.ArtistID, a.Name)
	return err
}

// InsertTrack adds a track record with an explicit id.
func (s *Store) InsertTrack(t Track) error {
	_, err := s.db.Exec(s.db.Rebind(
		`INSERT INTO tracks (id, artistid, albumid, year, title, filename, trackno, playcount)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		t.ID, t.ArtistID, t.AlbumID, t.Year, t.Title, t.Filename, t.TrackNo, t.PlayCount)
	return err
}

// nextID allocates the next free id in a table. The importer runs
// single-threaded, so a max+1 scan is good enough.
func (s *Store) nextID(table string) (int64, error) {
	var id int64
	err := s.db.Get(&id, "SELECT COALESCE(MAX(id), 0) + 1 FROM "+table)
	return id, err
}

// NextTrackID allocates an id for a new track record.
func (s *Store) NextTrackID() (int64, error) {
	return s.nextID("tracks")
}

// EnsureArtist finds an artist by name, creating it when absent.
func (s *Store) EnsureArtist(name string) (int64, error) {
	var id int64
	err := s.db.Get(&id, s.db.Rebind(`SELECT id FROM artists WHERE name = ?`), name)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}
	id, err = s.nextID("artists")
	if err != nil {
		return 0, err
	}
	if err := s.InsertArtist(Artist{ID: id, Name: name}); err != nil {
		return 0, fmt.Errorf("inserting artist %q: %w", name, err)
	}
	return id, nil
}

// EnsureAlbum finds an album of an artist by name, creating it when
// absent.
func (s *Store) EnsureAlbum(artistID int64, name string) (int64, error) {
	var id int64
	err := s.db.Get(&id, s.db.Rebind(
		`SELECT id FROM albums WHERE artistid = ? AND name = ?`), artistID, name)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}
	id, err = s.nextID("albums")
	if err != nil {
		return 0, err
	}
	if err := s.InsertAlbum(Album{ID: id, ArtistID: artistID, Name: name}); err != nil {
		return 0, fmt.Errorf("inserting album %q: %w", name, err)
	}
	return id, nil
}

// InsertUser adds a row to the users table consumed by the SQL auth
// backend.
func (s *Store) InsertUser(id int64, username, password string, status int) error {
	_, err := s.db.Exec(s.db.Rebind(
		`INSERT INTO users (id, username, password, status) VALUES (?, ?, ?, ?)`),
		id, username, password, status)
	return err
}
