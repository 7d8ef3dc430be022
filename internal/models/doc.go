// Package models defines the library entities mirrored from the remote store.
//
// Synchronized entities implement [Model]:
//   - [Song] : an uploaded audio file with tag metadata, play counts and likes
//   - [Playlist] : an ordered list of [SongRef] entries
//   - [Album] : album artwork and metadata
//   - [Artist] : artist artwork, keyed by name
//
// [Watermark] records how far each model has been mirrored.
//
// Every timestamp is milliseconds since epoch and updatedAt is the only ordering key.
// Deletion is a tombstone: the remote flips Deleted and the change is propagated like any other.
//
// library.go holds derived views over the song list ([GroupAlbums], [GroupGenres], [LikedSongs], ...).
package models
