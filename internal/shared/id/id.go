// Package id provides ULID generation for the backend's own entities.
//
// ULIDs are lexicographically sortable, so listing worlds or notes by
// id is also listing them by creation time. Type prefixes keep logs
// readable: world_01J..., char_01J..., note_01J...
package id

import (
	"crypto/rand"
	"sync"

	"github.com/oklog/ulid/v2"
)

const (
	WorldPrefix     = "world"
	CharacterPrefix = "char"
	NotePrefix      = "note"
)

// entropy pools monotonic readers; ulid.Monotonic is not goroutine safe
var entropy = sync.Pool{
	New: func() interface{} {
		return ulid.Monotonic(rand.Reader, 0)
	},
}

func newID(prefix string) string {
	e := entropy.Get().(*ulid.MonotonicEntropy)
	defer entropy.Put(e)
	return prefix + "_" + ulid.MustNew(ulid.Now(), e).String()
}

// NewWorldID generates a world identifier
func NewWorldID() string { return newID(WorldPrefix) }

// NewCharacterID generates a character identifier
func NewCharacterID() string { return newID(CharacterPrefix) }

// NewNoteID generates a note identifier
func NewNoteID() string { return newID(NotePrefix) }
