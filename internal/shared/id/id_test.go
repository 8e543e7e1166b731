package id

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrefixes(t *testing.T) {
	assert.True(t, strings.HasPrefix(NewWorldID(), "world_"))
	assert.True(t, strings.HasPrefix(NewCharacterID(), "char_"))
	assert.True(t, strings.HasPrefix(NewNoteID(), "note_"))
}

func TestUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 10000; i++ {
		id := NewWorldID()
		assert.False(t, seen[id])
		seen[id] = true
	}
}

func TestSortableByCreation(t *testing.T) {
	a := NewNoteID()
	b := NewNoteID()
	assert.Less(t, a, b)
}

func TestConcurrentGeneration(t *testing.T) {
	var (
		mu  sync.Mutex
		ids = make(map[string]bool)
		wg  sync.WaitGroup
	)
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				id := NewCharacterID()
				mu.Lock()
				ids[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, ids, 8000)
}
