package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetMembership(t *testing.T) {
	s := NewSet("demo", "b", "a", "b")
	assert.Equal(t, 2, s.Len())
	assert.True(t, s.Has("a"))
	assert.False(t, s.Has("c"))
	assert.Equal(t, []string{"a", "b"}, s.Symbols())
}

func TestZeroSetIsEmpty(t *testing.T) {
	var s Set
	assert.False(t, s.Has("pthread_once"))
	assert.Equal(t, 0, s.Len())
}

func TestDefaultTablesOverlap(t *testing.T) {
	tables := Default()

	// a symbol may sit in several sets at once
	assert.True(t, tables.LibgccWeak.Has("pthread_once"))
	assert.True(t, tables.LibstdcxxWeak.Has("pthread_once"))
	assert.False(t, tables.LibcPthread.Has("pthread_once"))

	assert.True(t, tables.LibstdcxxWeak.Has("pthread_create"))
	assert.False(t, tables.LibgccWeak.Has("pthread_create"))

	assert.True(t, tables.NeedsReentrant("pthread_mutex_lock"))
	assert.True(t, tables.NeedsReentrant("pthread_join"))
	assert.False(t, tables.NeedsReentrant("memcpy"))
	assert.False(t, tables.NeedsReentrant("pthread_cond_signal"))
}
