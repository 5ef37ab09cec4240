// Package classify holds the hand-maintained symbol sets that need special
// linkage guards in generated headers.
package classify

import (
	"maps"
	"slices"
)

// Set is a named, fixed collection of symbol names.
type Set struct {
	Name    string
	members map[string]struct{}
}

// NewSet builds a Set from the given names. Duplicates are ignored.
func NewSet(name string, symbols ...string) Set {
	members := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		members[s] = struct{}{}
	}
	return Set{Name: name, members: members}
}

// Has reports whether sym is in the set.
func (s Set) Has(sym string) bool {
	_, ok := s.members[sym]
	return ok
}

// Len returns the number of distinct members.
func (s Set) Len() int { return len(s.members) }

// Symbols returns the sorted members.
func (s Set) Symbols() []string {
	return slices.Sorted(maps.Keys(s.members))
}

// Tables groups the classifications the header synthesizer consults.
type Tables struct {
	// LibcPthread: pthread functions exported directly by libc.so.
	LibcPthread Set
	// LibgccWeak: pthread symbols libgcc references weakly.
	LibgccWeak Set
	// LibstdcxxWeak: pthread symbols libstdc++ references weakly.
	LibstdcxxWeak Set
}

// NeedsReentrant reports whether sym belongs to any classification.
func (t Tables) NeedsReentrant(sym string) bool {
	return t.LibcPthread.Has(sym) || t.LibgccWeak.Has(sym) || t.LibstdcxxWeak.Has(sym)
}

// Default returns the built-in classification tables.
//
// pthread_cond_signal and pthread_cond_wait are deliberately absent from
// LibcPthread: historical headers never guarded them and regenerating must
// stay byte-identical.
func Default() Tables {
	return Tables{
		LibcPthread: NewSet("libc-pthread",
			"pthread_attr_destroy",
			"pthread_attr_init",
			"pthread_attr_getdetachstate",
			"pthread_attr_setdetachstate",
			"pthread_attr_getinheritsched",
			"pthread_attr_setinheritsched",
			"pthread_attr_getschedparam",
			"pthread_attr_setschedparam",
			"pthread_attr_getschedpolicy",
			"pthread_attr_setschedpolicy",
			"pthread_attr_getscope",
			"pthread_attr_setscope",
			"pthread_condattr_destroy",
			"pthread_condattr_init",
			"pthread_cond_broadcast",
			"pthread_cond_destroy",
			"pthread_cond_init",
			"pthread_cond_timedwait",
			"pthread_equal",
			"pthread_exit",
			"pthread_getschedparam",
			"pthread_setschedparam",
			"pthread_mutex_destroy",
			"pthread_mutex_init",
			"pthread_mutex_lock",
			"pthread_mutex_unlock",
			"pthread_self",
			"pthread_setcancelstate",
			"pthread_setcanceltype",
			"__register_atfork",
		),
		LibgccWeak: NewSet("libgcc-weak",
			"pthread_setspecific",
			"__pthread_key_create",
			"pthread_getspecific",
			"pthread_key_create",
			"pthread_once",
		),
		LibstdcxxWeak: NewSet("libstdcxx-weak",
			"pthread_setspecific",
			"pthread_key_delete",
			"__pthread_key_create",
			"pthread_once",
			"pthread_key_create",
			"pthread_getspecific",
			"pthread_join",
			"pthread_detach",
			"pthread_create",
		),
	}
}
