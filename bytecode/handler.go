package bytecode

import "fmt"

// WildcardName is how dexdump spells the catch-all handler key.
const WildcardName = "<any>"

// CatchKey selects a handler within a catch region: either a specific
// exception type descriptor or the wildcard that catches everything.
type CatchKey struct {
	name     string
	wildcard bool
}

// Wildcard returns the catch-all key.
func Wildcard() CatchKey {
	return CatchKey{wildcard: true}
}

// ExceptionType returns the key for a type descriptor such as
// "Ljava/lang/Exception;".
func ExceptionType(name string) CatchKey {
	return CatchKey{name: name}
}

// ParseCatchKey maps the dexdump spelling of a key to a CatchKey.
func ParseCatchKey(s string) CatchKey {
	if s == WildcardName {
		return Wildcard()
	}
	return ExceptionType(s)
}

// IsWildcard returns true for the catch-all key.
func (k CatchKey) IsWildcard() bool {
	return k.wildcard
}

// TypeName returns the exception type descriptor, or "" for the wildcard.
func (k CatchKey) TypeName() string {
	return k.name
}

// String returns the dexdump spelling of the key.
func (k CatchKey) String() string {
	if k.wildcard {
		return WildcardName
	}
	return k.name
}

// Handler maps a catch key to the address of its handler code.
type Handler struct {
	Key    CatchKey
	Target uint16
}

// CatchRegion is the address range covered by one try block together with
// its handlers, in declaration order.
type CatchRegion struct {
	Start    uint16 // inclusive
	End      uint16 // exclusive
	Handlers []Handler
}

// Contains reports whether addr lies inside the region.
func (r CatchRegion) Contains(addr int) bool {
	return addr >= int(r.Start) && addr < int(r.End)
}

// Lookup returns the handler target for key.
func (r CatchRegion) Lookup(key CatchKey) (uint16, bool) {
	for _, h := range r.Handlers {
		if h.Key == key {
			return h.Target, true
		}
	}
	return 0, false
}

// String returns the region in dexdump notation.
func (r CatchRegion) String() string {
	return fmt.Sprintf("0x%04x - 0x%04x", r.Start, r.End)
}
