package ledger

import (
	"fmt"
	"strings"
)

// Facet names the object a call was made on.
type Facet string

const (
	FacetConnection Facet = "connection"
	FacetCursor     Facet = "cursor"
	FacetUser       Facet = "user"
)

// keySeparator joins facet and member.
const keySeparator = "--"

// CallKey identifies a queue of outcomes, e.g. "cursor--fetchone".
type CallKey string

// UserValueKey holds values stored through the user-value escape hatch.
const UserValueKey CallKey = "user--stored-value"

// Key builds the CallKey for member on facet.
func Key(f Facet, member string) CallKey {
	return CallKey(string(f) + keySeparator + member)
}

// ParseKey validates s as a CallKey.
func ParseKey(s string) (CallKey, error) {
	facet, member, ok := strings.Cut(s, keySeparator)
	if !ok || facet == "" || member == "" {
		return "", fmt.Errorf("invalid call key %q: want <facet>--<member>", s)
	}
	switch Facet(facet) {
	case FacetConnection, FacetCursor, FacetUser:
		return CallKey(s), nil
	default:
		return "", fmt.Errorf("invalid call key %q: unknown facet %q", s, facet)
	}
}

// Facet returns the facet part of k.
func (k CallKey) Facet() Facet {
	facet, _, _ := strings.Cut(string(k), keySeparator)
	return Facet(facet)
}

// Member returns the member part of k.
func (k CallKey) Member() string {
	_, member, _ := strings.Cut(string(k), keySeparator)
	return member
}

// String implements fmt.Stringer.
func (k CallKey) String() string {
	return string(k)
}
