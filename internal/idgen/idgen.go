// Package idgen produces opaque identifiers for workspace entities and
// archived results.
//
// IDs are UUID bytes encoded as base58, which keeps them short, URL safe and
// free of look-alike characters.
package idgen

import (
	"strings"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"
)

// namespace scopes derived IDs so they never collide with IDs derived by
// other applications from the same parts.
var namespace = uuid.MustParse("6f1d7a52-3c8e-4b0f-9a61-2d4e8c5b7f90")

// New returns a random identifier.
func New() string {
	id := uuid.New()
	return base58.Encode(id[:])
}

// Derive returns a deterministic identifier for parts.
// Formula: base58(UUIDv5(namespace, parts joined by "|")).
func Derive(parts ...string) string {
	id := uuid.NewSHA1(namespace, []byte(strings.Join(parts, "|")))
	return base58.Encode(id[:])
}

// Valid reports whether s decodes to a 16-byte identifier.
func Valid(s string) bool {
	b, err := base58.Decode(s)
	return err == nil && len(b) == 16
}
