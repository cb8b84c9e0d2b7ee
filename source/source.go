// Package source models the opaque media identifiers handed to the playback core.
package source

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalid is wrapped by every Parse failure.
var ErrInvalid = errors.New("invalid source")

// Source is an immutable media identifier, usually a URL.
type Source struct {
	raw    string
	remote bool
}

// Parse validates raw and returns it as a Source.
// Identifiers are passed to an external decoder process, so anything that
// could be mistaken for a flag or carries control characters is rejected.
func Parse(raw string) (Source, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Source{}, fmt.Errorf("%w: empty identifier", ErrInvalid)
	}

	if strings.ContainsFunc(s, func(r rune) bool { return r < 0x20 || r == 0x7f }) {
		return Source{}, fmt.Errorf("%w: control characters", ErrInvalid)
	}

	if strings.HasPrefix(s, "-") {
		return Source{}, fmt.Errorf("%w: must not start with '-'", ErrInvalid)
	}

	if !strings.Contains(s, "://") {
		return Source{raw: s}, nil
	}

	u, err := url.Parse(s)
	if err != nil {
		return Source{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		if u.Host == "" {
			return Source{}, fmt.Errorf("%w: missing host", ErrInvalid)
		}
		return Source{raw: s, remote: true}, nil
	case "file":
		return Source{raw: s}, nil
	default:
		return Source{}, fmt.Errorf("%w: unsupported scheme %q", ErrInvalid, u.Scheme)
	}
}

// MustParse is like Parse but panics on error. Intended for tests and constants.
func MustParse(raw string) Source {
	s, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return s
}

// Key is the lowercase hex SHA-256 of the identifier. Equal identifiers share a key.
func (s Source) Key() string {
	sum := sha256.Sum256([]byte(s.raw))
	return hex.EncodeToString(sum[:])
}

// Remote reports whether playing s requires a network transfer.
func (s Source) Remote() bool {
	return s.remote
}

// IsZero reports whether s was never parsed.
func (s Source) IsZero() bool {
	return s.raw == ""
}

func (s Source) String() string {
	return s.raw
}

// Location is the result of cache resolution.
type Location struct {
	// URI is handed to the engine: a cache artifact path or the original identifier.
	URI string
	// Cached is set when URI points at a cache artifact.
	Cached bool
}

func (l Location) String() string {
	return l.URI
}
