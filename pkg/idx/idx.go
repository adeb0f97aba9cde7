package idx

import (
	"crypto/rand"
	"encoding/base32"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Key is an opaque 256-bit entity key: a 16-byte ULID prefix followed by
// 16 random bytes, rendered as lowercase Crockford base32. The ULID prefix
// keeps keys lexicographically time-ordered; the random suffix widens the
// keyspace to 256 bits.
type Key string

// Zero represents the zero value Key, don't use this unless its a placeholder.
const Zero Key = ""

const (
	KeySizeBytes  = 32
	ulidSizeBytes = 16
)

// ErrInvalid reports a malformed key string.
var ErrInvalid = errors.New("idx: invalid key")

// crockford is the lowercase Crockford base32 alphabet. No padding: 32 raw
// bytes always encode to 52 characters.
var crockford = base32.NewEncoding("0123456789abcdefghjkmnpqrstvwxyz").WithPadding(base32.NoPadding)

const encodedLen = 52

var (
	globalOnce sync.Once
	global     *generator
)

// generator safely produces keys concurrently using a monotonic ULID source
// for the time-ordered prefix.
type generator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func (g *generator) New() Key {
	return g.NewAt(time.Now().UTC())
}

func (g *generator) NewAt(t time.Time) Key {
	g.mu.Lock()
	u := ulid.MustNew(ulid.Timestamp(t), g.entropy)
	g.mu.Unlock()

	raw := make([]byte, KeySizeBytes)
	_ = u.MarshalBinaryTo(raw[:ulidSizeBytes])
	if _, err := rand.Read(raw[ulidSizeBytes:]); err != nil {
		// crypto/rand never fails on supported platforms
		panic("idx: entropy source failed")
	}

	return Key(crockford.EncodeToString(raw))
}

func initGlobal() {
	src := ulid.Monotonic(rand.Reader, 0) // Max Monotonic Window
	global = &generator{entropy: src}
}

// New returns a new lexicographically sortable 256-bit key using the current
// time in UTC.
func New() Key {
	globalOnce.Do(initGlobal)
	return global.New()
}

// NewAt generates a Key at the provided time (UTC), useful for tests or
// constructing time-bounded cursors.
func NewAt(t time.Time) Key {
	globalOnce.Do(initGlobal)
	return global.NewAt(t)
}

// Parse parses a key string and validates its form.
func Parse(s string) (Key, error) {
	s = strings.TrimSpace(s)

	if len(s) != encodedLen {
		return Zero, ErrInvalid
	}

	raw, err := crockford.DecodeString(s)
	if err != nil || len(raw) != KeySizeBytes {
		return Zero, ErrInvalid
	}

	return Key(s), nil
}

// MustParse parses or panics. Useful for hard-coded keys in tests.
func MustParse(s string) Key {
	k, err := Parse(s)
	if err != nil {
		// Panic here so we don't put the program into an unknown state
		panic(err)
	}
	return k
}

// IsZero reports whether k is the zero value.
func (k Key) IsZero() bool { return k == Zero }

// String returns the canonical string form.
func (k Key) String() string { return string(k) }

// Bytes returns the raw 32-byte representation or nil for zero or malformed
// keys.
func (k Key) Bytes() []byte {
	if k.IsZero() {
		return nil
	}

	raw, err := crockford.DecodeString(k.String())
	if err != nil || len(raw) != KeySizeBytes {
		return nil
	}
	return raw
}

// Time extracts the embedded UTC timestamp from the ULID prefix.
// If the key is invalid or zero, it returns the zero time.
func (k Key) Time() time.Time {
	raw := k.Bytes()
	if raw == nil {
		return time.Time{}
	}

	var u ulid.ULID
	if err := u.UnmarshalBinary(raw[:ulidSizeBytes]); err != nil {
		return time.Time{}
	}

	// ULID time component is in ms since epoch.
	return ulid.Time(u.Time())
}

// Compare reports the ordering between a and b by raw key bytes. The base32
// alphabet is order-preserving, so a plain string compare is equivalent.
// Returns -1 if a<b, 0 if a==b, +1 if a>b.
func Compare(a, b Key) int {
	as := a.String()
	bs := b.String()

	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	default:
		return 0
	}
}
