// Package model defines the station's persisted entities: users, groups,
// accounts, assets, address-book entries, requests and the rule tree that
// governs their approval.
package model

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

// UUID is the opaque 16-byte identifier used for every entity the station
// owns. It round-trips to and from its canonical string form via
// github.com/google/uuid, matching the teacher's own identifier choice in
// its gateway services.
type UUID [16]byte

// NilUUID is the zero value, never a valid entity id.
var NilUUID UUID

// NewUUID generates a random v4 UUID.
func NewUUID() UUID {
	return UUID(uuid.New())
}

// ParseUUID decodes the canonical 8-4-4-4-12 textual form.
func ParseUUID(s string) (UUID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return NilUUID, err
	}
	return UUID(u), nil
}

// String renders the canonical textual form.
func (u UUID) String() string {
	return uuid.UUID(u).String()
}

// IsNil reports whether u is the zero UUID.
func (u UUID) IsNil() bool {
	return u == NilUUID
}

// Compare orders two UUIDs lexicographically over their raw bytes, which is
// the ordering every index in the repository package relies on.
func (u UUID) Compare(other UUID) int {
	return bytes.Compare(u[:], other[:])
}

// MarshalText renders u in its canonical textual form. Implementing
// encoding.TextMarshaler (rather than only json.Marshaler) is what lets
// encoding/json use UUID as a map key — every id-set field in this package
// (Allow.Users, User.Groups, RequestSpecifier.ResourceIDs, ...) is a
// map[UUID]struct{}.
func (u UUID) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

// UnmarshalText is the inverse of MarshalText.
func (u *UUID) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*u = NilUUID
		return nil
	}
	parsed, err := ParseUUID(string(text))
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}

// MarshalJSON renders u in its canonical textual form, so every JSON
// surface (repository persistence and api/httpapi's wire DTOs alike) carries
// ids the way spec.md §6 describes them rather than as raw byte arrays.
func (u UUID) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.String())
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (u *UUID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*u = NilUUID
		return nil
	}
	parsed, err := ParseUUID(s)
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}

// MinUUID and MaxUUID are the sentinels range queries fill a partial key's
// tail with, per spec.md's "Range queries use lexicographic bounds
// constructed by filling the tail with MIN_UUID/MAX_UUID sentinels."
var (
	MinUUID UUID
	MaxUUID = func() UUID {
		var u UUID
		for i := range u {
			u[i] = 0xff
		}
		return u
	}()
)

// Principal is the opaque caller identity supplied by the execution
// platform. It is treated as an orderable byte string throughout the
// station; equality and ordering are both defined over the raw bytes.
type Principal []byte

// AnonymousPrincipal is the sentinel identity used by callers that have not
// authenticated; it never satisfies an Authenticated or Restricted Allow.
var AnonymousPrincipal = Principal{0x04}

// IsAnonymous reports whether p is the anonymous principal.
func (p Principal) IsAnonymous() bool {
	return bytes.Equal(p, AnonymousPrincipal)
}

// String renders the principal as lowercase hex for logs and indexes.
func (p Principal) String() string {
	return hex.EncodeToString(p)
}

// ParsePrincipalHex decodes a principal from its lowercase-hex wire form,
// the inverse of Principal.String — the shape a JWT subject claim or an
// address-book owner field carries it in.
func ParsePrincipalHex(s string) (Principal, error) {
	decoded, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	return Principal(decoded), nil
}

// Equal reports byte-for-byte equality.
func (p Principal) Equal(other Principal) bool {
	return bytes.Equal(p, other)
}

// Compare orders two principals lexicographically, used by the permission
// index and the rate limiter's bucket map key.
func (p Principal) Compare(other Principal) int {
	return bytes.Compare(p, other)
}

// MarshalJSON renders p as lowercase hex, matching String.
func (p Principal) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON decodes p from its lowercase-hex wire form.
func (p *Principal) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	decoded, err := ParsePrincipalHex(s)
	if err != nil {
		return err
	}
	*p = decoded
	return nil
}

// Timestamp is monotonic nanoseconds since the Unix epoch. It is the only
// time representation used internally; it is encoded as an RFC 3339 string
// by its own MarshalJSON/UnmarshalJSON below.
type Timestamp int64

// Now returns the current wall-clock time as a Timestamp.
func Now() Timestamp {
	return Timestamp(time.Now().UnixNano())
}

// Add returns t shifted by d.
func (t Timestamp) Add(d time.Duration) Timestamp {
	return t + Timestamp(d.Nanoseconds())
}

// Before reports whether t is strictly before other.
func (t Timestamp) Before(other Timestamp) bool { return t < other }

// After reports whether t is strictly after other.
func (t Timestamp) After(other Timestamp) bool { return t > other }

// Time converts t to a time.Time for RFC 3339 formatting.
func (t Timestamp) Time() time.Time {
	return time.Unix(0, int64(t)).UTC()
}

// FormatRFC3339 renders t on the wire per spec.md §6: "All timestamps
// surfaced as RFC 3339 strings."
func (t Timestamp) FormatRFC3339() string {
	return t.Time().Format(time.RFC3339Nano)
}

// ParseRFC3339 is the inverse of FormatRFC3339.
func ParseRFC3339(s string) (Timestamp, error) {
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return 0, err
	}
	return Timestamp(parsed.UnixNano()), nil
}

// MarshalJSON renders t as an RFC 3339 string per spec.md §6.4, rather than
// the bare integer nanosecond count a plain int64 alias would produce.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.FormatRFC3339())
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseRFC3339(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// clock serializes next_time() so that events created within one atomic
// round (a single inbound call or timer firing, per spec.md §5) always
// observe strictly increasing timestamps, even when the wall clock has not
// advanced between two calls in the same round.
type clock struct {
	mu   sync.Mutex
	last Timestamp
}

var globalClock clock

// NextTime returns a Timestamp strictly greater than any value previously
// returned by NextTime in this process. It is the one primitive every
// "last_modified"/"created"/"decided_at" field in this package is stamped
// with, matching spec.md §3's next_time() helper.
func NextTime() Timestamp {
	globalClock.mu.Lock()
	defer globalClock.mu.Unlock()
	now := Now()
	if now <= globalClock.last {
		now = globalClock.last + 1
	}
	globalClock.last = now
	return now
}
