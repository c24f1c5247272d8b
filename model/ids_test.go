package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUUIDJSONRoundTrip(t *testing.T) {
	want := NewUUID()
	data, err := json.Marshal(want)
	require.NoError(t, err)
	require.Equal(t, `"`+want.String()+`"`, string(data))

	var got UUID
	require.NoError(t, json.Unmarshal(data, &got))
	require.Equal(t, want, got)
}

func TestUUIDAsMapKeyRoundTrips(t *testing.T) {
	m := map[UUID]struct{}{NewUUID(): {}, NewUUID(): {}}
	data, err := json.Marshal(m)
	require.NoError(t, err)

	var got map[UUID]struct{}
	require.NoError(t, json.Unmarshal(data, &got))
	require.Equal(t, m, got)
}

func TestUUIDUnmarshalEmptyStringIsNil(t *testing.T) {
	var u UUID
	require.NoError(t, json.Unmarshal([]byte(`""`), &u))
	require.True(t, u.IsNil())
}

func TestPrincipalJSONRoundTrip(t *testing.T) {
	want := Principal{0xde, 0xad, 0xbe, 0xef}
	data, err := json.Marshal(want)
	require.NoError(t, err)
	require.Equal(t, `"deadbeef"`, string(data))

	var got Principal
	require.NoError(t, json.Unmarshal(data, &got))
	require.True(t, want.Equal(got))
}

func TestParsePrincipalHexRejectsInvalidInput(t *testing.T) {
	_, err := ParsePrincipalHex("not-hex")
	require.Error(t, err)
}

func TestTimestampJSONRendersRFC3339(t *testing.T) {
	ts := NextTime()
	data, err := json.Marshal(ts)
	require.NoError(t, err)

	var got Timestamp
	require.NoError(t, json.Unmarshal(data, &got))
	require.Equal(t, ts, got)
}
