package pagination

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeFormats(t *testing.T) {
	tok, err := Encode("locations", Entry, 42)
	require.NoError(t, err)
	assert.Equal(t, "locations#42", tok)

	tok, err = Encode("locations", Page, 3)
	require.NoError(t, err)
	assert.Equal(t, "locations_page#3", tok)

	tok, err = Encode("locations", Cancel, 0)
	require.NoError(t, err)
	assert.Equal(t, "locations_cancel", tok)
}

func TestRoundTrip(t *testing.T) {
	cases := []Token{
		{Collection: "players", Kind: Entry, Value: 0},
		{Collection: "players", Kind: Entry, Value: 9_223_372_036_854_775_807},
		{Collection: "my_queue", Kind: Page, Value: 17},
		{Collection: "transfer_recipients", Kind: Cancel},
		{Collection: "a", Kind: Entry, Value: 1},
		{Collection: "loc2", Kind: Page, Value: 0},
	}
	for _, want := range cases {
		t.Run(want.Collection+"/"+want.Kind.String(), func(t *testing.T) {
			tok, err := Encode(want.Collection, want.Kind, want.Value)
			require.NoError(t, err)
			got, err := Decode(tok)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestEncodeRejectsOverflow(t *testing.T) {
	name := strings.Repeat("x", 60)
	_, err := Encode(name, Entry, 123456)
	assert.ErrorIs(t, err, ErrTooLong)

	// ровно 64 байта допустимо
	name = strings.Repeat("y", 62)
	tok, err := Encode(name, Entry, 7)
	require.NoError(t, err)
	assert.Len(t, tok, MaxTokenLen)
}

func TestEncodeRejectsBadInput(t *testing.T) {
	for _, name := range []string{"", "Players", "9lives", "with space", "list_page", "list_cancel", "дом"} {
		_, err := Encode(name, Entry, 1)
		assert.ErrorIs(t, err, ErrBadCollection, name)
	}

	_, err := Encode("players", Entry, -1)
	assert.ErrorIs(t, err, ErrNegativeValue)

	_, err = Encode("players", Kind(99), 1)
	assert.ErrorIs(t, err, ErrBadKind)

	_, err = Encode("players", Cancel, 5)
	assert.Error(t, err)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	for _, tok := range []string{
		"",
		"players",
		"players#",
		"players#-1",
		"players#+1",
		"players#007",
		"players#abc",
		"#5",
		"_page#1",
		"Players#1",
		"players_cancel#1",
		"players#99999999999999999999",
		strings.Repeat("a", 70) + "#1",
	} {
		_, err := Decode(tok)
		assert.ErrorIs(t, err, ErrMalformedToken, tok)
	}
}

func TestPageArithmetic(t *testing.T) {
	assert.Equal(t, 1, PageCount(0, 10))
	assert.Equal(t, 1, PageCount(10, 10))
	assert.Equal(t, 2, PageCount(11, 10))
	assert.Equal(t, 3, PageCount(25, 10))
	assert.Equal(t, 1, PageCount(5, 0))

	assert.Equal(t, 0, ClampPage(-3, 4))
	assert.Equal(t, 3, ClampPage(10, 4))
	assert.Equal(t, 2, ClampPage(2, 4))

	prev, next := Controls(0, 3)
	assert.False(t, prev)
	assert.True(t, next)

	prev, next = Controls(2, 3)
	assert.True(t, prev)
	assert.False(t, next)

	prev, next = Controls(0, 1)
	assert.False(t, prev)
	assert.False(t, next)

	assert.Equal(t, 20, Offset(2, 10))
}
