package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeTitle(t *testing.T) {
	cases := map[string]string{
		"Editors":             "editors",
		"  Senior Editors  ":  "senior-editors",
		"Café Crew":           "cafe-crew",
		"<b>bold</b> team":    "bold-team",
		"a--b   c":            "a-b-c",
		"under_score":         "under_score",
		"v1.2/beta":           "v1-2-beta",
		"!!!":                 "",
	}
	for in, want := range cases {
		assert.Equal(t, want, SanitizeTitle(in), "input %q", in)
	}
}

func TestStripTags(t *testing.T) {
	assert.Equal(t, "Managing Editor", StripTags("<em>Managing</em> Editor"))
	assert.Equal(t, "x", StripTags("<script>alert(1)</script>x"))
	assert.Equal(t, "plain", StripTags("plain"))
}

func TestNonceRoundTrip(t *testing.T) {
	s := NonceSigner{Secret: "secret", TTL: time.Minute}
	tok, err := s.Create(42, "manage-role")
	require.NoError(t, err)

	assert.NoError(t, s.Verify(tok, 42, "manage-role"))
	assert.ErrorIs(t, s.Verify(tok, 43, "manage-role"), ErrInvalidNonce)
	assert.ErrorIs(t, s.Verify(tok, 42, "other"), ErrInvalidNonce)
	assert.ErrorIs(t, s.Verify("garbage", 42, "manage-role"), ErrInvalidNonce)

	other := NonceSigner{Secret: "different", TTL: time.Minute}
	assert.ErrorIs(t, other.Verify(tok, 42, "manage-role"), ErrInvalidNonce)
}

func TestNonceExpired(t *testing.T) {
	s := NonceSigner{Secret: "secret", TTL: -time.Minute}
	tok, err := s.Create(1, "manage-role")
	require.NoError(t, err)
	assert.ErrorIs(t, s.Verify(tok, 1, "manage-role"), ErrInvalidNonce)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret", 4)
	require.NoError(t, err)
	assert.True(t, VerifyPassword(hash, "s3cret"))
	assert.False(t, VerifyPassword(hash, "nope"))
}
