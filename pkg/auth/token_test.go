package auth

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMintVerifyRoundTrip(t *testing.T) {
	secrets := map[string]struct{}{"s3cret": {}}
	tok := MintToken("user-1", "s3cret")
	id, err := VerifyToken(tok, secrets)
	require.NoError(t, err)
	require.Equal(t, "user-1", id)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	tok := MintToken("user-1", "s3cret")
	_, err := VerifyToken(tok, map[string]struct{}{"other": {}})
	require.Error(t, err)
}

func TestVerifyRejectsMalformed(t *testing.T) {
	secrets := map[string]struct{}{"s3cret": {}}
	for _, tok := range []string{"", "no-dot", ".sigonly", "user."} {
		_, err := VerifyToken(tok, secrets)
		require.Error(t, err, "token %q", tok)
	}
}

func TestVerifyTriesAllSecrets(t *testing.T) {
	// Rotation: tokens minted under the old secret stay valid while both
	// secrets are configured.
	secrets := map[string]struct{}{"old": {}, "new": {}}
	tok := MintToken("user-2", "old")
	id, err := VerifyToken(tok, secrets)
	require.NoError(t, err)
	require.Equal(t, "user-2", id)
}

func TestTokenFromRequestPrecedence(t *testing.T) {
	r := httptest.NewRequest("GET", "/v1/conversations?token=fromquery", nil)
	r.Header.Set("X-Auth-Token", "fromheader")
	require.Equal(t, "fromheader", TokenFromRequest(r))

	r.Header.Set("Authorization", "Bearer frombearer")
	require.Equal(t, "frombearer", TokenFromRequest(r))

	r2 := httptest.NewRequest("GET", "/v1/ws?token=fromquery", nil)
	require.Equal(t, "fromquery", TokenFromRequest(r2))
}
