package cryptox

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateOTPLengthAndCharset(t *testing.T) {
	t.Parallel()

	for _, length := range []int{1, 6, 8} {
		code, err := GenerateOTP(length)
		require.NoError(t, err)
		require.Len(t, code, length)
		for _, c := range code {
			require.True(t, c >= '0' && c <= '9', "unexpected character %q in %q", c, code)
		}
	}
}

func TestGenerateOTPRejectsNonPositiveLength(t *testing.T) {
	t.Parallel()

	_, err := GenerateOTP(0)
	require.Error(t, err)
	_, err = GenerateOTP(-1)
	require.Error(t, err)
}

func TestGenerateTokenIsURLSafe(t *testing.T) {
	t.Parallel()

	token, err := GenerateToken(TokenSize256)
	require.NoError(t, err)
	require.Len(t, token, 43) // 32 bytes base64url without padding
	require.NotContains(t, token, "+")
	require.NotContains(t, token, "/")
	require.NotContains(t, token, "=")

	_, err = GenerateToken(0)
	require.Error(t, err)
}
