package jwt

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestCreateAndExtract(t *testing.T) {
	token, err := CreateToken("user-1", "secret")
	require.NoError(t, err)

	userID, err := ExtractUserIDFromToken(token, "secret")
	require.NoError(t, err)
	require.Equal(t, "user-1", userID)

	_, err = ExtractUserIDFromToken(token, "other-secret")
	require.Error(t, err)
}

func TestExtract_Expired(t *testing.T) {
	claims := Claims{
		UserID: "user-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = ExtractUserIDFromToken(token, "secret")
	require.Error(t, err)
}

func TestExtract_Garbage(t *testing.T) {
	_, err := ExtractUserIDFromToken("not-a-token", "secret")
	require.Error(t, err)

	_, err = CreateToken("user-1", "")
	require.Error(t, err)
}
