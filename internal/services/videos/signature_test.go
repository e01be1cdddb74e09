package videos

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestVerifySignature(t *testing.T) {
	payload := []byte(`{"type":"video.asset.ready"}`)
	secret := "whsec"
	now := time.Unix(1_700_000_000, 0)
	header := SignPayload(payload, secret, now)

	require.True(t, VerifySignature(payload, header, secret, now, 5*time.Minute))
	require.True(t, VerifySignature(payload, header, secret, now.Add(4*time.Minute), 5*time.Minute))

	t.Run("tampered body", func(t *testing.T) {
		require.False(t, VerifySignature([]byte(`{"type":"video.asset.deleted"}`), header, secret, now, 5*time.Minute))
	})

	t.Run("wrong secret", func(t *testing.T) {
		require.False(t, VerifySignature(payload, header, "other", now, 5*time.Minute))
	})

	t.Run("empty secret never verifies", func(t *testing.T) {
		require.False(t, VerifySignature(payload, SignPayload(payload, "", now), "", now, 0))
	})

	t.Run("too old", func(t *testing.T) {
		require.False(t, VerifySignature(payload, header, secret, now.Add(10*time.Minute), 5*time.Minute))
	})

	t.Run("zero tolerance skips age check", func(t *testing.T) {
		require.True(t, VerifySignature(payload, header, secret, now.Add(24*time.Hour), 0))
	})

	t.Run("malformed header", func(t *testing.T) {
		for _, h := range []string{"", "garbage", "t=1700000000", "v1=abcd", "t=x,v1=zz"} {
			require.False(t, VerifySignature(payload, h, secret, now, 5*time.Minute), h)
		}
	})

	t.Run("one of several signatures matches", func(t *testing.T) {
		rotated := header + ",v1=" + "00ff"
		require.True(t, VerifySignature(payload, "v1=deadbeef,"+rotated, secret, now, 5*time.Minute))
	})
}
