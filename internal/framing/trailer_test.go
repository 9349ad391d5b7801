package framing_test

import (
	"bytes"
	"io"
	"math/rand"
	"testing"

	"github.com/bytechute/chute/internal/framing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrailerRoundtrip(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for _, size := range []int{0, 1, 31, 32, 33, 1000, 100_000} {
		payload := make([]byte, size)
		_, err := rng.Read(payload)
		require.NoError(t, err)

		var buf bytes.Buffer
		tw := framing.NewTrailerWriter(&buf)
		_, err = tw.Write(payload)
		require.NoError(t, err)
		require.NoError(t, tw.Close())
		assert.Equal(t, size+framing.TrailerSize, buf.Len())

		tr := framing.NewTrailerReader(&buf)
		got, err := io.ReadAll(tr)
		require.NoError(t, err)
		assert.Equal(t, payload, got, "size %d", size)
		assert.NoError(t, tr.Verify())
	}
}

func TestTrailerDetectsTamperedPayload(t *testing.T) {
	var buf bytes.Buffer
	tw := framing.NewTrailerWriter(&buf)
	_, err := tw.Write([]byte("the quick brown fox jumps over the lazy dog"))
	require.NoError(t, err)
	require.NoError(t, tw.Close())

	tampered := buf.Bytes()
	tampered[4] ^= 0x01

	tr := framing.NewTrailerReader(bytes.NewReader(tampered))
	_, err = io.ReadAll(tr)
	require.NoError(t, err)
	assert.ErrorIs(t, tr.Verify(), framing.ErrChecksumMismatch)
}

func TestTrailerDetectsTamperedDigest(t *testing.T) {
	var buf bytes.Buffer
	tw := framing.NewTrailerWriter(&buf)
	_, err := tw.Write([]byte("payload"))
	require.NoError(t, err)
	require.NoError(t, tw.Close())

	tampered := buf.Bytes()
	tampered[len(tampered)-1] ^= 0x01

	tr := framing.NewTrailerReader(bytes.NewReader(tampered))
	_, err = io.ReadAll(tr)
	require.NoError(t, err)
	assert.ErrorIs(t, tr.Verify(), framing.ErrChecksumMismatch)
}

func TestTrailerTruncatedStream(t *testing.T) {
	tr := framing.NewTrailerReader(bytes.NewReader([]byte("way too short")))
	_, err := io.ReadAll(tr)
	assert.ErrorIs(t, err, framing.ErrTrailerMissing)
}

func TestTrailerVerifyBeforeDrain(t *testing.T) {
	var buf bytes.Buffer
	tw := framing.NewTrailerWriter(&buf)
	_, err := tw.Write(bytes.Repeat([]byte("x"), 4096))
	require.NoError(t, err)
	require.NoError(t, tw.Close())

	tr := framing.NewTrailerReader(&buf)
	small := make([]byte, 8)
	_, err = tr.Read(small)
	require.NoError(t, err)
	assert.Error(t, tr.Verify())
}
