package sound

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

// buildWAV encodes 16-bit mono PCM samples with an extra LIST chunk before data.
func buildWAV(t *testing.T, samples []int16) []byte {
	t.Helper()

	var pcm bytes.Buffer
	require.NoError(t, binary.Write(&pcm, binary.LittleEndian, samples))

	var buf bytes.Buffer

	write := func(v any) {
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, v))
	}

	buf.WriteString("RIFF")
	write(uint32(36 + 12 + pcm.Len()))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	write(uint32(16))
	write(uint16(1))
	write(uint16(1))
	write(uint32(8000))
	write(uint32(16000))
	write(uint16(2))
	write(uint16(16))
	buf.WriteString("LIST")
	write(uint32(4))
	buf.WriteString("INFO")
	buf.WriteString("data")
	write(uint32(pcm.Len()))
	buf.Write(pcm.Bytes())

	return buf.Bytes()
}

// TestParseWAV reads the format and samples and skips unknown chunks.
func TestParseWAV(t *testing.T) {
	t.Parallel()

	wavFormat, samples, err := parseWAV(buildWAV(t, []int16{1000, -1000, 32767}))
	require.NoError(t, err)
	require.Equal(t, &format{SampleRate: 8000, Channels: 1, BitDepth: 16}, wavFormat)
	require.Len(t, samples, 6)

	_, _, err = parseWAV([]byte("RIFF\x00\x00\x00\x00AVI "))
	require.ErrorIs(t, err, errNotWAV)

	_, _, err = parseWAV([]byte("nope"))
	require.Error(t, err)
}

// TestScaleVolume halves samples and leaves full volume untouched.
func TestScaleVolume(t *testing.T) {
	t.Parallel()

	_, samples, err := parseWAV(buildWAV(t, []int16{1000, -1000}))
	require.NoError(t, err)

	require.Equal(t, samples, scaleVolume(samples, 1))

	half := scaleVolume(samples, 0.5)
	require.Equal(t, int16(500), int16(binary.LittleEndian.Uint16(half[0:])))
	require.Equal(t, int16(-500), int16(binary.LittleEndian.Uint16(half[2:])))
}
