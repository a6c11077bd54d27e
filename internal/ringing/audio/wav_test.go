package audio

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func buildWAV(t *testing.T, bits uint16, extra []byte, samples []byte) []byte {
	t.Helper()

	var body bytes.Buffer

	body.WriteString("WAVE")

	// Unknown chunk before fmt.
	body.WriteString("LIST")
	require.NoError(t, binary.Write(&body, binary.LittleEndian, uint32(len(extra))))
	body.Write(extra)

	if len(extra)%2 == 1 {
		body.WriteByte(0)
	}

	body.WriteString("fmt ")
	require.NoError(t, binary.Write(&body, binary.LittleEndian, uint32(16)))
	require.NoError(t, binary.Write(&body, binary.LittleEndian, struct {
		AudioFormat, Channels uint16
		SampleRate, ByteRate  uint32
		BlockAlign, Bits      uint16
	}{1, 2, 44100, 44100 * 4, 4, bits}))

	body.WriteString("data")
	require.NoError(t, binary.Write(&body, binary.LittleEndian, uint32(len(samples))))
	body.Write(samples)

	var out bytes.Buffer

	out.WriteString("RIFF")
	require.NoError(t, binary.Write(&out, binary.LittleEndian, uint32(body.Len())))
	out.Write(body.Bytes())

	return out.Bytes()
}

func TestParseWAV(t *testing.T) {
	t.Parallel()

	samples := []byte{1, 2, 3, 4, 5, 6, 7, 8}

	format, got, err := parseWAV(buildWAV(t, 16, []byte("abc"), samples))
	require.NoError(t, err)
	require.Equal(t, wavFormat{SampleRate: 44100, Channels: 2, BitDepth: 16}, format)
	require.Equal(t, samples, got)

	_, _, err = parseWAV(buildWAV(t, 8, nil, samples))
	require.ErrorIs(t, err, ErrUnsupportedWAV)

	_, _, err = parseWAV([]byte("not a wav file at all"))
	require.ErrorIs(t, err, ErrUnsupportedWAV)
}
