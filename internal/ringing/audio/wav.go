package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrUnsupportedWAV is returned for files the player cannot decode.
var ErrUnsupportedWAV = errors.New("unsupported wav file")

const (
	pcmFormat     = 1
	bitDepth16    = 16
	fmtChunkSize  = 16
	riffHeaderLen = 12
)

// wavFormat holds the fmt chunk fields the player needs.
type wavFormat struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// parseWAV returns the format and PCM samples of a RIFF/WAVE file.
// Only 16-bit PCM is supported because the device runs in signed 16-bit mode.
func parseWAV(data []byte) (wavFormat, []byte, error) {
	var format wavFormat

	if len(data) < riffHeaderLen || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return format, nil, fmt.Errorf("missing RIFF/WAVE header: %w", ErrUnsupportedWAV)
	}

	reader := bytes.NewReader(data[riffHeaderLen:])

	var (
		haveFormat bool
		samples    []byte
	)

	for samples == nil {
		var header struct {
			ID   [4]byte
			Size uint32
		}

		if err := binary.Read(reader, binary.LittleEndian, &header); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}

			return format, nil, fmt.Errorf("read chunk header: %w", err)
		}

		switch string(header.ID[:]) {
		case "fmt ":
			var chunk struct {
				AudioFormat   uint16
				Channels      uint16
				SampleRate    uint32
				ByteRate      uint32
				BlockAlign    uint16
				BitsPerSample uint16
			}

			if header.Size < fmtChunkSize {
				return format, nil, fmt.Errorf("fmt chunk too short: %w", ErrUnsupportedWAV)
			}

			if err := binary.Read(reader, binary.LittleEndian, &chunk); err != nil {
				return format, nil, fmt.Errorf("read fmt chunk: %w", err)
			}

			if _, err := reader.Seek(int64(header.Size-fmtChunkSize), io.SeekCurrent); err != nil {
				return format, nil, fmt.Errorf("skip fmt extension: %w", err)
			}

			if chunk.AudioFormat != pcmFormat || chunk.BitsPerSample != bitDepth16 {
				return format, nil, fmt.Errorf("format %d with %d bits: %w", chunk.AudioFormat, chunk.BitsPerSample, ErrUnsupportedWAV)
			}

			format = wavFormat{
				SampleRate: int(chunk.SampleRate),
				Channels:   int(chunk.Channels),
				BitDepth:   int(chunk.BitsPerSample),
			}
			haveFormat = true
		case "data":
			size := min(int(header.Size), reader.Len())
			samples = make([]byte, size)

			if _, err := io.ReadFull(reader, samples); err != nil {
				return format, nil, fmt.Errorf("read data chunk: %w", err)
			}
		default:
			// Chunks are word aligned.
			skip := int64(header.Size) + int64(header.Size%2)
			if _, err := reader.Seek(skip, io.SeekCurrent); err != nil {
				return format, nil, fmt.Errorf("skip chunk: %w", err)
			}
		}
	}

	if !haveFormat || samples == nil {
		return format, nil, fmt.Errorf("missing fmt or data chunk: %w", ErrUnsupportedWAV)
	}

	return format, samples, nil
}
