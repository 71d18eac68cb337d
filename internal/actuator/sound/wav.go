package sound

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var (
	errNotWAV         = errors.New("not a RIFF/WAVE file")
	errNoPCMData      = errors.New("wav file has no data chunk")
	errUnsupportedWAV = errors.New("only 16-bit PCM wav is supported")
)

const (
	pcmFormat      = 1
	bitsPerSample  = 16
	fmtChunkLength = 16
)

// format describes the PCM stream of a WAV file.
type format struct {
	// SampleRate in Hz.
	SampleRate int
	// Channels is 1 for mono, 2 for stereo.
	Channels int
	// BitDepth in bits per sample.
	BitDepth int
}

// parseWAV returns the format and the raw PCM samples of a WAV file.
func parseWAV(data []byte) (*format, []byte, error) {
	reader := bytes.NewReader(data)

	var header struct {
		RIFF [4]byte
		Size uint32
		WAVE [4]byte
	}

	if err := binary.Read(reader, binary.LittleEndian, &header); err != nil {
		return nil, nil, fmt.Errorf("read wav header: %w", err)
	}

	if string(header.RIFF[:]) != "RIFF" || string(header.WAVE[:]) != "WAVE" {
		return nil, nil, errNotWAV
	}

	var result *format

	for {
		var chunk struct {
			ID   [4]byte
			Size uint32
		}

		if err := binary.Read(reader, binary.LittleEndian, &chunk); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, nil, errNoPCMData
			}

			return nil, nil, fmt.Errorf("read wav chunk: %w", err)
		}

		switch string(chunk.ID[:]) {
		case "fmt ":
			var fmtChunk struct {
				AudioFormat   uint16
				Channels      uint16
				SampleRate    uint32
				ByteRate      uint32
				BlockAlign    uint16
				BitsPerSample uint16
			}

			if err := binary.Read(reader, binary.LittleEndian, &fmtChunk); err != nil {
				return nil, nil, fmt.Errorf("read wav format: %w", err)
			}

			if fmtChunk.AudioFormat != pcmFormat || fmtChunk.BitsPerSample != bitsPerSample {
				return nil, nil, errUnsupportedWAV
			}

			result = &format{
				SampleRate: int(fmtChunk.SampleRate),
				Channels:   int(fmtChunk.Channels),
				BitDepth:   int(fmtChunk.BitsPerSample),
			}

			if extra := int64(chunk.Size) - fmtChunkLength; extra > 0 {
				if _, err := reader.Seek(extra, io.SeekCurrent); err != nil {
					return nil, nil, fmt.Errorf("skip wav format extension: %w", err)
				}
			}
		case "data":
			if result == nil {
				return nil, nil, errUnsupportedWAV
			}

			samples := make([]byte, chunk.Size)
			if _, err := io.ReadFull(reader, samples); err != nil {
				return nil, nil, fmt.Errorf("read wav samples: %w", err)
			}

			return result, samples, nil
		default:
			if _, err := reader.Seek(int64(chunk.Size), io.SeekCurrent); err != nil {
				return nil, nil, fmt.Errorf("skip wav chunk: %w", err)
			}
		}
	}
}

// scaleVolume returns a copy of 16-bit little-endian samples multiplied by volume.
func scaleVolume(samples []byte, volume float64) []byte {
	if volume >= 1 {
		return samples
	}

	scaled := make([]byte, len(samples))

	for i := 0; i+1 < len(samples); i += 2 {
		sample := int16(binary.LittleEndian.Uint16(samples[i:]))
		binary.LittleEndian.PutUint16(scaled[i:], uint16(int16(float64(sample)*volume)))
	}

	return scaled
}
