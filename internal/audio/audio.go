// Package audio prepares audio for upload: WAV parsing and duration, raw PCM wrapping and G.711
// decoding.
package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zaf/g711"
)

const (
	EncodingWAV  = "wav"
	EncodingPCM  = "pcm"
	EncodingULaw = "ulaw"
	EncodingALaw = "alaw"
)

const (
	bitsPerSample  = 16
	audioFormatPCM = 1
	wavHeaderSize  = 44
)

var ErrNotWAV = errors.New("not a RIFF/WAVE stream")

// Format is the fmt chunk of a WAV stream.
type Format struct {
	AudioFormat   uint16
	Channels      uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
}

// ParseWAV returns the format and the data chunk of a RIFF/WAVE stream. Chunks other than fmt and
// data are skipped.
func ParseWAV(data []byte) (Format, []byte, error) {
	if len(data) < 12 || !bytes.HasPrefix(data, []byte("RIFF")) || !bytes.Equal(data[8:12], []byte("WAVE")) {
		return Format{}, nil, ErrNotWAV
	}

	var format Format
	haveFormat := false

	i := 12
	for i+8 <= len(data) {
		chunkID := string(data[i : i+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[i+4 : i+8]))
		body := i + 8
		next := body + chunkSize

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 || next > len(data) {
				return Format{}, nil, errors.New("invalid WAV: truncated fmt chunk")
			}
			format = Format{
				AudioFormat:   binary.LittleEndian.Uint16(data[body:]),
				Channels:      binary.LittleEndian.Uint16(data[body+2:]),
				SampleRate:    binary.LittleEndian.Uint32(data[body+4:]),
				ByteRate:      binary.LittleEndian.Uint32(data[body+8:]),
				BlockAlign:    binary.LittleEndian.Uint16(data[body+12:]),
				BitsPerSample: binary.LittleEndian.Uint16(data[body+14:]),
			}
			haveFormat = true
		case "data":
			if !haveFormat {
				return Format{}, nil, errors.New("invalid WAV: data chunk before fmt chunk")
			}
			if next > len(data) {
				return Format{}, nil, errors.New("invalid WAV: data chunk exceeds buffer length")
			}
			return format, data[body:next], nil
		}

		if chunkSize%2 != 0 {
			next++
		}
		i = next
	}

	return Format{}, nil, errors.New("invalid WAV: data chunk not found")
}

// Duration returns the playing time of a WAV stream.
func Duration(data []byte) (time.Duration, error) {
	format, samples, err := ParseWAV(data)
	if err != nil {
		return 0, err
	}

	if format.ByteRate == 0 {
		return 0, errors.New("invalid WAV: zero byte rate")
	}

	return time.Duration(len(samples)) * time.Second / time.Duration(format.ByteRate), nil
}

// PCMToWAV wraps 16-bit little-endian PCM into a WAV stream.
func PCMToWAV(pcm []byte, channels, sampleRate int) ([]byte, error) {
	if len(pcm) == 0 {
		return nil, errors.New("PCM data is empty")
	}
	if channels <= 0 || channels > 2 {
		return nil, errors.New("only mono (1) or stereo (2) channels supported")
	}
	if sampleRate <= 0 {
		return nil, errors.New("sample rate must be positive")
	}
	if len(pcm)%(2*channels) != 0 {
		return nil, errors.New("PCM data length doesn't match channel count")
	}

	blockAlign := channels * bitsPerSample / 8
	byteRate := sampleRate * blockAlign

	buf := bytes.NewBuffer(make([]byte, 0, wavHeaderSize+len(pcm)))

	buf.WriteString("RIFF")
	_ = binary.Write(buf, binary.LittleEndian, uint32(wavHeaderSize-8+len(pcm)))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	_ = binary.Write(buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(buf, binary.LittleEndian, uint16(audioFormatPCM))
	_ = binary.Write(buf, binary.LittleEndian, uint16(channels))
	_ = binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	_ = binary.Write(buf, binary.LittleEndian, uint32(byteRate))
	_ = binary.Write(buf, binary.LittleEndian, uint16(blockAlign))
	_ = binary.Write(buf, binary.LittleEndian, uint16(bitsPerSample))

	buf.WriteString("data")
	_ = binary.Write(buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)

	return buf.Bytes(), nil
}

// G711ToWAV decodes mono µ-law or A-law samples into a 16-bit PCM WAV stream.
func G711ToWAV(data []byte, encoding string, sampleRate int) ([]byte, error) {
	var pcm []byte

	switch encoding {
	case EncodingULaw:
		pcm = g711.DecodeUlaw(data)
	case EncodingALaw:
		pcm = g711.DecodeAlaw(data)
	default:
		return nil, fmt.Errorf("unsupported G.711 encoding %q", encoding)
	}

	return PCMToWAV(pcm, 1, sampleRate)
}

// Normalize converts raw encodings (pcm, ulaw, alaw) into WAV. Container formats are returned
// unchanged together with the extension to upload them under.
func Normalize(data []byte, encoding string, sampleRate int) ([]byte, string, error) {
	encoding = strings.ToLower(strings.TrimSpace(encoding))

	switch encoding {
	case EncodingULaw, EncodingALaw:
		wav, err := G711ToWAV(data, encoding, sampleRate)
		return wav, EncodingWAV, err
	case EncodingPCM:
		wav, err := PCMToWAV(data, 1, sampleRate)
		return wav, EncodingWAV, err
	case "":
		return data, EncodingWAV, nil
	default:
		return data, encoding, nil
	}
}
