package audio

import (
	"bytes"
	"fmt"
	"io"

	"github.com/hajimehoshi/go-mp3"
)

// isMP3 reports whether the bytes look like an MP3 stream (ID3 tag or frame sync).
func isMP3(raw []byte) bool {
	if len(raw) < 3 {
		return false
	}
	if string(raw[0:3]) == "ID3" {
		return true
	}
	return raw[0] == 0xFF && raw[1]&0xE0 == 0xE0
}

// DecodeMP3 decodes an MP3 stream into mono samples at the stream's native
// rate. go-mp3 always emits 16-bit stereo frames.
func DecodeMP3(raw []byte) ([]float64, Format, error) {
	d, err := mp3.NewDecoder(bytes.NewReader(raw))
	if err != nil {
		return nil, Format{}, fmt.Errorf("mp3 decode: %w", err)
	}
	pcm, err := io.ReadAll(d)
	if err != nil {
		return nil, Format{}, fmt.Errorf("mp3 read: %w", err)
	}

	samples := foldToMono(DecodePCM16(pcm), 2)
	f := Format{
		SampleRate:    d.SampleRate(),
		Channels:      1,
		BitsPerSample: 16,
	}
	return samples, f, nil
}
