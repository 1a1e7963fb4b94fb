package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/orcaman/writerseeker"
)

// ErrNotWAV is returned when bytes carry a RIFF header but no valid WAVE body.
var ErrNotWAV = errors.New("not a valid wav file")

// isWAV reports whether the bytes start with a RIFF/WAVE header.
func isWAV(raw []byte) bool {
	return len(raw) >= 12 && string(raw[0:4]) == "RIFF" && string(raw[8:12]) == "WAVE"
}

// DecodeWAV decodes a WAV container into samples and its source format.
func DecodeWAV(raw []byte) ([]float64, Format, error) {
	d := wav.NewDecoder(bytes.NewReader(raw))
	if !d.IsValidFile() {
		return nil, Format{}, ErrNotWAV
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, Format{}, fmt.Errorf("wav decode: %w", err)
	}

	bitDepth := int(d.BitDepth)
	if bitDepth == 0 {
		bitDepth = 16
	}
	scale := math.Pow(2, float64(bitDepth-1))

	samples := make([]float64, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = float64(v) / scale
	}

	f := Format{
		SampleRate:    buf.Format.SampleRate,
		Channels:      buf.Format.NumChannels,
		BitsPerSample: bitDepth,
	}
	return samples, f, nil
}

// EncodeWAV writes samples into a WAV container in the given format.
// Used when handing chunk audio to HTTP inference endpoints.
func EncodeWAV(samples []float64, format Format) ([]byte, error) {
	ws := &writerseeker.WriterSeeker{}
	enc := wav.NewEncoder(ws, format.SampleRate, format.BitsPerSample, format.Channels, 1)

	scale := math.Pow(2, float64(format.BitsPerSample-1)) - 1
	data := make([]int, len(samples))
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		data[i] = int(s * scale)
	}

	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: format.Channels,
			SampleRate:  format.SampleRate,
		},
		Data:           data,
		SourceBitDepth: format.BitsPerSample,
	}
	if err := enc.Write(buf); err != nil {
		return nil, fmt.Errorf("wav encode: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("wav finalize: %w", err)
	}
	return io.ReadAll(ws.BytesReader())
}
