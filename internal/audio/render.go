package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	"github.com/mewkiz/flac"

	"vocalfx/internal/stream"
)

// renderBlock is the number of samples processed between context checks.
const renderBlock = 4096

// Clip is decoded audio mixed down to mono, in [-1, 1].
type Clip struct {
	Samples    []float64
	SampleRate int
	Channels   int // channels in the source file
	BitDepth   int
}

// ReadFile decodes a WAV or FLAC file, chosen by extension.
func ReadFile(path string) (*Clip, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".wave":
		return readWAV(path)
	case ".flac":
		return readFLAC(path)
	default:
		return nil, fmt.Errorf("unsupported audio file %q (want .wav or .flac)", path)
	}
}

func readWAV(path string) (*Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, fmt.Errorf("%s: not a valid WAV file", path)
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	channels := buf.Format.NumChannels
	depth := int(d.BitDepth)
	if channels < 1 || depth < 8 || depth > 32 {
		return nil, fmt.Errorf("%s: unsupported format (%d channels, %d bits)", path, channels, depth)
	}
	if depth == 8 {
		// 8-bit WAV is unsigned.
		for i := range buf.Data {
			buf.Data[i] -= 128
		}
	}

	frames := len(buf.Data) / channels
	samples := make([]float64, frames)
	scale := 1 / float64(int64(1)<<(depth-1))
	for i := range frames {
		var sum int
		for ch := range channels {
			sum += buf.Data[i*channels+ch]
		}
		samples[i] = float64(sum) * scale / float64(channels)
	}

	return &Clip{
		Samples:    samples,
		SampleRate: int(d.SampleRate),
		Channels:   channels,
		BitDepth:   depth,
	}, nil
}

func readFLAC(path string) (*Clip, error) {
	s, err := flac.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	defer s.Close()

	channels := int(s.Info.NChannels)
	depth := int(s.Info.BitsPerSample)
	if channels < 1 || depth < 4 || depth > 32 {
		return nil, fmt.Errorf("%s: unsupported format (%d channels, %d bits)", path, channels, depth)
	}
	scale := 1 / float64(int64(1)<<(depth-1)) / float64(channels)

	samples := make([]float64, 0, s.Info.NSamples)
	for {
		frame, err := s.ParseNext()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", path, err)
		}
		n := len(frame.Subframes[0].Samples)
		for i := range n {
			var sum int64
			for _, sub := range frame.Subframes {
				sum += int64(sub.Samples[i])
			}
			samples = append(samples, float64(sum)*scale)
		}
	}

	return &Clip{
		Samples:    samples,
		SampleRate: int(s.Info.SampleRate),
		Channels:   channels,
		BitDepth:   depth,
	}, nil
}

// WriteFile writes mono samples as a PCM WAV file.
func WriteFile(path string, samples []float64, sampleRate, bitDepth int) error {
	rec, err := CreateRecorder(path, sampleRate, bitDepth, 0)
	if err != nil {
		return err
	}
	if err := rec.Write(samples); err != nil {
		rec.Close()
		return err
	}
	return rec.Close()
}

// Render runs in through ctl and returns an output of the same length,
// shifted back by the controller latency so it lines up with the input.
// aux, when non-nil, must match in and replaces the internal oscillator as
// carrier or synth.
func Render(ctx context.Context, ctl *stream.Controller, in, aux []float64) ([]float64, error) {
	if aux != nil && len(aux) != len(in) {
		return nil, fmt.Errorf("auxiliary input has %d samples, input %d", len(aux), len(in))
	}
	lat := ctl.Latency()
	out := make([]float64, len(in)+lat)

	for start := 0; start < len(in); start += renderBlock {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(start+renderBlock, len(in))
		var err error
		if aux != nil {
			err = ctl.ProcessBlockAux(in[start:end], aux[start:end], out[start:end])
		} else {
			err = ctl.ProcessBlock(in[start:end], out[start:end])
		}
		if err != nil {
			return nil, err
		}
	}
	copy(out[len(in):], ctl.Flush())

	return out[lat:], nil
}
