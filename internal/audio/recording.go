package audio

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"vocalfx/internal/config"
)

// ErrRecordingFull is returned once a recorder reaches its maximum length.
var ErrRecordingFull = errors.New("recording reached its maximum duration")

// recordChunk is the conversion buffer size in samples.
const recordChunk = 4096

// Recorder writes mono float samples to a PCM WAV file.
type Recorder struct {
	path       string
	file       *os.File
	enc        *wav.Encoder
	buf        *audio.IntBuffer // reusable buffer for format conversion
	scale      float64
	limit      int // samples; 0 for unlimited
	written    int
	sampleRate int
}

// CreateRecorder creates path and prepares a WAV encoder. maxSeconds of
// zero records without a limit.
func CreateRecorder(path string, sampleRate, bitDepth, maxSeconds int) (*Recorder, error) {
	switch bitDepth {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("unsupported bit depth %d", bitDepth)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	return &Recorder{
		path: path,
		file: file,
		enc:  wav.NewEncoder(file, sampleRate, bitDepth, 1, 1),
		buf: &audio.IntBuffer{
			Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
			Data:           make([]int, recordChunk),
			SourceBitDepth: bitDepth,
		},
		scale:      float64(int64(1)<<(bitDepth-1) - 1),
		limit:      maxSeconds * sampleRate,
		sampleRate: sampleRate,
	}, nil
}

// Path returns the file being written.
func (r *Recorder) Path() string { return r.path }

// Written returns the number of samples written so far.
func (r *Recorder) Written() int { return r.written }

// Write converts samples to PCM and appends them. Samples are clipped to
// [-1, 1]. Samples past the duration limit are dropped with ErrRecordingFull.
func (r *Recorder) Write(samples []float64) error {
	if r.enc == nil {
		return errors.New("recorder is closed")
	}
	full := false
	if r.limit > 0 && r.written+len(samples) > r.limit {
		samples = samples[:max(r.limit-r.written, 0)]
		full = true
	}
	for len(samples) > 0 {
		n := min(len(samples), recordChunk)
		for i, s := range samples[:n] {
			r.buf.Data[i] = int(math.Round(max(-1, min(1, s)) * r.scale))
		}
		r.buf.Data = r.buf.Data[:n]
		err := r.enc.Write(r.buf)
		r.buf.Data = r.buf.Data[:cap(r.buf.Data)]
		if err != nil {
			return fmt.Errorf("failed to write %s: %w", r.path, err)
		}
		r.written += n
		samples = samples[n:]
	}
	if full {
		return ErrRecordingFull
	}
	return nil
}

// Close finalizes the WAV header and closes the file.
func (r *Recorder) Close() error {
	if r.enc == nil {
		return nil
	}
	encErr := r.enc.Close()
	r.enc = nil
	fileErr := r.file.Close()
	r.file = nil
	return errors.Join(encErr, fileErr)
}

// StartRecording records the processed output to filename until
// StopRecording, the duration limit or repeated write failures.
func (e *Engine) StartRecording(filename string) error {
	if e.recording.Load() || e.recorder != nil {
		return fmt.Errorf("already recording")
	}

	rec, err := CreateRecorder(filename, int(e.config.Audio.SampleRate),
		e.config.Recording.BitDepth, e.config.Recording.MaxDuration)
	if err != nil {
		return err
	}

	// Samples left over from a previous recording belong to nobody.
	for e.recRing.Available() > 0 {
		e.recRing.Pop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	e.recorder = rec
	e.recCancel = cancel
	e.recDone = make(chan struct{})
	e.recErr = nil
	e.dropped.Store(0)
	go e.writeRecording(ctx, rec, e.recDone)

	e.recording.Store(true)
	e.log.Infof("recording to %s", filename)
	return nil
}

// Recording reports whether the callback is capturing output.
func (e *Engine) Recording() bool { return e.recording.Load() }

// writeRecording drains the ring into rec until ctx is cancelled.
func (e *Engine) writeRecording(ctx context.Context, rec *Recorder, done chan<- struct{}) {
	defer close(done)

	tick := time.NewTicker(recordFlushInterval)
	defer tick.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			if err := e.drainRecording(rec); err != nil && !errors.Is(err, ErrRecordingFull) {
				e.recErr = err
			}
			return
		case <-tick.C:
		}

		err := e.drainRecording(rec)
		switch {
		case err == nil:
			failures = 0
		case errors.Is(err, ErrRecordingFull):
			e.log.Infof("recording %s reached %d s, stopping", rec.Path(), e.config.Recording.MaxDuration)
			e.recording.Store(false)
			<-ctx.Done()
			return
		default:
			failures++
			e.log.Warnf("error writing recording: %v", err)
			if failures >= config.DefaultMaxConsecutiveWriteFailures {
				e.log.Errorf("stopping recording after %d consecutive write failures", failures)
				e.recording.Store(false)
				e.recErr = err
				<-ctx.Done()
				return
			}
		}
	}
}

func (e *Engine) drainRecording(rec *Recorder) error {
	n := 0
	for n < len(e.recBuf) && e.recRing.Available() > 0 {
		e.recBuf[n] = e.recRing.Pop()
		n++
	}
	if n == 0 {
		return nil
	}
	return rec.Write(e.recBuf[:n])
}

// StopRecording flushes and closes the current recording. It is a no-op
// when nothing is being recorded.
func (e *Engine) StopRecording() error {
	if e.recorder == nil {
		return nil
	}

	e.recording.Store(false)
	e.recCancel()
	<-e.recDone

	if d := e.dropped.Load(); d > 0 {
		e.log.Warnf("recording dropped %d samples", d)
	}

	err := errors.Join(e.recErr, e.recorder.Close())
	e.recorder = nil
	e.recCancel = nil
	e.recDone = nil
	return err
}
