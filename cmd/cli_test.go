package cmd

import (
	"bytes"
	"context"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"vocalfx/internal/audio"
	"vocalfx/pkg/build"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := Execute(context.Background(), args, &out)
	return out.String(), err
}

func TestKeysCommand(t *testing.T) {
	out, err := execute(t, "keys")
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 24 {
		t.Fatalf("got %d lines, want 24", len(lines))
	}
	if got := lines[12]; !strings.Contains(got, "A Minor") || !strings.HasSuffix(got, "A B C D E F G") {
		t.Errorf("line 12 = %q", got)
	}
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "--version")
	if err != nil {
		t.Fatal(err)
	}
	if want := build.GetBuildFlags().String(); strings.TrimSpace(out) != want {
		t.Errorf("--version = %q, want %q", out, want)
	}
}

func TestLoadConfigFlags(t *testing.T) {
	o := &options{}
	c := newRunCmd(o)
	err := c.ParseFlags([]string{
		"--mode", "vocode", "-k", "F#", "--octave", "4",
		"-s", "44100", "--udp", "127.0.0.1:9999", "--serve", ":8181", "--gate", "0.05",
	})
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := loadConfig(c, o)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}

	if cfg.Engine.Mode != "vocode" || cfg.Musical.Key != "F#" || cfg.Musical.Octave != 4 {
		t.Errorf("engine/musical = %+v %+v", cfg.Engine, cfg.Musical)
	}
	if cfg.Audio.SampleRate != 44100 || cfg.Audio.GateThreshold != 0.05 {
		t.Errorf("audio = %+v", cfg.Audio)
	}
	if !cfg.Transport.UDPEnabled || cfg.Transport.UDPTargetAddress != "127.0.0.1:9999" {
		t.Errorf("transport = %+v", cfg.Transport)
	}
	if !cfg.Server.Enabled || cfg.Server.Addr != ":8181" {
		t.Errorf("server = %+v", cfg.Server)
	}
	// Unset flags keep the configured values.
	if cfg.Musical.Note != 0 || cfg.Engine.FFTSize != 1024 || cfg.Recording.Enabled {
		t.Errorf("unset flags leaked into the config: %+v", cfg)
	}

	s, err := cfg.Settings()
	if err != nil || s.Key != 6 {
		t.Errorf("Settings() = %+v, %v", s, err)
	}
}

func TestLoadConfigRejectsFlags(t *testing.T) {
	tests := [][]string{
		{"--octave", "12"},
		{"--mode", "chorus"},
		{"--key", "H major"},
		{"--preset", "studio"},
	}
	for _, args := range tests {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			o := &options{}
			c := newRunCmd(o)
			if err := c.ParseFlags(args); err != nil {
				t.Fatal(err)
			}
			if _, err := loadConfig(c, o); err == nil {
				t.Error("loadConfig accepted an invalid flag")
			}
		})
	}
}

func sine(n int, sr, freq, amp float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/sr)
	}
	return out
}

func TestRenderCommand(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.wav")
	out := filepath.Join(dir, "out.wav")
	if err := audio.WriteFile(in, sine(22050, 44100, 220, 0.5), 44100, 16); err != nil {
		t.Fatal(err)
	}

	stdout, err := execute(t, "render", in, out, "--mode", "dry", "--bit-depth", "24")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(stdout, "out.wav") {
		t.Errorf("stdout = %q", stdout)
	}

	clip, err := audio.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if clip.SampleRate != 44100 || len(clip.Samples) != 22050 || clip.BitDepth != 24 {
		t.Fatalf("output: %d Hz, %d samples, %d bit", clip.SampleRate, len(clip.Samples), clip.BitDepth)
	}
	peak := 0.0
	for _, v := range clip.Samples {
		peak = max(peak, math.Abs(v))
	}
	if peak < 0.1 {
		t.Errorf("output peak %v, want audible output", peak)
	}
}

func TestRenderCommandErrors(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.wav")
	carrier := filepath.Join(dir, "carrier.wav")
	if err := audio.WriteFile(in, sine(4096, 44100, 220, 0.5), 44100, 16); err != nil {
		t.Fatal(err)
	}
	if err := audio.WriteFile(carrier, sine(4096, 22050, 110, 0.5), 22050, 16); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing output", []string{"render", in}, "accepts 2 arg"},
		{"unsupported input", []string{"render", filepath.Join(dir, "in.mp3"), filepath.Join(dir, "o.wav")}, "unsupported audio file"},
		{"carrier rate", []string{"render", in, filepath.Join(dir, "o.wav"), "-m", "vocode", "--carrier", carrier}, "carrier is 22050 Hz"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want it to contain %q", err, tt.want)
			}
		})
	}
}
