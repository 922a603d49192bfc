// Package cmd is the vocalfx command line.
package cmd

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"vocalfx/internal/config"
	"vocalfx/internal/log"
	"vocalfx/pkg/build"
)

// options collects the flags shared by the subcommands. Only flags the
// user actually set override the loaded configuration.
type options struct {
	configPath string
	logLevel   string
	debug      bool

	preset  string
	mode    string
	fftSize int
	window  string
	key     string
	note    int
	octave  int
	formant int

	inputDevice     int
	outputDevice    int
	sampleRate      float64
	framesPerBuffer int
	lowLatency      bool
	gate            float64

	record    bool
	recordDir string
	bitDepth  int
	udp       string
	serve     string
	spectrum  bool
	noTUI     bool
	pick      bool

	carrier string
}

// Execute runs the command line with args and writes normal output to out.
func Execute(ctx context.Context, args []string, out io.Writer) error {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(out)
	return root.ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	buildInfo := build.GetBuildFlags()
	o := &options{}

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         buildInfo.Description,
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
	}
	rootCmd.SetVersionTemplate(buildInfo.String() + "\n")
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	rootCmd.PersistentFlags().StringVarP(&o.configPath, "config", "c", "",
		"Configuration file (default: ./config.yaml or ./vocalfx.yaml when present)")
	rootCmd.PersistentFlags().StringVar(&o.logLevel, "log-level", "",
		"Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().BoolVarP(&o.debug, "verbose", "v", false,
		"Show verbose output")

	rootCmd.AddCommand(
		newRunCmd(o),
		newRenderCmd(o),
		newListCmd(),
		newKeysCmd(),
	)
	return rootCmd
}

// addEngineFlags registers the vocoder and musical flags on c.
func addEngineFlags(c *cobra.Command, o *options) {
	f := c.Flags()
	f.StringVarP(&o.preset, "preset", "p", "", "Engine preset: realtime, low_latency or high_quality")
	f.StringVarP(&o.mode, "mode", "m", config.DefaultMode, "Processing mode: autotune, vocode or dry")
	f.IntVar(&o.fftSize, "fft-size", config.DefaultFFTSize, "FFT size: 512, 1024, 2048 or 4096")
	f.StringVar(&o.window, "window", config.DefaultWindow, "Analysis window: hann, blackman or bartletthann")
	f.StringVarP(&o.key, "key", "k", config.DefaultKey, `Musical key, e.g. "A minor", "F#" or an index 0-23`)
	f.IntVarP(&o.note, "note", "n", 0, "Scale degree 1-9, or 0 to snap to the nearest note")
	f.IntVarP(&o.octave, "octave", "o", config.DefaultOctave, "Octave setting: 1 down, 2 unchanged, 4 up")
	f.IntVarP(&o.formant, "formant", "f", 0, "Formant shift: 0 none, 1 lower, 2 raise")
}

// loadConfig reads the configuration file and environment, then applies
// the flags set on c.
func loadConfig(c *cobra.Command, o *options) (*config.Config, error) {
	cfg, err := config.LoadConfig(o.configPath)
	if err != nil {
		return nil, err
	}

	changed := c.Flags().Changed
	if changed("preset") {
		if err := cfg.ApplyPreset(o.preset); err != nil {
			return nil, err
		}
	}
	if changed("mode") {
		cfg.Engine.Mode = o.mode
	}
	if changed("fft-size") {
		cfg.Engine.FFTSize = o.fftSize
	}
	if changed("window") {
		cfg.Engine.Window = o.window
	}
	if changed("key") {
		cfg.Musical.Key = o.key
	}
	if changed("note") {
		cfg.Musical.Note = o.note
	}
	if changed("octave") {
		cfg.Musical.Octave = o.octave
	}
	if changed("formant") {
		cfg.Musical.Formant = o.formant
	}

	if changed("input") {
		cfg.Audio.InputDevice = o.inputDevice
	}
	if changed("output-device") {
		cfg.Audio.OutputDevice = o.outputDevice
	}
	if changed("sample-rate") {
		cfg.Audio.SampleRate = o.sampleRate
	}
	if changed("frames-per-buffer") {
		cfg.Audio.FramesPerBuffer = o.framesPerBuffer
	}
	if changed("low-latency") {
		cfg.Audio.LowLatency = o.lowLatency
	}
	if changed("gate") {
		cfg.Audio.GateThreshold = o.gate
	}

	if changed("record") {
		cfg.Recording.Enabled = o.record
	}
	if changed("record-dir") {
		cfg.Recording.OutputDir = o.recordDir
	}
	if changed("bit-depth") {
		cfg.Recording.BitDepth = o.bitDepth
	}
	if changed("udp") {
		cfg.Transport.UDPEnabled = o.udp != ""
		cfg.Transport.UDPTargetAddress = o.udp
	}
	if changed("spectrum") {
		cfg.Transport.SendSpectrum = o.spectrum
	}
	if changed("serve") {
		cfg.Server.Enabled = o.serve != ""
		cfg.Server.Addr = o.serve
	}

	if changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
	if changed("verbose") {
		cfg.Debug = o.debug
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.SetLevel(cfg.Level())
	return cfg, nil
}
