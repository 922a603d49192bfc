package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"vocalfx/internal/audio"
	"vocalfx/internal/config"
	"vocalfx/internal/fft"
	"vocalfx/internal/log"
	"vocalfx/internal/server"
	"vocalfx/internal/stream"
	"vocalfx/internal/transport"
	"vocalfx/internal/transport/udp"
	"vocalfx/internal/tui"
)

func newRunCmd(o *options) *cobra.Command {
	c := &cobra.Command{
		Use:   "run",
		Short: "Process the microphone in real time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, o)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, !o.noTUI, o.pick)
		},
	}
	addEngineFlags(c, o)

	f := c.Flags()
	f.IntVarP(&o.inputDevice, "input", "i", config.DefaultDeviceID,
		"Input device ID. Use 'list' command to see available devices.")
	f.IntVar(&o.outputDevice, "output-device", config.DefaultDeviceID, "Output device ID")
	f.Float64VarP(&o.sampleRate, "sample-rate", "s", config.DefaultSampleRate,
		"Sample rate, measured in Hertz (Hz)")
	f.IntVarP(&o.framesPerBuffer, "frames-per-buffer", "b", config.DefaultFramesPerBuffer,
		"The number of frames per buffer (affects latency)")
	f.BoolVarP(&o.lowLatency, "low-latency", "l", config.DefaultLowLatency,
		"Use low latency mode for real-time processing")
	f.Float64Var(&o.gate, "gate", config.DefaultGateThreshold, "Noise gate peak threshold in [0, 1); 0 disables")
	f.BoolVarP(&o.record, "record", "r", false, "Record the processed output")
	f.StringVar(&o.recordDir, "record-dir", config.DefaultOutputDir, "Directory for recordings")
	f.IntVar(&o.bitDepth, "bit-depth", config.DefaultBitDepth, "Recording bit depth: 16, 24 or 32")
	f.StringVar(&o.udp, "udp", "", "Send telemetry packets to host:port")
	f.BoolVar(&o.spectrum, "spectrum", false, "Include the magnitude spectrum in telemetry")
	f.StringVar(&o.serve, "serve", "", "Serve the HTTP control API on this address")
	f.BoolVar(&o.noTUI, "no-tui", false, "Run without the terminal monitor")
	f.BoolVar(&o.pick, "pick", false, "Choose the device interactively before starting")
	return c
}

func recordingName(cfg *config.Config) string {
	return filepath.Join(cfg.Recording.OutputDir,
		"recording-"+time.Now().UTC().Format("02-01-2006-150405")+"."+cfg.Recording.Format)
}

// run is the real-time session. Startup and shutdown are the cold path;
// between them the PortAudio callback drives the stream.
func run(ctx context.Context, cfg *config.Config, withTUI, pick bool) error {
	// ==================== STARTUP (cold path) ====================
	if err := audio.Initialize(); err != nil {
		return err
	}
	defer audio.Terminate()

	if pick {
		sel, err := tui.PickDevice()
		if err != nil {
			return err
		}
		if !sel.Chosen {
			return nil
		}
		cfg.Audio.InputDevice = sel.Device.ID
		cfg.Audio.OutputDevice = sel.Device.ID
		cfg.Audio.SampleRate = sel.SampleRate
	}

	engineCfg, err := cfg.EngineConfig()
	if err != nil {
		return err
	}
	if engineCfg.Backend != fft.Gonum {
		return fmt.Errorf("transform %q allocates per frame; use it with render only", engineCfg.Backend)
	}
	settings, err := cfg.Settings()
	if err != nil {
		return err
	}
	streamOpts, err := cfg.StreamOptions()
	if err != nil {
		return err
	}
	st, err := stream.New(engineCfg, settings, streamOpts)
	if err != nil {
		return err
	}

	engine, err := audio.NewEngine(cfg, st)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		wg   sync.WaitGroup
		errs = make(chan error, 4)
	)
	goRun := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil {
				errs <- fmt.Errorf("%s: %w", name, err)
				stop()
			}
		}()
	}

	// The stream must be draining before the callback produces hops.
	goRun("stream", st.Run)

	// ==================== REAL TIME (hot path) ====================
	if err := engine.Start(); err != nil {
		stop()
		wg.Wait()
		return err
	}

	if cfg.Recording.Enabled {
		if err := os.MkdirAll(cfg.Recording.OutputDir, 0o755); err != nil {
			log.Warnf("recording disabled: %v", err)
		} else if err := engine.StartRecording(recordingName(cfg)); err != nil {
			log.Warnf("recording disabled: %v", err)
		}
	}

	var targets []transport.Transport
	if log.Enabled(log.LevelDebug) && !withTUI {
		targets = append(targets, transport.NewLoggingTransport())
	}
	if cfg.Server.Enabled {
		feed := transport.NewWebSocketTransport()
		targets = append(targets, feed)
		srv := server.New(cfg.Server.Addr, st, feed)
		goRun("server", srv.Run)
	}
	if len(targets) > 0 {
		b := transport.NewBroadcaster(st, config.DefaultUDPSendInterval, cfg.Transport.SendSpectrum, targets...)
		goRun("broadcast", b.Run)
	}

	if cfg.Transport.UDPEnabled {
		sender, err := udp.NewUDPSender(cfg.Transport.UDPTargetAddress)
		if err != nil {
			log.Warnf("telemetry disabled: %v", err)
		} else {
			pub, err := udp.NewUDPPublisher(cfg.Transport.UDPSendInterval, sender, st, cfg.Transport.SendSpectrum)
			if err != nil {
				sender.Close()
				log.Warnf("telemetry disabled: %v", err)
			} else {
				pub.Start()
				defer pub.Close()
			}
		}
	}

	if withTUI {
		logPath := filepath.Join(os.TempDir(), "vocalfx.log")
		if f, err := os.Create(logPath); err == nil {
			log.SetOutput(f)
			defer func() {
				log.SetOutput(os.Stderr)
				f.Close()
			}()
		}
		err := tui.RunMonitor(ctx, st, tui.MonitorOptions{
			Title:      fmt.Sprintf("vocalfx  %.0f Hz  latency %.1f ms", cfg.Audio.SampleRate, 1000*float64(st.Latency())/cfg.Audio.SampleRate),
			Recorder:   engine,
			RecordPath: func() string { return recordingName(cfg) },
		})
		if err != nil {
			errs <- fmt.Errorf("tui: %w", err)
		}
		stop()
	} else {
		log.Infof("running %s in %s, latency %d samples; press Ctrl+C to stop",
			engineCfg.Mode, cfg.Musical.Key, st.Latency())
		<-ctx.Done()
	}

	// ==================== SHUTDOWN (cold path) ====================
	closeErr := engine.Close()
	wg.Wait()
	close(errs)

	all := []error{closeErr}
	for err := range errs {
		all = append(all, err)
	}
	snap := st.Stats().Snapshot()
	log.Infof("processed %d frames, dropped %d, %d corrections held",
		snap.Frames, snap.Dropped(), snap.SkippedCorrections)
	return errors.Join(all...)
}
