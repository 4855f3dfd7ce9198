// Command proxy simulates the hardware capture path: it opens a full-duplex
// PortAudio stream at the pipeline's native format (16kHz mono s16le),
// pushes every captured block into the protection engine, asks the engine
// whether the outgoing block must be intercepted, and rewrites intercepted
// blocks in place before they reach the output device — the complete
// capture → analyse → mask → emit chain, end to end.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gordonklaus/portaudio"
	flag "github.com/spf13/pflag"

	"github.com/silenceguard/protect/pkg/boundary"
)

const (
	sampleRate = 16000
	channels   = 1
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	var (
		modelPath  = flag.String("model", "", "inference model file to load at startup")
		configPath = flag.String("config", "", "configuration text file pushed to the engine at startup")
		confMatrix = flag.String("conf-matrix", "", "confusion-matrix resource to load at startup")
		blockSize  = flag.Int("block", 320, "frames per capture block (320 = 20ms at 16kHz)")
		maskMode   = flag.String("mask", "noise", "masking applied to intercepted blocks: noise, beep, crossfade")
		xfade      = flag.Int("xfade", 80, "cross-fade length in frames for -mask crossfade")
		testMute   = flag.Bool("test-intercept", false, "arm the test-override countdown at startup")
		logLevel   = flag.String("log-level", "info", "log level: debug, info, warn, error")
	)
	flag.Parse()

	logger := newLogger(*logLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting proxy",
		"version", version,
		"sample_rate", sampleRate,
		"block_frames", *blockSize,
		"mask_mode", *maskMode,
	)

	handle := boundary.GetInstance()

	// Control-plane setup runs before any audio flows, off the (not yet
	// started) audio thread — the only place LoadModel's file I/O is
	// allowed.
	if *configPath != "" {
		text, err := os.ReadFile(*configPath)
		if err != nil {
			logger.Error("failed to read configuration", "path", *configPath, "error", err)
			os.Exit(1)
		}
		boundary.UpdateConfig(handle, string(text))
		logger.Info("configuration applied", "path", *configPath)
	}
	if *modelPath != "" {
		if !boundary.LoadModel(handle, *modelPath) {
			logger.Error("failed to load model", "path", *modelPath)
			os.Exit(1)
		}
		logger.Info("model loaded", "path", *modelPath)
	} else {
		logger.Warn("no model loaded — the engine will never arm on risk (use -test-intercept to exercise masking)")
	}
	if *confMatrix != "" {
		if boundary.LoadConfusionMatrix(*confMatrix) == 0 {
			logger.Error("failed to load confusion matrix", "path", *confMatrix)
			os.Exit(1)
		}
		logger.Info("confusion matrix loaded", "path", *confMatrix)
	}
	if *testMute {
		boundary.SetTestInterceptEnabled(handle, 1)
		logger.Info("test-override countdown armed")
	}

	if err := portaudio.Initialize(); err != nil {
		logger.Error("portaudio init failed", "error", err)
		os.Exit(1)
	}
	defer portaudio.Terminate()

	scratch := make([]byte, *blockSize*2)
	stream, err := portaudio.OpenDefaultStream(channels, channels, sampleRate, *blockSize,
		func(in, out []int16) {
			// Runs on PortAudio's audio thread: push, decide, mask, emit.
			// No I/O happens here; the engine's lock is the only blocking.
			copy(out, in)
			boundary.PushToBuffer(handle, frameBytes(out, scratch))
			if boundary.ShouldIntercept(handle) == 0 {
				return
			}
			switch *maskMode {
			case "beep":
				boundary.ApplyBeep(out)
			case "crossfade":
				boundary.ProcessWithRingBuffer(out, *xfade)
			default:
				boundary.ProcessMask(handle, out)
			}
		})
	if err != nil {
		logger.Error("failed to open duplex stream", "error", err)
		os.Exit(1)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		logger.Error("failed to start stream", "error", err)
		os.Exit(1)
	}
	logger.Info("stream running — speak into the microphone; ctrl-c to stop")

	<-ctx.Done()
	logger.Info("shutdown requested, stopping stream")
	if err := stream.Stop(); err != nil {
		logger.Warn("stream stop failed", "error", err)
	}
	logger.Info("proxy stopped")
}

// frameBytes serialises frames as little-endian s16le into scratch, which
// must hold 2*len(frames) bytes. It returns the filled prefix.
func frameBytes(frames []int16, scratch []byte) []byte {
	for i, f := range frames {
		scratch[2*i] = byte(uint16(f))
		scratch[2*i+1] = byte(uint16(f) >> 8)
	}
	return scratch[:2*len(frames)]
}

func newLogger(level string) *slog.Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(level),
	})
	return slog.New(handler)
}

func parseLevel(value string) slog.Leveler {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return slog.LevelDebug
	case "info", "":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
