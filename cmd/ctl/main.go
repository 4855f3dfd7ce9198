// Command ctl exercises the control-plane surface of the protection engine
// the way the host-runtime bridge would: it constructs the engine, applies
// a configuration file, loads a model and confusion matrix, and prints the
// resulting diagnostics. Operators use it to validate configuration and
// resource files before shipping them to a device.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/silenceguard/protect/internal/protect"
	"github.com/silenceguard/protect/pkg/boundary"
)

var version = "dev"

func main() {
	var (
		configPath = flag.String("config", "", "configuration text file to apply")
		modelPath  = flag.String("model", "", "inference model file to load")
		confMatrix = flag.String("conf-matrix", "", "confusion-matrix resource to load")
		variantKey = flag.String("variants", "", "print variants for this key after loading the confusion matrix")
		fpWord     = flag.String("mark-false-positive", "", "record a false-positive word")
		fpTime     = flag.Int64("timestamp", 0, "wall-clock timestamp for -mark-false-positive")
		logLevel   = flag.String("log-level", "info", "log level: debug, info, warn, error")
	)
	flag.Parse()

	logger := newLogger(*logLevel)
	logger.Info("ctl", "version", version)

	bridge := boundary.NewBridge()
	bridge.InitInterceptor()

	failed := false

	if *configPath != "" {
		text, err := os.ReadFile(*configPath)
		if err != nil {
			logger.Error("failed to read configuration", "path", *configPath, "error", err)
			os.Exit(1)
		}
		bridge.UpdateConfig(string(text))

		snap := protect.Instance().ConfigSnapshot()
		fmt.Printf("configuration applied from %s\n", *configPath)
		fmt.Printf("  global_sensitivity: %g\n", snap.GlobalSensitivity)
		fmt.Printf("  keyword_count:      %d\n", snap.KeywordCount)
		fmt.Printf("  masking.attack:     %g ms\n", snap.AttackMs)
		fmt.Printf("  masking.release:    %g ms\n", snap.ReleaseMs)
	}

	if *modelPath != "" {
		if boundary.LoadModel(boundary.GetInstance(), *modelPath) {
			fmt.Printf("model loaded: %s\n", *modelPath)
		} else {
			logger.Error("failed to load model", "path", *modelPath)
			failed = true
		}
	}

	if *confMatrix != "" {
		if boundary.LoadConfusionMatrix(*confMatrix) == 1 {
			fmt.Printf("confusion matrix loaded: %s\n", *confMatrix)
			if *variantKey != "" {
				vs := boundary.GetPhonemeVariants(*variantKey, 16)
				if vs == nil {
					fmt.Printf("  no variants for %q\n", *variantKey)
				} else {
					fmt.Printf("  variants for %q: %s\n", *variantKey, strings.Join(vs, ", "))
				}
			}
		} else {
			logger.Error("failed to load confusion matrix", "path", *confMatrix)
			failed = true
		}
	}

	if *fpWord != "" {
		bridge.MarkFalsePositive(*fpWord, *fpTime)
		word, ts := protect.Instance().LastFalsePositive()
		fmt.Printf("false positive recorded: %q at %d\n", word, ts)
	}

	if failed {
		os.Exit(1)
	}
}

func newLogger(level string) *slog.Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
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
