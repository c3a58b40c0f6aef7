package main

import (
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"edgegen/internal/config"
	"edgegen/internal/logging"
)

// app is the state shared by all subcommands once flags are parsed.
type app struct {
	cfgPath string
	cfg     config.Config
	log     zerolog.Logger
	// logOut overrides the log destination (the chat screen owns the terminal).
	logOut io.Writer
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "edgegen",
		Short:         "Local token-level LLM generation engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgPath, "config", "", "Config file (.yaml, .json or .toml)")
	pf.String("models-dir", config.DefaultModelsDir, "Directory holding *.gguf model files (env EDGEGEN_MODELS_DIR)")
	pf.String("log-level", config.DefaultLogLevel, "Log level: trace|debug|info|warn|error|off")
	pf.String("log-format", config.DefaultLogFormat, "Log format: console|json")
	pf.Int("threads", 0, "Inference threads (0 = all cores but the reserved ones)")
	pf.Int("context-size", 0, "Context window in tokens (0 = config or default)")

	root.AddCommand(newServeCmd(a), newGenerateCmd(a), newChatCmd(a), newModelsCmd(a))
	return root
}

// setup resolves the configuration: defaults, then the config file, then
// environment, then explicitly set flags.
func (a *app) setup(cmd *cobra.Command) error {
	cfg := config.Default()
	if a.cfgPath != "" {
		loaded, err := config.Load(a.cfgPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	applyEnv(&cfg, os.Getenv)
	applyFlags(&cfg, cmd)
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	out := a.logOut
	if out == nil {
		out = os.Stderr
	}
	a.log = logging.New(cfg.LogLevel, cfg.LogFormat, out)
	return nil
}

func applyEnv(cfg *config.Config, getenv func(string) string) {
	if v := getenv("EDGEGEN_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := getenv("EDGEGEN_MODELS_DIR"); v != "" {
		cfg.ModelsDir = v
	}
	if v := getenv("EDGEGEN_DEFAULT_MODEL"); v != "" {
		cfg.DefaultModel = v
	}
	if v := getenv("EDGEGEN_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := getenv("EDGEGEN_CORS_ORIGINS"); v != "" {
		cfg.CORS.Enabled = true
		cfg.CORS.Origins = splitCSV(v)
	}
	if v := getenv("EDGEGEN_THREADS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Engine.Threads = n
		}
	}
}

// applyFlags copies flags the user set explicitly; flag defaults never
// override file or environment values.
func applyFlags(cfg *config.Config, cmd *cobra.Command) {
	fs := cmd.Flags()
	str := func(name string, dst *string) {
		if f := fs.Lookup(name); f != nil && f.Changed {
			*dst = f.Value.String()
		}
	}
	num := func(name string, dst *int) {
		if f := fs.Lookup(name); f != nil && f.Changed {
			if n, err := strconv.Atoi(f.Value.String()); err == nil {
				*dst = n
			}
		}
	}
	str("models-dir", &cfg.ModelsDir)
	str("log-level", &cfg.LogLevel)
	str("log-format", &cfg.LogFormat)
	str("addr", &cfg.Addr)
	str("default-model", &cfg.DefaultModel)
	num("threads", &cfg.Engine.Threads)
	num("context-size", &cfg.Engine.ContextSize)
	num("max-queue-depth", &cfg.MaxQueueDepth)
	str("max-wait", &cfg.MaxWait)
	if f := fs.Lookup("cors-origins"); f != nil && f.Changed {
		cfg.CORS.Enabled = true
		cfg.CORS.Origins = splitCSV(f.Value.String())
	}
}

// splitCSV splits a comma-separated list, trimming blanks and dropping empty items.
func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
