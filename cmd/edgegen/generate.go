package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"edgegen/internal/bridge"
)

type generateOpts struct {
	model     string
	prompt    string
	maxTokens int
	batch     bool
}

func newGenerateCmd(a *app) *cobra.Command {
	var o generateOpts
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a completion and print it to stdout",
		Long: `Loads a model, runs one generation and writes the reply to stdout as it is
produced. The prompt is sent as given, so it must already carry the model's
chat template. Use --prompt - to read it from stdin. Ctrl+C stops the
generation after the current token.`,
		Example: `  edgegen generate --model qwen2-0.5b-instruct-q4_k_m --prompt "$(cat prompt.txt)"
  echo "Once upon a time" | edgegen generate --model ./tiny.gguf --prompt - --max-tokens 64`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if o.prompt == "-" {
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				o.prompt = string(b)
			}
			if strings.TrimSpace(o.prompt) == "" {
				return errors.New("empty prompt")
			}
			if o.maxTokens <= 0 {
				o.maxTokens = a.cfg.Engine.MaxTokens
			}
			return a.generate(o, cmd.OutOrStdout())
		},
	}
	f := cmd.Flags()
	f.StringVarP(&o.model, "model", "m", "", "Model id in the models directory, or a path to a .gguf file")
	f.StringVarP(&o.prompt, "prompt", "p", "", "Prompt text, or - for stdin")
	f.IntVarP(&o.maxTokens, "max-tokens", "n", 0, "Maximum new tokens (0 = engine.max_tokens)")
	f.BoolVar(&o.batch, "batch", false, "Print the reply once finished instead of streaming it")
	return cmd
}

func (a *app) generate(o generateOpts, out io.Writer) error {
	path, err := a.modelPath(o.model)
	if err != nil {
		return err
	}
	b := bridge.New(a.newSession())
	b.SetLogger(a.log.With().Str("component", "bridge").Logger())
	if !b.InitBackend() {
		return errors.New("inference backend unavailable (build with -tags llama)")
	}
	defer b.Unload()
	mh := b.LoadModel(path)
	if mh == 0 {
		return fmt.Errorf("could not load %s", path)
	}
	if b.CreateContext(mh) == 0 {
		return errors.New("could not create a context")
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	defer signal.Stop(sig)
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-sig:
			b.StopGeneration()
		case <-done:
		}
	}()

	if o.batch {
		text := b.Generate(o.prompt, o.maxTokens)
		_, err := fmt.Fprintln(out, text)
		return err
	}
	var werr error
	ok := b.GenerateStreaming(o.prompt, o.maxTokens, func(piece string) {
		if werr == nil {
			_, werr = io.WriteString(out, piece)
		}
	})
	fmt.Fprintln(out)
	if !ok {
		return errors.New("generation failed")
	}
	return werr
}
