package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"edgegen/internal/tui"
)

func newChatCmd(a *app) *cobra.Command {
	var (
		model     string
		system    string
		maxTokens int
		logFile   string
	)
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with a model in the terminal",
		Long: `Opens an interactive chat. The conversation is formatted with the ChatML
template. Esc stops the reply being generated; Ctrl+C exits.`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// the chat screen owns the terminal, so logs go to a file or nowhere
			var out io.Writer = io.Discard
			if logFile != "" {
				f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
				if err != nil {
					return err
				}
				out = f
			}
			a.logOut = out
			return a.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := a.modelPath(model)
			if err != nil {
				return err
			}
			sess := a.newSession()
			defer sess.Close()
			m, err := sess.LoadModel(path)
			if err != nil {
				return err
			}
			if _, err := sess.CreateContext(m); err != nil {
				return err
			}
			if maxTokens <= 0 {
				maxTokens = a.cfg.Engine.MaxTokens
			}
			title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			err = tui.Run(cmd.Context(), tui.SessionEngine{Session: sess, MaxTokens: maxTokens}, tui.Options{
				Title:  fmt.Sprintf("edgegen · %s", title),
				System: system,
			})
			if err != nil && !errors.Is(err, io.EOF) {
				return err
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&model, "model", "m", "", "Model id in the models directory, or a path to a .gguf file")
	f.StringVar(&system, "system", "You are a helpful assistant.", "System prompt")
	f.IntVarP(&maxTokens, "max-tokens", "n", 0, "Maximum new tokens per reply (0 = engine.max_tokens)")
	f.StringVar(&logFile, "log-file", "", "Write logs to this file")
	return cmd
}
