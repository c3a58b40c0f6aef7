package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"edgegen/internal/backend/llamacpp"
	"edgegen/internal/registry"
	"edgegen/internal/session"
)

// newSession builds a Session over the native backend with the resolved
// engine config.
func (a *app) newSession() *session.Session {
	sess := session.New(llamacpp.New(), a.cfg.Engine)
	sess.SetLogger(a.log.With().Str("component", "session").Logger())
	return sess
}

// modelPath turns a --model value into a file path. A value naming an
// existing file is used as is; anything else is looked up as an id in the
// models directory.
func (a *app) modelPath(model string) (string, error) {
	if model == "" {
		model = a.cfg.DefaultModel
	}
	if model == "" {
		return "", errors.New("no model given: pass --model or set default_model")
	}
	if strings.ContainsRune(model, filepath.Separator) || strings.EqualFold(filepath.Ext(model), registry.Ext) {
		if fi, err := os.Stat(model); err == nil && fi.Mode().IsRegular() {
			return model, nil
		}
	}
	store, err := registry.NewStore(a.cfg.ModelsDir)
	if err != nil {
		return "", err
	}
	p, err := store.Resolve(model)
	if err != nil {
		return "", fmt.Errorf("model %q: %w", model, err)
	}
	return p, nil
}
