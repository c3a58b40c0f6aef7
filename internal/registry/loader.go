package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"edgegen/internal/common/fsutil"
	"edgegen/pkg/types"
)

// Ext is the model file extension.
const Ext = ".gguf"

// Scanner discovers model files in a directory.
type Scanner interface {
	Scan(dir string) ([]types.Model, error)
}

type ggufScanner struct{}

// NewGGUFScanner returns a Scanner that lists *.gguf files (case-insensitive).
func NewGGUFScanner() Scanner { return ggufScanner{} }

// Scan returns one Model per *.gguf file, sorted by ID. The ID is the file
// name without its extension; Name is the file name.
func (ggufScanner) Scan(dir string) ([]types.Model, error) {
	abs, err := fsutil.ResolveDir(dir)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var models []types.Model
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.EqualFold(filepath.Ext(name), Ext) {
			continue
		}
		m := describe(filepath.Join(abs, name))
		if fi, err := e.Info(); err == nil {
			m.SizeBytes = fi.Size()
		}
		models = append(models, m)
	}
	sort.Slice(models, func(i, j int) bool { return models[i].ID < models[j].ID })
	return models, nil
}

// Describe returns the Model entry for the file at path.
func Describe(path string) (types.Model, error) {
	fi, err := fsutil.RegularFile(path)
	if err != nil {
		return types.Model{}, err
	}
	m := describe(path)
	m.SizeBytes = fi.Size()
	return m, nil
}

func describe(path string) types.Model {
	name := filepath.Base(path)
	return types.Model{
		ID:    strings.TrimSuffix(name, filepath.Ext(name)),
		Name:  name,
		Path:  path,
		Quant: quantFromName(name),
	}
}

// LoadDir scans dir with the GGUF scanner.
func LoadDir(dir string) ([]types.Model, error) {
	return NewGGUFScanner().Scan(dir)
}

// quantFromName picks the llama.cpp quantization tag out of a file name,
// e.g. "qwen2-0.5b-instruct-q4_k_m.gguf" -> "Q4_K_M".
func quantFromName(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	parts := strings.FieldsFunc(base, func(r rune) bool { return r == '-' || r == '.' })
	for i := len(parts) - 1; i >= 0; i-- {
		p := strings.ToUpper(parts[i])
		if len(p) >= 2 && p[0] == 'Q' && isDigit(p[1]) {
			return p
		}
		if len(p) >= 3 && strings.HasPrefix(p, "IQ") && isDigit(p[2]) {
			return p
		}
		if p == "F16" || p == "BF16" || p == "F32" {
			return p
		}
	}
	return ""
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
