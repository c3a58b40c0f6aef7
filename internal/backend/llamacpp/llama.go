//go:build llama

package llamacpp

// Link directives:
//   - rpath $ORIGIN so libllama.so and libggml*.so are found next to the
//     built binary (./bin).
//   - -L${SRCDIR}/../../../bin so the linker finds libllama.so at build time.
//   - headers are expected under ./include (copied from llama.cpp/include and
//     ggml/include).

/*
#cgo CFLAGS: -I${SRCDIR}/../../../include -O2
#cgo LDFLAGS: -Wl,-rpath,'$ORIGIN' -L${SRCDIR}/../../../bin -lllama
#include <stdlib.h>
#include <stdbool.h>
#include "llama.h"

static struct llama_model * eg_model_load(const char * path) {
	struct llama_model_params p = llama_model_default_params();
	return llama_model_load_from_file(path, p);
}

static struct llama_context * eg_context_new(struct llama_model * m, uint32_t n_ctx, uint32_t n_batch, int32_t n_threads) {
	struct llama_context_params p = llama_context_default_params();
	p.n_ctx = n_ctx;
	p.n_batch = n_batch;
	p.n_threads = n_threads;
	p.n_threads_batch = n_threads;
	return llama_init_from_model(m, p);
}

static int32_t eg_tokenize(struct llama_model * m, const char * text, int32_t len, llama_token * out, int32_t n_max, bool add_special, bool parse_special) {
	return llama_tokenize(llama_model_get_vocab(m), text, len, out, n_max, add_special, parse_special);
}

static int32_t eg_token_to_piece(struct llama_model * m, llama_token tok, char * buf, int32_t len) {
	return llama_token_to_piece(llama_model_get_vocab(m), tok, buf, len, 0, true);
}

static bool eg_is_eog(struct llama_model * m, llama_token tok) {
	return llama_vocab_is_eog(llama_model_get_vocab(m), tok);
}

static int32_t eg_n_vocab(struct llama_model * m) {
	return llama_vocab_n_tokens(llama_model_get_vocab(m));
}

static int32_t eg_decode(struct llama_context * ctx, llama_token * toks, int32_t n) {
	return llama_decode(ctx, llama_batch_get_one(toks, n));
}

static float * eg_last_logits(struct llama_context * ctx) {
	return llama_get_logits_ith(ctx, -1);
}

static void eg_memory_clear(struct llama_context * ctx) {
	llama_memory_clear(llama_get_memory(ctx), true);
}
*/
import "C"

import (
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	"edgegen/internal/backend"
)

// Built reports whether this binary links the native runtime.
const Built = true

var initOnce sync.Once

type llamaBackend struct{}

// New returns the llama.cpp backend.
func New() backend.Backend { return llamaBackend{} }

func (llamaBackend) Name() string { return "llama.cpp" }

func (llamaBackend) Init() error {
	initOnce.Do(func() { C.llama_backend_init() })
	return nil
}

func (llamaBackend) LoadModel(path string) (backend.Model, error) {
	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))
	m := C.eg_model_load(cpath)
	if m == nil {
		return nil, fmt.Errorf("llama_model_load_from_file failed: %s", path)
	}
	return &model{m: m, nVocab: int(C.eg_n_vocab(m))}, nil
}

type model struct {
	m      *C.struct_llama_model
	nVocab int
}

func (md *model) Tokenize(text string, buf []backend.Token, addSpecial, parseSpecial bool) (int, error) {
	if len(buf) == 0 {
		return 0, fmt.Errorf("tokenize: empty buffer")
	}
	ctext := C.CString(text)
	defer C.free(unsafe.Pointer(ctext))
	n := C.eg_tokenize(md.m, ctext, C.int32_t(len(text)),
		(*C.llama_token)(unsafe.Pointer(&buf[0])), C.int32_t(len(buf)),
		C.bool(addSpecial), C.bool(parseSpecial))
	runtime.KeepAlive(buf)
	if n < 0 {
		return 0, fmt.Errorf("tokenize: need %d slots, have %d", -int(n), len(buf))
	}
	return int(n), nil
}

func (md *model) TokenToPiece(tok backend.Token, buf []byte) int {
	if len(buf) == 0 {
		return int(C.eg_token_to_piece(md.m, C.llama_token(tok), nil, 0))
	}
	n := C.eg_token_to_piece(md.m, C.llama_token(tok),
		(*C.char)(unsafe.Pointer(&buf[0])), C.int32_t(len(buf)))
	runtime.KeepAlive(buf)
	return int(n)
}

func (md *model) IsEOG(tok backend.Token) bool { return bool(C.eg_is_eog(md.m, C.llama_token(tok))) }

func (md *model) VocabSize() int { return md.nVocab }

func (md *model) NewContext(p backend.ContextParams) (backend.Context, error) {
	c := C.eg_context_new(md.m, C.uint32_t(p.ContextSize), C.uint32_t(p.BatchSize), C.int32_t(p.Threads))
	if c == nil {
		return nil, fmt.Errorf("llama_init_from_model failed (n_ctx=%d n_batch=%d)", p.ContextSize, p.BatchSize)
	}
	return &evalContext{c: c, nVocab: md.nVocab}, nil
}

func (md *model) Close() error {
	if md.m != nil {
		C.llama_model_free(md.m)
		md.m = nil
	}
	return nil
}

type evalContext struct {
	c      *C.struct_llama_context
	nVocab int
	pos    int
}

func (e *evalContext) Decode(tokens []backend.Token) error {
	if len(tokens) == 0 {
		return nil
	}
	rc := C.eg_decode(e.c, (*C.llama_token)(unsafe.Pointer(&tokens[0])), C.int32_t(len(tokens)))
	runtime.KeepAlive(tokens)
	if rc != 0 {
		return fmt.Errorf("llama_decode returned %d", int(rc))
	}
	e.pos += len(tokens)
	return nil
}

func (e *evalContext) Logits() []float32 {
	ptr := C.eg_last_logits(e.c)
	if ptr == nil {
		return nil
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(ptr)), e.nVocab)
}

func (e *evalContext) Pos() int { return e.pos }

func (e *evalContext) Reset() {
	C.eg_memory_clear(e.c)
	e.pos = 0
}

func (e *evalContext) Close() error {
	if e.c != nil {
		C.llama_free(e.c)
		e.c = nil
	}
	return nil
}
