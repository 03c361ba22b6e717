//go:build llama

package engine

// Real runtime backed by yzma's purego bindings to llama.cpp. No CGO: the
// prebuilt llama.cpp libraries are loaded at process start from the
// directory named by PROMPTD_LIB (default ./lib/llama).

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/hybridgroup/yzma/pkg/llama"
)

var (
	initOnce sync.Once
	initErr  error
)

func doInit() {
	libPath := os.Getenv("PROMPTD_LIB")
	if libPath == "" {
		libPath = "./lib/llama"
	}
	if abs, err := filepath.Abs(libPath); err == nil {
		libPath = abs
	}
	if err := llama.Load(libPath); err != nil {
		initErr = fmt.Errorf("load llama.cpp libraries from %s: %w", libPath, err)
		return
	}
	llama.Init()
}

type yzmaRuntime struct{}

// NewRuntime returns the process-default runtime backed by llama.cpp.
func NewRuntime() Runtime { return yzmaRuntime{} }

func (yzmaRuntime) Load(path string, opts LoadOptions) (ModelHandle, error) {
	initOnce.Do(doInit)
	if initErr != nil {
		return nil, ErrRuntimeUnavailable(initErr.Error())
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("model file: %w", err)
	}

	mp := llama.ModelDefaultParams()
	mp.NGpuLayers = int32(opts.GPULayers)
	model, err := llama.ModelLoadFromFile(path, mp)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}

	cp := llama.ContextDefaultParams()
	cp.NCtx = uint32(opts.ContextSize)
	cp.NBatch = uint32(opts.BatchSize)
	if opts.Threads > 0 {
		cp.NThreads = int32(opts.Threads)
		cp.NThreadsBatch = int32(opts.Threads)
	}
	lctx, err := llama.InitFromModel(model, cp)
	if err != nil {
		llama.ModelFree(model)
		return nil, fmt.Errorf("create context: %w", err)
	}

	return &yzmaHandle{
		model: model,
		lctx:  lctx,
		vocab: llama.ModelGetVocab(model),
		nCtx:  opts.ContextSize,
	}, nil
}

type yzmaHandle struct {
	model llama.Model
	lctx  llama.Context
	vocab llama.Vocab
	nCtx  int
}

func (h *yzmaHandle) ContextSize() int { return h.nCtx }

func (h *yzmaHandle) Tokenize(text string, addBOS bool) ([]Token, error) {
	tokens := llama.Tokenize(h.vocab, text, addBOS, false)
	if len(tokens) == 0 {
		return nil, fmt.Errorf("tokenizer produced no tokens")
	}
	out := make([]Token, len(tokens))
	for i, t := range tokens {
		out[i] = Token(t)
	}
	return out, nil
}

func (h *yzmaHandle) Decode(tokens []Token) (int, error) {
	in := make([]llama.Token, len(tokens))
	for i, t := range tokens {
		in[i] = llama.Token(t)
	}
	// BatchGetOne returns a stack-allocated batch; it must not be freed.
	batch := llama.BatchGetOne(in)
	status, err := llama.Decode(h.lctx, batch)
	return int(status), err
}

func (h *yzmaHandle) ResetContext() {
	llama.MemoryClear(llama.GetMemory(h.lctx), true)
}

func (h *yzmaHandle) NewSampler(spec SamplerSpec) Sampler {
	chain := llama.SamplerChainInit(llama.SamplerChainDefaultParams())
	llama.SamplerChainAdd(chain, llama.SamplerInitPenalties(int32(spec.RepeatPenaltyWindow), spec.RepeatPenalty, 0, 0))
	if spec.Greedy {
		llama.SamplerChainAdd(chain, llama.SamplerInitGreedy())
	} else {
		llama.SamplerChainAdd(chain, llama.SamplerInitTopK(int32(spec.TopK)))
		llama.SamplerChainAdd(chain, llama.SamplerInitTopP(spec.TopP, 1))
		llama.SamplerChainAdd(chain, llama.SamplerInitTemp(spec.Temperature))
		llama.SamplerChainAdd(chain, llama.SamplerInitDist(spec.Seed))
	}
	return &yzmaSampler{chain: chain, lctx: h.lctx}
}

func (h *yzmaHandle) IsEOG(tok Token) bool {
	return llama.VocabIsEOG(h.vocab, llama.Token(tok))
}

func (h *yzmaHandle) TokenText(tok Token, buf []byte) (int, error) {
	n := llama.TokenToPiece(h.vocab, llama.Token(tok), buf, 0, true)
	if n < 0 {
		// llama.cpp reports a too-small buffer as the negated required size.
		return int(-n), nil
	}
	return int(n), nil
}

func (h *yzmaHandle) Close() {
	llama.Free(h.lctx)
	llama.ModelFree(h.model)
}

type yzmaSampler struct {
	chain llama.Sampler
	lctx  llama.Context
}

func (s *yzmaSampler) Sample() Token {
	// Sampling from index -1 reads the logits of the last decoded token and
	// accepts the choice into the chain's penalty window.
	return Token(llama.SamplerSample(s.chain, s.lctx, -1))
}

func (s *yzmaSampler) Close() { llama.SamplerFree(s.chain) }
