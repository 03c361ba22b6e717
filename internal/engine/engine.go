// Package engine runs autoregressive text generation against a locally
// loaded model. One engine owns at most one model handle; generate calls are
// serialized behind a single in-flight slot and are cancellable with
// per-token granularity.
package engine

import (
	"context"
	"math/rand/v2"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"promptd/internal/provider"
	"promptd/pkg/types"
)

const (
	defaultMaxQueueDepth = 8
	defaultMaxWait       = 30 * time.Second

	// Initial detokenization scratch size. Tokens whose text is larger are
	// retried once with a buffer of the reported required length.
	pieceBufSize = 64
)

// Config tunes an engine instance. Zero values select package defaults.
type Config struct {
	// Name is the provider display identity. Defaults to "local".
	Name string
	// Load configures the decoding context for models loaded later.
	Load LoadOptions
	// MaxQueueDepth bounds callers waiting for the in-flight slot.
	MaxQueueDepth int
	// MaxWait bounds how long a caller waits for admission before the call
	// fails with a busy error.
	MaxWait time.Duration
	// Logger receives engine lifecycle and generation events.
	Logger zerolog.Logger
}

// Engine is the local inference provider. It satisfies provider.Provider.
type Engine struct {
	rt       Runtime
	name     string
	loadOpts LoadOptions
	maxWait  time.Duration
	log      zerolog.Logger

	mu        sync.RWMutex
	handle    ModelHandle
	modelPath string

	// Admission: queueCh bounds waiters, genCh is the single in-flight slot.
	genCh   chan struct{}
	queueCh chan struct{}

	cancelMu sync.Mutex
	cancel   context.CancelFunc
}

var _ provider.Provider = (*Engine)(nil)

// New creates an engine backed by rt. No model is loaded yet.
func New(rt Runtime, cfg Config) *Engine {
	if cfg.Name == "" {
		cfg.Name = "local"
	}
	if cfg.Load.ContextSize <= 0 {
		cfg.Load = DefaultLoadOptions()
	}
	if cfg.Load.BatchSize <= 0 {
		cfg.Load.BatchSize = DefaultLoadOptions().BatchSize
	}
	if cfg.MaxQueueDepth <= 0 {
		cfg.MaxQueueDepth = defaultMaxQueueDepth
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = defaultMaxWait
	}
	return &Engine{
		rt:       rt,
		name:     cfg.Name,
		loadOpts: cfg.Load,
		maxWait:  cfg.MaxWait,
		log:      cfg.Logger,
		genCh:    make(chan struct{}, 1),
		queueCh:  make(chan struct{}, cfg.MaxQueueDepth),
	}
}

// ProviderName returns the engine's display identity.
func (e *Engine) ProviderName() string { return e.name }

// Available reports whether a model handle is currently loaded. It never
// blocks on generation: handle swaps only happen outside in-flight calls.
func (e *Engine) Available() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.handle != nil
}

// ModelPath returns the path of the loaded model, or "" when none is.
func (e *Engine) ModelPath() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.modelPath
}

// Model returns the loaded model's file name, or "" when none is loaded.
func (e *Engine) Model() string {
	p := e.ModelPath()
	if p == "" {
		return ""
	}
	return filepath.Base(p)
}

// LoadModel loads the model at path, unloading any previous model first. The
// call waits for an in-flight generation to finish (bounded by MaxWait).
func (e *Engine) LoadModel(path string) error {
	release, err := e.acquireSlot(context.Background())
	if err != nil {
		return err
	}
	defer release()

	h, err := e.rt.Load(path, e.loadOpts)
	if err != nil {
		return err
	}
	e.mu.Lock()
	old := e.handle
	e.handle = h
	e.modelPath = path
	e.mu.Unlock()
	if old != nil {
		old.Close()
	}
	e.log.Info().Str("model", path).Int("ctx", e.loadOpts.ContextSize).Msg("model loaded")
	return nil
}

// Unload frees the current model handle, if any.
func (e *Engine) Unload() error {
	release, err := e.acquireSlot(context.Background())
	if err != nil {
		return err
	}
	defer release()

	e.mu.Lock()
	old := e.handle
	e.handle = nil
	e.modelPath = ""
	e.mu.Unlock()
	if old != nil {
		old.Close()
		e.log.Info().Msg("model unloaded")
	}
	return nil
}

// Close unloads the model and releases the engine. The engine must not be
// used afterwards.
func (e *Engine) Close() error { return e.Unload() }

// Abort requests cancellation of the in-flight generation, if any. It never
// blocks; cancellation is honored within one token's decode latency.
func (e *Engine) Abort() {
	e.cancelMu.Lock()
	cancel := e.cancel
	e.cancelMu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Generate runs one generation call. The call is serialized behind the
// engine's single in-flight slot; onToken fragments are delivered from the
// calling goroutine in generation order.
func (e *Engine) Generate(ctx context.Context, prompt string, params provider.Params, onToken provider.TokenFunc) (string, error) {
	release, err := e.acquireSlot(ctx)
	if err != nil {
		return "", err
	}
	defer release()

	e.mu.RLock()
	h := e.handle
	e.mu.RUnlock()
	if h == nil {
		return "", ErrNotLoaded()
	}

	// Session context: cancelled by Abort or by the caller's ctx.
	gctx, cancel := context.WithCancel(ctx)
	defer cancel()
	e.cancelMu.Lock()
	e.cancel = cancel
	e.cancelMu.Unlock()
	defer func() {
		e.cancelMu.Lock()
		e.cancel = nil
		e.cancelMu.Unlock()
	}()

	start := time.Now()
	text, err := e.run(gctx, h, prompt, params, onToken)
	if err != nil {
		e.log.Debug().Err(err).Dur("dur", time.Since(start)).Msg("generation failed")
		return "", err
	}
	e.log.Debug().Dur("dur", time.Since(start)).Int("chars", len(text)).Msg("generation done")
	return text, nil
}

// Result carries the outcome of an asynchronous generation.
type Result struct {
	Text string
	Err  error
}

// GenerateAsync runs Generate on a background goroutine and delivers the
// outcome on the returned channel. onToken fragments are delivered from that
// goroutine; callers needing a particular thread must hop themselves.
func (e *Engine) GenerateAsync(ctx context.Context, prompt string, params provider.Params, onToken provider.TokenFunc) <-chan Result {
	out := make(chan Result, 1)
	go func() {
		text, err := e.Generate(ctx, prompt, params, onToken)
		out <- Result{Text: text, Err: err}
	}()
	return out
}

// run executes one generation session against h. The in-flight slot is held
// by the caller, so h cannot be swapped or closed underneath us.
func (e *Engine) run(ctx context.Context, h ModelHandle, prompt string, params provider.Params, onToken provider.TokenFunc) (string, error) {
	params = params.Normalized()

	tokens, err := h.Tokenize(prompt, true)
	if err != nil {
		return "", ErrTokenization(err.Error())
	}

	ctxWin := h.ContextSize()
	available := ctxWin - len(tokens)
	if available <= 0 {
		return "", ErrContextOverflow(len(tokens), ctxWin)
	}
	budget := params.MaxTokens
	if budget > available {
		budget = available
	}

	// Fresh sequence every call: generation is never incremental.
	h.ResetContext()

	// Decode the prompt in fixed-size batches. Only the logits of the last
	// token of the last batch feed the sampler.
	batchSize := e.loadOpts.BatchSize
	for off := 0; off < len(tokens); off += batchSize {
		end := off + batchSize
		if end > len(tokens) {
			end = len(tokens)
		}
		if status, err := h.Decode(tokens[off:end]); err != nil || status != 0 {
			return "", ErrDecodeFailed(status)
		}
	}

	sampler := h.NewSampler(samplerSpec(params))
	defer sampler.Close()

	var out strings.Builder
	buf := make([]byte, pieceBufSize)
	for i := 0; i < budget; i++ {
		tok := sampler.Sample()
		if h.IsEOG(tok) {
			break
		}
		piece, err := tokenPiece(h, tok, &buf)
		if err != nil {
			return "", ErrTokenization(err.Error())
		}
		out.WriteString(piece)
		if onToken != nil {
			onToken(piece)
		}
		if status, err := h.Decode([]Token{tok}); err != nil || status != 0 {
			return "", ErrDecodeFailed(status)
		}
		// Cancellation granularity is one token: the decode above is not
		// individually interruptible.
		if ctx.Err() != nil {
			return "", ErrGenerationAborted()
		}
	}
	return out.String(), nil
}

// tokenPiece detokenizes tok using a reusable scratch buffer, retrying once
// with the reported required length on overflow.
func tokenPiece(h ModelHandle, tok Token, buf *[]byte) (string, error) {
	n, err := h.TokenText(tok, *buf)
	if err != nil {
		return "", err
	}
	if n > len(*buf) {
		*buf = make([]byte, n)
		if n, err = h.TokenText(tok, *buf); err != nil {
			return "", err
		}
	}
	if n < 0 {
		n = 0
	}
	return string((*buf)[:n]), nil
}

// samplerSpec maps generation params onto the runtime sampler chain.
// Repetition penalty always applies first; temperature zero selects greedy
// arg-max, otherwise top-k, top-p, temperature and seeded sampling follow.
func samplerSpec(params types.GenerationParams) SamplerSpec {
	spec := SamplerSpec{
		RepeatPenalty:       params.RepeatPenalty,
		RepeatPenaltyWindow: params.RepeatPenaltyWindow,
		Greedy:              params.Greedy(),
		TopK:                params.TopK,
		TopP:                params.TopP,
		Temperature:         params.Temperature,
		Seed:                params.Seed,
	}
	if spec.Seed == 0 {
		// Default behavior is a fresh seed per call; pass an explicit seed
		// for reproducible sampling at nonzero temperature.
		spec.Seed = rand.Uint32()
	}
	return spec
}

// acquireSlot reserves a queue slot and then the single in-flight slot,
// returning a release func to be deferred.
func (e *Engine) acquireSlot(ctx context.Context) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, ErrGenerationAborted()
	}

	timer := time.NewTimer(e.maxWait)
	defer timer.Stop()
	select {
	case e.queueCh <- struct{}{}:
	case <-ctx.Done():
		return nil, ErrGenerationAborted()
	case <-timer.C:
		return nil, ErrBusy()
	}

	acquired := false
	defer func() {
		if !acquired {
			<-e.queueCh
		}
	}()
	timer2 := time.NewTimer(e.maxWait)
	defer timer2.Stop()
	select {
	case e.genCh <- struct{}{}:
		acquired = true
		return func() { <-e.genCh; <-e.queueCh }, nil
	case <-ctx.Done():
		return nil, ErrGenerationAborted()
	case <-timer2.C:
		return nil, ErrBusy()
	}
}
