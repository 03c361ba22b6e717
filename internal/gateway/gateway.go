// Package gateway routes generation requests to registered providers and
// streams results as NDJSON. It is the glue between the HTTP layer and the
// provider backends; it holds no generation state of its own.
package gateway

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"promptd/internal/provider"
	"promptd/pkg/types"
)

// ModelLister enumerates locally discovered models for GET /models.
type ModelLister interface {
	List() []types.Model
}

// ModelListerFunc adapts a function to the ModelLister interface.
type ModelListerFunc func() []types.Model

func (f ModelListerFunc) List() []types.Model { return f() }

// modelReporter is implemented by providers that know which model a call
// would use.
type modelReporter interface {
	Model() string
}

// modelOverrider is implemented by providers that accept a per-call model
// override.
type modelOverrider interface {
	GenerateWithModel(ctx context.Context, model, prompt string, params provider.Params, onToken provider.TokenFunc) (string, error)
}

type entry struct {
	p     provider.Provider
	local bool
}

// Config configures a Gateway.
type Config struct {
	// DefaultProvider answers requests that do not name one. May be empty.
	DefaultProvider string
	// Models backs GET /models. Nil yields an empty list.
	Models ModelLister
	// Logger receives routing events.
	Logger zerolog.Logger
}

// Gateway dispatches requests to providers registered under their display
// names. Registration happens at startup; serving methods only read.
type Gateway struct {
	mu          sync.RWMutex
	entries     []entry // registration order
	byName      map[string]entry
	defaultName string
	models      ModelLister
	log         zerolog.Logger
}

// New creates an empty gateway; register providers before serving.
func New(cfg Config) *Gateway {
	return &Gateway{
		byName:      make(map[string]entry),
		defaultName: cfg.DefaultProvider,
		models:      cfg.Models,
		log:         cfg.Logger,
	}
}

// Register adds a provider under its own name. Registering the same name
// twice replaces the earlier provider.
func (g *Gateway) Register(p provider.Provider, local bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	name := p.ProviderName()
	e := entry{p: p, local: local}
	if _, exists := g.byName[name]; exists {
		for i := range g.entries {
			if g.entries[i].p.ProviderName() == name {
				g.entries[i] = e
			}
		}
	} else {
		g.entries = append(g.entries, e)
	}
	g.byName[name] = e
}

// Providers reports the status of every registered provider in
// registration order.
func (g *Gateway) Providers() []types.ProviderStatus {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]types.ProviderStatus, 0, len(g.entries))
	for _, e := range g.entries {
		st := types.ProviderStatus{
			Name:      e.p.ProviderName(),
			Available: e.p.Available(),
			Local:     e.local,
		}
		if mr, ok := e.p.(modelReporter); ok {
			st.Model = mr.Model()
		}
		out = append(out, st)
	}
	return out
}

// Models lists locally discovered models.
func (g *Gateway) Models() []types.Model {
	if g.models == nil {
		return []types.Model{}
	}
	ms := g.models.List()
	if ms == nil {
		return []types.Model{}
	}
	return ms
}

// Ready reports whether at least one provider can serve a request.
func (g *Gateway) Ready() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, e := range g.entries {
		if e.p.Available() {
			return true
		}
	}
	return false
}

// Abort requests cancellation of the named provider's in-flight call.
func (g *Gateway) Abort(name string) error {
	g.mu.RLock()
	e, ok := g.byName[name]
	g.mu.RUnlock()
	if !ok {
		return ErrProviderNotFound(name)
	}
	e.p.Abort()
	return nil
}

// Generate resolves the target provider and streams the generation as
// NDJSON token lines followed by a final done line. On error nothing
// further is written; the HTTP layer maps the error to a status.
func (g *Gateway) Generate(ctx context.Context, req types.GenerateRequest, w io.Writer, flush func()) error {
	name := strings.TrimSpace(req.Provider)
	if name == "" {
		name = g.defaultName
		if name == "" {
			return ErrProviderNotFound("(unspecified)")
		}
	}
	g.mu.RLock()
	e, ok := g.byName[name]
	g.mu.RUnlock()
	if !ok {
		return ErrProviderNotFound(name)
	}

	params := req.Params()
	var writeErr error
	onToken := func(tok string) {
		if writeErr != nil {
			return
		}
		if _, err := w.Write(tokenLineJSON(tok)); err != nil {
			writeErr = err
			return
		}
		if flush != nil {
			flush()
		}
	}

	var content string
	var err error
	if ov, ok := e.p.(modelOverrider); ok && req.Model != "" {
		content, err = ov.GenerateWithModel(ctx, req.Model, req.Prompt, params, onToken)
	} else {
		content, err = e.p.Generate(ctx, req.Prompt, params, onToken)
	}
	if err != nil {
		g.log.Debug().Err(err).Str("provider", name).Msg("generation failed")
		return err
	}
	if writeErr != nil {
		return writeErr
	}

	end, _ := json.Marshal(types.DoneLine{Done: true, Content: content, Provider: name})
	if _, err := w.Write(append(end, '\n')); err != nil {
		return err
	}
	if flush != nil {
		flush()
	}
	return nil
}

// tokenLineJSON formats one token NDJSON line using json.Marshal for
// correct escaping.
func tokenLineJSON(tok string) []byte {
	b, _ := json.Marshal(types.TokenLine{Token: tok})
	return append(b, '\n')
}
