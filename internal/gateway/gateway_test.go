package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"promptd/internal/provider"
	"promptd/pkg/types"
)

// fakeProvider is a scriptable provider backend.
type fakeProvider struct {
	name      string
	available bool
	model     string
	fragments []string
	err       error

	aborted   int
	lastModel string // recorded by GenerateWithModel
}

func (f *fakeProvider) ProviderName() string { return f.name }
func (f *fakeProvider) Available() bool      { return f.available }
func (f *fakeProvider) Abort()               { f.aborted++ }

func (f *fakeProvider) Generate(ctx context.Context, prompt string, params provider.Params, onToken provider.TokenFunc) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	var b strings.Builder
	for _, fr := range f.fragments {
		b.WriteString(fr)
		if onToken != nil {
			onToken(fr)
		}
	}
	return b.String(), nil
}

func (f *fakeProvider) Model() string { return f.model }

// overridableProvider additionally accepts per-call model overrides.
type overridableProvider struct {
	fakeProvider
}

func (f *overridableProvider) GenerateWithModel(ctx context.Context, model, prompt string, params provider.Params, onToken provider.TokenFunc) (string, error) {
	f.lastModel = model
	return f.Generate(ctx, prompt, params, onToken)
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("invalid NDJSON line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestGenerateStreamsNDJSON(t *testing.T) {
	fp := &fakeProvider{name: "local", available: true, fragments: []string{"he", "llo", " world"}}
	g := New(Config{DefaultProvider: "local"})
	g.Register(fp, true)

	var buf bytes.Buffer
	flushes := 0
	err := g.Generate(context.Background(), types.GenerateRequest{Prompt: "hi"}, &buf, func() { flushes++ })
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	lines := decodeLines(t, &buf)
	if len(lines) != 4 {
		t.Fatalf("expected 3 token lines and a done line, got %d: %v", len(lines), lines)
	}
	var got strings.Builder
	for _, l := range lines[:3] {
		tok, ok := l["token"].(string)
		if !ok {
			t.Fatalf("token line missing token field: %v", l)
		}
		got.WriteString(tok)
	}
	final := lines[3]
	if final["done"] != true {
		t.Fatalf("final line not done: %v", final)
	}
	if final["content"] != "hello world" || got.String() != "hello world" {
		t.Fatalf("content mismatch: final=%v tokens=%q", final["content"], got.String())
	}
	if final["provider"] != "local" {
		t.Fatalf("unexpected provider in done line: %v", final["provider"])
	}
	// One flush per token line plus one for the done line.
	if flushes != 4 {
		t.Fatalf("expected 4 flushes, got %d", flushes)
	}
}

func TestGenerateRoutesByName(t *testing.T) {
	local := &fakeProvider{name: "local", available: true, fragments: []string{"local"}}
	cloud := &fakeProvider{name: "openrouter", available: true, fragments: []string{"cloud"}}
	g := New(Config{DefaultProvider: "local"})
	g.Register(local, true)
	g.Register(cloud, false)

	var buf bytes.Buffer
	if err := g.Generate(context.Background(), types.GenerateRequest{Provider: "openrouter", Prompt: "hi"}, &buf, nil); err != nil {
		t.Fatalf("generate: %v", err)
	}
	lines := decodeLines(t, &buf)
	if lines[len(lines)-1]["provider"] != "openrouter" {
		t.Fatalf("request not routed to named provider: %v", lines)
	}
}

func TestGenerateUnknownProvider(t *testing.T) {
	g := New(Config{DefaultProvider: "local"})
	g.Register(&fakeProvider{name: "local", available: true}, true)

	var buf bytes.Buffer
	err := g.Generate(context.Background(), types.GenerateRequest{Provider: "nope", Prompt: "hi"}, &buf, nil)
	if !IsProviderNotFound(err) {
		t.Fatalf("expected provider-not-found, got %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("nothing should be written on routing failure, got %q", buf.String())
	}
}

func TestGenerateNoDefaultConfigured(t *testing.T) {
	g := New(Config{})
	g.Register(&fakeProvider{name: "local", available: true}, true)
	var buf bytes.Buffer
	err := g.Generate(context.Background(), types.GenerateRequest{Prompt: "hi"}, &buf, nil)
	if !IsProviderNotFound(err) {
		t.Fatalf("expected provider-not-found, got %v", err)
	}
}

func TestGenerateErrorWritesNoDoneLine(t *testing.T) {
	boom := errors.New("boom")
	g := New(Config{DefaultProvider: "local"})
	g.Register(&fakeProvider{name: "local", available: true, err: boom}, true)

	var buf bytes.Buffer
	err := g.Generate(context.Background(), types.GenerateRequest{Prompt: "hi"}, &buf, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if strings.Contains(buf.String(), "done") {
		t.Fatalf("done line written despite failure: %q", buf.String())
	}
}

func TestModelOverrideForwarded(t *testing.T) {
	op := &overridableProvider{fakeProvider: fakeProvider{name: "openrouter", available: true, fragments: []string{"ok"}}}
	g := New(Config{DefaultProvider: "openrouter"})
	g.Register(op, false)

	var buf bytes.Buffer
	req := types.GenerateRequest{Prompt: "hi", Model: "custom/model"}
	if err := g.Generate(context.Background(), req, &buf, nil); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if op.lastModel != "custom/model" {
		t.Fatalf("model override not forwarded, got %q", op.lastModel)
	}
}

func TestModelOverrideIgnoredWithoutSupport(t *testing.T) {
	fp := &fakeProvider{name: "local", available: true, fragments: []string{"ok"}}
	g := New(Config{DefaultProvider: "local"})
	g.Register(fp, true)

	var buf bytes.Buffer
	req := types.GenerateRequest{Prompt: "hi", Model: "ignored"}
	if err := g.Generate(context.Background(), req, &buf, nil); err != nil {
		t.Fatalf("generate: %v", err)
	}
}

func TestProvidersStatus(t *testing.T) {
	local := &fakeProvider{name: "local", available: true, model: "tiny.gguf"}
	cloud := &fakeProvider{name: "openrouter", available: false, model: "claude-3.5"}
	g := New(Config{})
	g.Register(local, true)
	g.Register(cloud, false)

	got := g.Providers()
	if len(got) != 2 {
		t.Fatalf("expected 2 providers, got %d", len(got))
	}
	if got[0].Name != "local" || !got[0].Local || !got[0].Available || got[0].Model != "tiny.gguf" {
		t.Fatalf("unexpected local status: %+v", got[0])
	}
	if got[1].Name != "openrouter" || got[1].Local || got[1].Available || got[1].Model != "claude-3.5" {
		t.Fatalf("unexpected cloud status: %+v", got[1])
	}
}

func TestRegisterReplacesByName(t *testing.T) {
	g := New(Config{})
	g.Register(&fakeProvider{name: "local", available: false}, true)
	g.Register(&fakeProvider{name: "local", available: true}, true)
	got := g.Providers()
	if len(got) != 1 {
		t.Fatalf("expected replacement, got %d entries", len(got))
	}
	if !got[0].Available {
		t.Fatalf("replacement did not take effect: %+v", got[0])
	}
}

func TestAbortRoutesToProvider(t *testing.T) {
	fp := &fakeProvider{name: "local", available: true}
	g := New(Config{})
	g.Register(fp, true)

	if err := g.Abort("local"); err != nil {
		t.Fatalf("abort: %v", err)
	}
	if fp.aborted != 1 {
		t.Fatalf("abort not forwarded, count=%d", fp.aborted)
	}
	if err := g.Abort("nope"); !IsProviderNotFound(err) {
		t.Fatalf("expected provider-not-found, got %v", err)
	}
}

func TestReady(t *testing.T) {
	g := New(Config{})
	if g.Ready() {
		t.Fatalf("empty gateway must not be ready")
	}
	g.Register(&fakeProvider{name: "a", available: false}, true)
	if g.Ready() {
		t.Fatalf("unavailable providers must not make the gateway ready")
	}
	g.Register(&fakeProvider{name: "b", available: true}, false)
	if !g.Ready() {
		t.Fatalf("gateway with an available provider must be ready")
	}
}

func TestModelsEmptyWithoutLister(t *testing.T) {
	g := New(Config{})
	if got := g.Models(); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil list, got %v", got)
	}
	g2 := New(Config{Models: ModelListerFunc(func() []types.Model {
		return []types.Model{{ID: "m1", Name: "m1", Path: "/models/m1.gguf"}}
	})})
	if got := g2.Models(); len(got) != 1 || got[0].ID != "m1" {
		t.Fatalf("unexpected models: %v", got)
	}
}
