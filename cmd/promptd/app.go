package main

import (
	"time"

	"promptd/internal/cloud"
	"promptd/internal/config"
	"promptd/internal/engine"
	"promptd/internal/gateway"
	"promptd/internal/registry"
	"promptd/internal/secret"
	"promptd/pkg/types"
)

// buildGateway wires the engine and cloud clients from the config. The local
// engine is always registered; loading its model may fail (no runtime, no
// model on disk) without preventing startup.
func buildGateway(o *rootOptions) (*gateway.Gateway, *engine.Engine) {
	cfg := o.cfg

	eng := engine.New(engine.NewRuntime(), engine.Config{
		Name: "local",
		Load: engine.LoadOptions{
			ContextSize: cfg.ContextSize,
			BatchSize:   cfg.BatchSize,
			Threads:     cfg.Threads,
			GPULayers:   cfg.GPULayers,
		},
		MaxQueueDepth: cfg.MaxQueueDepth,
		MaxWait:       time.Duration(cfg.MaxWaitMS) * time.Millisecond,
		Logger:        o.log,
	})
	if cfg.DefaultModel != "" {
		if path, ok := resolveModelPath(cfg, cfg.DefaultModel); ok {
			if err := eng.LoadModel(path); err != nil {
				o.log.Warn().Err(err).Str("model", cfg.DefaultModel).Msg("default model not loaded")
			}
		} else {
			o.log.Warn().Str("model", cfg.DefaultModel).Str("dir", cfg.ModelsDir).Msg("default model not found")
		}
	}

	gw := gateway.New(gateway.Config{
		DefaultProvider: cfg.DefaultProvider,
		Models: gateway.ModelListerFunc(func() []types.Model {
			models, err := registry.LoadDir(cfg.ModelsDir)
			if err != nil {
				o.log.Warn().Err(err).Str("dir", cfg.ModelsDir).Msg("model scan failed")
				return nil
			}
			return models
		}),
		Logger: o.log,
	})
	gw.Register(eng, true)

	secrets := secret.EnvStore{}
	for _, pc := range cfg.Providers {
		c := cloud.New(types.ProviderIdentity{
			DisplayName:      pc.Name,
			EndpointURL:      pc.Endpoint,
			DefaultModelName: pc.Model,
			SecretKeyName:    pc.SecretKey,
		}, secrets, cloud.WithLogger(o.log))
		gw.Register(c, false)
	}
	return gw, eng
}

// resolveModelPath finds a model by id in the models dir. A value that looks
// like a path is used as-is.
func resolveModelPath(cfg config.Config, id string) (string, bool) {
	models, err := registry.LoadDir(cfg.ModelsDir)
	if err == nil {
		if m, ok := registry.Resolve(models, id); ok {
			return m.Path, true
		}
	}
	if len(id) > 0 && (id[0] == '/' || id[0] == '~' || id[0] == '.') {
		return id, true
	}
	return "", false
}
