package client

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"

	"github.com/oceanbase/powerpersona-go/pkg/archetype"
	"github.com/oceanbase/powerpersona-go/pkg/board"
	"github.com/oceanbase/powerpersona-go/pkg/core"
	"github.com/oceanbase/powerpersona-go/pkg/embedder"
	"github.com/oceanbase/powerpersona-go/pkg/eventlog"
	"github.com/oceanbase/powerpersona-go/pkg/generation"
	"github.com/oceanbase/powerpersona-go/pkg/llm"
	"github.com/oceanbase/powerpersona-go/pkg/memory"
	"github.com/oceanbase/powerpersona-go/pkg/persona"
)

// Persona is a runtime together with the resources it owns.
type Persona struct {
	*persona.Runtime

	Store *memory.Store

	closers []func() error
}

// Close releases the store, providers and event file. Stop and Wait the
// runtime first.
func (p *Persona) Close() error {
	var errs []error
	for i := len(p.closers) - 1; i >= 0; i-- {
		if err := p.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// BuildPersona wires a persona from configuration: LLM ports, embedder,
// memory store, optional event recorder and runtime.
func BuildPersona(ctx context.Context, cfg *core.Config, a *archetype.Archetype, userID int64, b *board.Board, logger *log.Logger) (*Persona, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	p := &Persona{}
	fail := func(err error) (*Persona, error) {
		_ = p.Close()
		return nil, err
	}

	provider, err := core.NewLLM(cfg.LLM)
	if err != nil {
		return fail(err)
	}
	p.closers = append(p.closers, provider.Close)

	emb, err := core.NewEmbedder(cfg.Embedder)
	if err != nil {
		return fail(err)
	}
	p.closers = append(p.closers, emb.Close)

	return buildWith(ctx, cfg, a, userID, b, logger, p, provider, emb, fail)
}

func buildWith(ctx context.Context, cfg *core.Config, a *archetype.Archetype, userID int64, b *board.Board, logger *log.Logger,
	p *Persona, provider llm.Provider, emb embedder.Provider, fail func(error) (*Persona, error)) (*Persona, error) {
	pid := cfg.PersistenceID(a.Key)

	store, err := memory.Open(ctx, cfg.Store, pid, emb)
	if err != nil {
		return fail(err)
	}
	p.Store = store
	p.closers = append(p.closers, store.Close)

	opts := []persona.Option{persona.WithLogger(logger)}
	if cfg.Log.SaveEvents && cfg.Log.Path != "" {
		rec, err := eventlog.Open(cfg.Log.Path, pid)
		if err != nil {
			return fail(err)
		}
		p.closers = append(p.closers, rec.Close)
		opts = append(opts, persona.WithRecorder(rec))
	}

	ports := generation.NewLLM(provider, generation.Options{
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeouts:    cfg.Persona.Timeouts,
	}).Ports()

	rt, err := persona.New(cfg.Persona, persona.IdentityFromArchetype(userID, a, pid), b, store, ports, opts...)
	if err != nil {
		return fail(err)
	}
	p.Runtime = rt
	return p, nil
}

// BuildPersonaWith is BuildPersona with caller-owned providers; closing the
// Persona does not close them.
func BuildPersonaWith(ctx context.Context, cfg *core.Config, a *archetype.Archetype, userID int64, b *board.Board, logger *log.Logger,
	provider llm.Provider, emb embedder.Provider) (*Persona, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	p := &Persona{}
	fail := func(err error) (*Persona, error) {
		_ = p.Close()
		return nil, err
	}
	return buildWith(ctx, cfg, a, userID, b, logger, p, provider, emb, fail)
}
