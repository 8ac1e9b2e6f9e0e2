package enginetest

import (
	"context"
	"sync"

	"github.com/vk/multirelease/internal/engine"
	"github.com/vk/multirelease/internal/version"
)

// Router is a Stages implementation that dispatches every call to the Fake
// registered for the context's unit name. It lets a single engine factory
// script different behavior per unit in orchestrator-level tests.
type Router struct {
	mu    sync.Mutex
	fakes map[string]*Fake
}

var _ engine.Stages = (*Router)(nil)

// NewRouter returns an empty router. Units without an explicit script get a
// zero-value Fake, which analyzes to "no release".
func NewRouter() *Router {
	return &Router{fakes: make(map[string]*Fake)}
}

// Unit returns the fake for name, creating it on first use.
func (r *Router) Unit(name string) *Fake {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.fakes[name]
	if !ok {
		f = &Fake{}
		r.fakes[name] = f
	}
	return f
}

func (r *Router) VerifyConditions(ctx context.Context, rc *engine.Context) error {
	return r.Unit(rc.Name).VerifyConditions(ctx, rc)
}

func (r *Router) AnalyzeCommits(ctx context.Context, rc *engine.Context) (version.Type, error) {
	return r.Unit(rc.Name).AnalyzeCommits(ctx, rc)
}

func (r *Router) GenerateNotes(ctx context.Context, rc *engine.Context) (string, error) {
	return r.Unit(rc.Name).GenerateNotes(ctx, rc)
}

func (r *Router) Prepare(ctx context.Context, rc *engine.Context) error {
	return r.Unit(rc.Name).Prepare(ctx, rc)
}

func (r *Router) Publish(ctx context.Context, rc *engine.Context) (*engine.Release, error) {
	return r.Unit(rc.Name).Publish(ctx, rc)
}

func (r *Router) AddChannel(ctx context.Context, rc *engine.Context) (*engine.Release, error) {
	return r.Unit(rc.Name).AddChannel(ctx, rc)
}

func (r *Router) Success(ctx context.Context, rc *engine.Context) error {
	return r.Unit(rc.Name).Success(ctx, rc)
}

func (r *Router) Fail(ctx context.Context, rc *engine.Context, stageErr error) error {
	return r.Unit(rc.Name).Fail(ctx, rc, stageErr)
}
