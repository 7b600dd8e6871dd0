package politeness

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nao1215/webkb/internal/model"
	"github.com/nao1215/webkb/internal/urlnorm"
)

// Verdict is the answer to "may this URL be fetched now?".
// Reason is set only for refusals that belong in the ledgers
// (blocked-host, robots-disallowed); scope refusals are silent.
type Verdict struct {
	Allowed bool
	Reason  model.Reason
}

// Engine bundles scoping, robots.txt and the SSRF guard.
type Engine struct {
	scope         *Scope
	robots        *RobotsCache
	guard         *HostGuard
	respectRobots bool
	logger        *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithRespectRobots toggles robots.txt enforcement. Enabled by default.
func WithRespectRobots(respect bool) EngineOption {
	return func(e *Engine) {
		e.respectRobots = respect
	}
}

// WithResolver replaces the DNS resolver used by the SSRF guard.
func WithResolver(r Resolver) EngineOption {
	return func(e *Engine) {
		e.guard = NewHostGuard(r)
	}
}

// WithEngineLogger sets the logger.
func WithEngineLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// NewEngine creates an engine for the given scope. getter serves robots.txt
// requests.
func NewEngine(scope *Scope, getter Getter, opts ...EngineOption) *Engine {
	e := &Engine{
		scope:         scope,
		respectRobots: true,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.guard == nil {
		e.guard = NewHostGuard(nil)
	}
	e.robots = NewRobotsCache(getter, e.logger)
	return e
}

// Scope returns the engine's scope.
func (e *Engine) Scope() *Scope {
	return e.scope
}

// CheckHost runs the SSRF guard alone.
func (e *Engine) CheckHost(ctx context.Context, rawURL string) error {
	return e.guard.Check(ctx, urlnorm.Hostname(rawURL))
}

// Guarded wraps getter so every request first passes the SSRF guard.
// Sitemap documents are fetched through it, since they never go through
// CanVisit and a proxied transport has no dial-time check.
func (e *Engine) Guarded(getter Getter) Getter {
	return &guardedGetter{engine: e, getter: getter}
}

type guardedGetter struct {
	engine *Engine
	getter Getter
}

func (g *guardedGetter) Get(ctx context.Context, rawURL string) (int, []byte, error) {
	if err := g.engine.CheckHost(ctx, rawURL); err != nil {
		g.engine.logger.Warn("refusing blocked host", "url", rawURL, "error", err)
		return 0, nil, err
	}
	return g.getter.Get(ctx, rawURL)
}

// CanVisit decides whether a frontier entry may be fetched.
// The SSRF guard runs before any request, robots.txt included, so a blocked
// host is never contacted.
func (e *Engine) CanVisit(ctx context.Context, rawURL string) Verdict {
	if err := e.CheckHost(ctx, rawURL); errors.Is(err, ErrBlockedHost) {
		e.logger.Warn("refusing blocked host", "url", rawURL, "error", err)
		e.robots.Forbid(urlnorm.Hostname(rawURL))
		return Verdict{Reason: model.ReasonBlockedHost}
	}

	if e.respectRobots {
		e.robots.Ensure(ctx, rawURL)
		if e.robots.IsDisallowed(rawURL) {
			e.logger.Warn("robots.txt disallows url", "url", rawURL)
			return Verdict{Reason: model.ReasonRobotsDisallowed}
		}
	}

	return Verdict{Allowed: e.scope.Allows(rawURL)}
}

// CanEnqueue decides whether a discovered link may join the frontier.
// It applies scoping and robots.txt without writing to any ledger. Hosts the
// guard rejects are not asked for robots.txt; CanVisit refuses them later.
func (e *Engine) CanEnqueue(ctx context.Context, rawURL string) bool {
	if !e.scope.Allows(rawURL) {
		return false
	}
	if !e.respectRobots {
		return true
	}
	if err := e.CheckHost(ctx, rawURL); err != nil {
		return true
	}
	e.robots.Ensure(ctx, rawURL)
	return !e.robots.IsDisallowed(rawURL)
}
