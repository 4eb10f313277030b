package rbac

import (
	"context"
	"log/slog"
	"sync"
)

// Service owns one resolver per authenticated session. Resolvers are created
// lazily on the first guarded request and discarded on logout.
type Service struct {
	store  Store
	logger *slog.Logger

	mu        sync.Mutex
	resolvers map[string]*Resolver
}

// NewService constructs a Service backed by the provided store.
func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{
		store:     store,
		logger:    logger,
		resolvers: make(map[string]*Resolver),
	}
}

// ResolverFor returns the session's resolver, loading it on first use.
// The returned resolver may be in the error state; callers observe that
// through guard decisions, never through a default-allow.
func (s *Service) ResolverFor(ctx context.Context, sessionID string, actorID int64) *Resolver {
	s.mu.Lock()
	resolver, ok := s.resolvers[sessionID]
	if !ok || resolver.ActorID() != actorID {
		resolver = NewResolver(s.store, s.logger)
		s.resolvers[sessionID] = resolver
	}
	s.mu.Unlock()

	if resolver.State() == StateUninitialized {
		if err := resolver.LoadForActor(ctx, actorID); err != nil && s.logger != nil {
			s.logger.Warn("resolver initial load", slog.String("session", sessionID), slog.Any("error", err))
		}
	}
	return resolver
}

// Drop discards the resolver for a session, typically on logout.
func (s *Service) Drop(sessionID string) {
	s.mu.Lock()
	delete(s.resolvers, sessionID)
	s.mu.Unlock()
}

// RefreshActor re-resolves every live session bound to the actor. Mutating
// handlers call this before responding so a self-granted or self-revoked
// permission is visible on the very next guard check.
func (s *Service) RefreshActor(ctx context.Context, actorID int64) error {
	s.mu.Lock()
	targets := make([]*Resolver, 0, len(s.resolvers))
	for _, resolver := range s.resolvers {
		if resolver.ActorID() == actorID {
			targets = append(targets, resolver)
		}
	}
	s.mu.Unlock()

	var firstErr error
	for _, resolver := range targets {
		if err := resolver.Refresh(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
