// Package supervisor owns the lifecycle of the Matching Engine and the
// Positions Orchestration Engine: start both as independent goroutines,
// stop both cleanly on shutdown. Grounded on the teacher's
// cmd/candlecore/main.go signal-driven context cancellation (sigChan +
// context.WithCancel), generalized from one engine to two run
// concurrently, per spec.md §4.6's "Positions Engine may execute in a
// separate worker" note.
package supervisor

import (
	"context"
	"sync"

	"exchangesim/internal/logger"
	"exchangesim/internal/matching"
	"exchangesim/internal/positions"
)

// Supervisor starts and stops both engines together.
type Supervisor struct {
	matchingEngine  *matching.Engine
	positionsEngine *positions.Engine
	log             logger.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds a Supervisor over the given engines.
func New(matchingEngine *matching.Engine, positionsEngine *positions.Engine, log logger.Logger) *Supervisor {
	return &Supervisor{matchingEngine: matchingEngine, positionsEngine: positionsEngine, log: log}
}

// Start launches both engines as independent goroutines under a single
// cancellation scope derived from ctx.
func (s *Supervisor) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		s.matchingEngine.Run(runCtx)
	}()
	go func() {
		defer s.wg.Done()
		s.positionsEngine.Run(runCtx)
	}()

	s.log.Info("supervisor started matching and positions engines")
}

// Stop cancels both engines' context and blocks until each has returned
// from its run loop.
func (s *Supervisor) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.log.Info("supervisor stopped both engines")
}
