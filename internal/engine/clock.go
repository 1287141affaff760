package engine

import (
	"context"
	"log/slog"
	"time"
)

// Clock drives the engine: one tick per interval, NPC decisions first so
// their commands land on the tick they were decided for.
type Clock struct {
	engine   *Engine
	npcs     *NPCPool
	interval time.Duration

	cancel context.CancelFunc
	done   chan struct{}
}

// NewClock creates a stopped clock. npcs may be nil.
func NewClock(e *Engine, npcs *NPCPool, interval time.Duration) *Clock {
	return &Clock{engine: e, npcs: npcs, interval: interval}
}

// Start launches the tick loop in its own goroutine.
func (c *Clock) Start(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	c.cancel = cancel
	c.done = make(chan struct{})

	go func() {
		defer close(c.done)
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		slog.Info("world clock started", "interval", c.interval)
		for {
			select {
			case <-ctx.Done():
				slog.Info("world clock stopped")
				return
			case <-ticker.C:
				c.Step()
			}
		}
	}()
}

// Step runs one full tick cycle: NPC commands, then the batch passes.
// Safe to call directly for manual stepping via the admin API.
func (c *Clock) Step() {
	if c.npcs != nil {
		c.npcs.Act()
	}
	if _, err := c.engine.ProcessTick(); err != nil {
		slog.Error("tick processing failed", "error", err)
	}
}

// Stop halts the loop and waits for the in-flight tick to finish.
func (c *Clock) Stop() {
	if c.cancel == nil {
		return
	}
	c.cancel()
	<-c.done
}
