package room

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// defaultQuiescence is how long the autonomous loop waits after a round
// settles before starting the next one.
const defaultQuiescence = 5 * time.Second

// Loop drives the autonomous bot-to-bot conversation: run a round, wait
// for every call to settle, pause, repeat until stopped or until a
// round finds no enabled bots.
type Loop struct {
	orch       *Orchestrator
	quiescence time.Duration
	logger     *zap.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// LoopConfig tunes loop timing; the zero value takes the production
// defaults.
type LoopConfig struct {
	Quiescence time.Duration
}

// NewLoop creates a stopped conversation loop.
func NewLoop(orch *Orchestrator, cfg LoopConfig, logger *zap.Logger) *Loop {
	q := cfg.Quiescence
	if q == 0 {
		q = defaultQuiescence
	}
	return &Loop{
		orch:       orch,
		quiescence: q,
		logger:     logger.With(zap.String("component", "loop")),
	}
}

// Running reports whether the loop is active.
func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// Start launches the loop. The first round fires immediately, with no
// leading pause. Starting an already-running loop is a no-op.
func (l *Loop) Start(ctx context.Context) {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return
	}
	// waitCtx only gates the inter-round pause and the settle wait.
	// Cancelling it must not abort adapter calls already in flight, so
	// rounds get the parent ctx, not this one.
	waitCtx, cancel := context.WithCancel(ctx)
	l.running = true
	l.cancel = cancel
	l.done = make(chan struct{})
	done := l.done
	l.mu.Unlock()

	l.logger.Info("conversation loop started")
	go l.run(ctx, waitCtx, done)
}

// Stop halts the loop before its next round and clears any pending
// indicators left by the interrupted wait. In-flight adapter calls are
// not aborted; their results still land in the log. Stopping a stopped
// loop is a no-op.
func (l *Loop) Stop() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	l.running = false
	cancel := l.cancel
	done := l.done
	l.cancel = nil
	l.done = nil
	l.mu.Unlock()

	cancel()
	<-done
	l.orch.state.ClearPending()
	l.logger.Info("conversation loop stopped")
}

func (l *Loop) run(callCtx, waitCtx context.Context, done chan struct{}) {
	defer close(done)

	for {
		round, empty := l.orch.RunAutonomousRound(callCtx)
		if empty {
			l.stopSelf(done)
			return
		}

		select {
		case <-round.Settled():
		case <-waitCtx.Done():
			return
		}

		timer := time.NewTimer(l.quiescence)
		select {
		case <-waitCtx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// stopSelf transitions the loop to stopped from inside run, e.g. after
// an empty-roster round. It must not wait on done, which the caller
// itself closes.
func (l *Loop) stopSelf(done chan struct{}) {
	l.mu.Lock()
	// A concurrent Stop may have won; it already took ownership.
	if !l.running || l.done != done {
		l.mu.Unlock()
		return
	}
	l.running = false
	cancel := l.cancel
	l.cancel = nil
	l.done = nil
	l.mu.Unlock()

	cancel()
	l.logger.Info("conversation loop stopped, no enabled bots")
}
