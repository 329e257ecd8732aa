package room

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"botroom/internal/metrics"
	"botroom/llm"
	"botroom/types"
)

// defaultSequentialDelay is the mandated spacing between calls of the
// rate-limited group, protecting the shared upstream rate limit.
const defaultSequentialDelay = 3 * time.Second

// roundKind distinguishes the two orchestrator entry points. They share
// the same round algorithm and differ only in roster instructions and
// empty-roster handling.
type roundKind string

const (
	directedRound   roundKind = "directed"
	autonomousRound roundKind = "autonomous"
)

// ProviderFactory builds the adapter for one roster entry from the
// round's settings snapshot.
type ProviderFactory interface {
	Provider(bot types.BotDescriptor, settings types.Settings) llm.Provider
}

// Orchestrator runs response rounds against the shared state. It is the
// only component that appends bot and system messages or mutates the
// pending set.
type Orchestrator struct {
	state     *State
	factory   ProviderFactory
	collector *metrics.Collector
	logger    *zap.Logger

	sequentialDelay time.Duration
}

// OrchestratorConfig tunes round timing; the zero value takes the
// production defaults.
type OrchestratorConfig struct {
	SequentialDelay time.Duration
}

// NewOrchestrator creates an orchestrator. collector may be nil.
func NewOrchestrator(state *State, factory ProviderFactory, cfg OrchestratorConfig, collector *metrics.Collector, logger *zap.Logger) *Orchestrator {
	delay := cfg.SequentialDelay
	if delay == 0 {
		delay = defaultSequentialDelay
	}
	return &Orchestrator{
		state:           state,
		factory:         factory,
		collector:       collector,
		logger:          logger.With(zap.String("component", "orchestrator")),
		sequentialDelay: delay,
	}
}

// Round is a handle to one in-flight orchestration round.
type Round struct {
	settled chan struct{}
}

// Settled is closed once every call issued by the round — concurrent
// and sequential — has completed and left the pending set.
func (r *Round) Settled() <-chan struct{} {
	return r.settled
}

// RunDirectedRound responds to a just-submitted human message: every
// enabled bot gets the generic helpful-assistant instruction. The
// returned round settles immediately when no bots are enabled.
func (o *Orchestrator) RunDirectedRound(ctx context.Context) *Round {
	round, _ := o.runRound(ctx, directedRound)
	return round
}

// RunAutonomousRound drives one bot-to-bot exchange; each bot gets an
// instruction naming itself and its maker. The empty result reports
// that no bots were enabled, which the autonomous loop treats as its
// stop signal.
func (o *Orchestrator) RunAutonomousRound(ctx context.Context) (round *Round, empty bool) {
	return o.runRound(ctx, autonomousRound)
}

func (o *Orchestrator) runRound(ctx context.Context, kind roundKind) (*Round, bool) {
	round := &Round{settled: make(chan struct{})}
	start := time.Now()

	settings := o.state.Settings()
	r := buildRoster(settings)

	o.collector.RoundStarted(string(kind))

	if r.missingKey {
		o.appendNotice(missingKeyNotice(kind))
	}

	if r.size() == 0 {
		o.appendNotice(emptyRosterNotice(kind))
		o.logger.Info("round skipped, empty roster", zap.String("kind", string(kind)))
		close(round.settled)
		o.collector.RoundSettled(string(kind), time.Since(start))
		return round, true
	}

	// Snapshot the history once; every bot in the round sees the same
	// conversation state regardless of completion interleaving.
	history := o.state.Messages()

	// All roster members go pending before any call is issued, so the
	// render layer shows them as responding immediately.
	o.state.AddPending(r.names()...)

	o.logger.Info("round started",
		zap.String("kind", string(kind)),
		zap.Int("concurrent", len(r.concurrent)),
		zap.Int("sequential", len(r.sequential)))

	g := new(errgroup.Group)
	for _, bot := range r.concurrent {
		g.Go(func() error {
			o.invoke(ctx, bot, settings, history, kind, nil)
			return nil
		})
	}
	g.Go(func() error {
		o.runSequential(ctx, r.sequential, settings, history, kind)
		return nil
	})

	go func() {
		_ = g.Wait()
		close(round.settled)
		o.collector.RoundSettled(string(kind), time.Since(start))
		o.logger.Debug("round settled", zap.String("kind", string(kind)))
	}()

	return round, false
}

// invoke issues one adapter call and reconciles its result: a
// bot-authored message on success, a system notice on failure, and in
// either case the bot leaves the pending set. authSeen is non-nil only
// for the rate-limited group, where repeated authentication failures
// within one round are collapsed into a single notice.
func (o *Orchestrator) invoke(ctx context.Context, bot types.BotDescriptor, settings types.Settings, history []types.Message, kind roundKind, authSeen *bool) {
	defer o.state.RemovePending(bot.DisplayName)

	instruction := directedInstruction
	if kind == autonomousRound {
		instruction = autonomousInstruction(bot)
	}

	provider := o.factory.Provider(bot, settings)
	if provider == nil {
		o.appendNotice(fmt.Sprintf("Error from %s: no backend adapter available.", bot.DisplayName))
		return
	}

	reply, err := provider.GenerateReply(ctx, history, instruction)
	if err != nil {
		o.collector.BotError(provider.Name(), types.GetErrorCode(err))
		o.logger.Warn("bot call failed",
			zap.String("bot", bot.DisplayName),
			zap.String("provider", provider.Name()),
			zap.Error(err))

		if types.IsAuthenticationError(err) && authSeen != nil {
			if *authSeen {
				return // one authentication notice per round is enough signal
			}
			*authSeen = true
		}
		o.appendNotice(fmt.Sprintf("Error from %s: %s", bot.DisplayName, types.NoticeText(err)))
		return
	}

	o.collector.BotReply(provider.Name())
	o.state.Append(types.NewMessage(authorName(bot), bot.AuthorType, reply))
}

// runSequential processes the rate-limited group one model at a time in
// roster order, suspending for the mandated delay between calls. A
// cancelled context releases the remaining pending entries instead of
// issuing further calls.
func (o *Orchestrator) runSequential(ctx context.Context, bots []types.BotDescriptor, settings types.Settings, history []types.Message, kind roundKind) {
	var authSeen bool
	for i, bot := range bots {
		o.invoke(ctx, bot, settings, history, kind, &authSeen)

		if i == len(bots)-1 {
			return
		}
		timer := time.NewTimer(o.sequentialDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			for _, rest := range bots[i+1:] {
				o.state.RemovePending(rest.DisplayName)
			}
			return
		case <-timer.C:
		}
	}
}

func (o *Orchestrator) appendNotice(text string) {
	o.collector.SystemNotice()
	o.state.Append(types.NewSystemMessage(text))
}

func missingKeyNotice(kind roundKind) string {
	if kind == autonomousRound {
		return "OpenRouter bots paused: API key missing."
	}
	return "OpenRouter Error: API key is missing. Please add it in settings."
}

func emptyRosterNotice(kind roundKind) string {
	if kind == autonomousRound {
		return "No active bots to have a conversation. Please enable bots in settings."
	}
	return "No active bots to respond. Please enable a bot in settings."
}
