package room

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"botroom/internal/metrics"
	"botroom/types"
)

const welcomeMessage = "Welcome to the AI Bot Chat Room! " +
	"Click the gear icon to configure your bots, then send a message or " +
	"press the 'play' button to start a bot-to-bot conversation."

// Room is the top-level controller binding the shared state, the round
// orchestrator, and the autonomous conversation loop behind one API.
type Room struct {
	state  *State
	orch   *Orchestrator
	loop   *Loop
	logger *zap.Logger
}

// Config carries the timing knobs of the orchestration core.
type Config struct {
	Orchestrator OrchestratorConfig
	Loop         LoopConfig
}

// New creates a room seeded with the welcome message.
func New(settings types.Settings, factory ProviderFactory, cfg Config, collector *metrics.Collector, logger *zap.Logger) *Room {
	settings.Normalize()
	state := NewState(settings, logger)
	orch := NewOrchestrator(state, factory, cfg.Orchestrator, collector, logger)

	state.Append(types.NewSystemMessage(welcomeMessage))

	return &Room{
		state:  state,
		orch:   orch,
		loop:   NewLoop(orch, cfg.Loop, logger),
		logger: logger.With(zap.String("component", "room")),
	}
}

// Submit posts a human message and triggers a directed response round.
// Any running bot-to-bot conversation is interrupted first, so the
// submitted message is in the history every responder sees. Blank input
// is rejected without side effects.
func (r *Room) Submit(ctx context.Context, text string) (*Round, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, types.NewError(types.ErrInvalidRequest, "message text must not be empty")
	}

	r.loop.Stop()
	r.state.Append(types.NewHumanMessage(text))
	r.logger.Info("human message submitted", zap.Int("length", len(text)))
	return r.orch.RunDirectedRound(ctx), nil
}

// ToggleConversation flips the autonomous loop and posts a notice
// reflecting the new mode. It reports whether the loop is running after
// the toggle.
func (r *Room) ToggleConversation(ctx context.Context) bool {
	if r.loop.Running() {
		r.loop.Stop()
		r.state.Append(types.NewSystemMessage("Bot conversation paused."))
		return false
	}
	r.state.Append(types.NewSystemMessage("Starting bot conversation..."))
	r.loop.Start(ctx)
	return true
}

// StopConversation halts the autonomous loop if it is running.
func (r *Room) StopConversation() {
	r.loop.Stop()
}

// ConversationRunning reports whether the autonomous loop is active.
func (r *Room) ConversationRunning() bool {
	return r.loop.Running()
}

// Messages returns a copy of the ordered message log.
func (r *Room) Messages() []types.Message {
	return r.state.Messages()
}

// Pending returns the display names of bots currently responding.
func (r *Room) Pending() []string {
	return r.state.Pending()
}

// Settings returns a copy of the current settings.
func (r *Room) Settings() types.Settings {
	return r.state.Settings()
}

// UpdateSettings replaces the settings read by subsequent rounds.
// Rounds already in flight keep the snapshot they started with.
func (r *Room) UpdateSettings(settings types.Settings) {
	r.state.SetSettings(settings)
	r.logger.Info("settings updated",
		zap.Bool("gemini", settings.ActiveBots.Gemini),
		zap.Bool("lmstudio", settings.ActiveBots.LMStudio),
		zap.Int("openrouter_models", len(settings.ActiveBots.OpenRouterModels)))
}

// Subscribe registers for state change notifications.
func (r *Room) Subscribe() (<-chan struct{}, func()) {
	return r.state.Subscribe()
}
