// Package engine is the single control thread of an experiment. It owns the
// session controller, the gesture recognizer and the input normalizer, and
// applies asynchronous asset loads between frames.
package engine

import (
	"context"
	"log/slog"

	"github.com/verte-zerg/entrylab/internal/assets"
	"github.com/verte-zerg/entrylab/internal/clock"
	"github.com/verte-zerg/entrylab/internal/gesture"
	"github.com/verte-zerg/entrylab/internal/input"
	"github.com/verte-zerg/entrylab/internal/loader"
	"github.com/verte-zerg/entrylab/internal/metrics"
	"github.com/verte-zerg/entrylab/internal/model"
	"github.com/verte-zerg/entrylab/internal/phrases"
	"github.com/verte-zerg/entrylab/internal/pointcloud"
	"github.com/verte-zerg/entrylab/internal/session"
	"github.com/verte-zerg/entrylab/internal/templates"
)

// Config holds experiment settings.
type Config struct {
	Trials      int
	EntryType   model.EntryType
	PhrasesFile string
	Capture     gesture.CaptureConfig
	Input       input.Config
}

// Deps are the collaborators an Engine is built from. Only Phrases is
// required for sessions to start.
type Deps struct {
	Phrases    assets.Fetcher
	Templates  *templates.Store
	Classifier gesture.Classifier
	Clock      clock.Clock
	Sampler    *phrases.Sampler
	Recorder   session.Recorder
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
}

// Engine processes one frame of input at a time. It is not safe for
// concurrent use.
type Engine struct {
	cfg     Config
	deps    Deps
	logger  *slog.Logger
	metrics *metrics.Metrics

	controller *session.Controller
	recognizer *gesture.Recognizer
	normalizer *input.Normalizer

	ctx    context.Context
	cancel context.CancelFunc

	phraseLoad  *loader.Future[[]string]
	phraseEpoch uint64

	templateLoad     *loader.Future[[]gesture.Template]
	templatesApplied bool
}

// New wires the controller, recognizer and normalizer.
func New(cfg Config, deps Deps) *Engine {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Classifier == nil {
		deps.Classifier = pointcloud.Classifier{}
	}
	if cfg.PhrasesFile == "" {
		cfg.PhrasesFile = phrases.DefaultFile
	}

	e := &Engine{
		cfg:     cfg,
		deps:    deps,
		logger:  logger,
		metrics: deps.Metrics,
	}
	opts := session.Options{
		Trials:    cfg.Trials,
		EntryType: cfg.EntryType,
		Clock:     deps.Clock,
		Sampler:   deps.Sampler,
		Recorder:  deps.Recorder,
		Logger:    logger.With("component", "session"),
	}
	if deps.Metrics != nil {
		opts.Observer = deps.Metrics
	}
	e.controller = session.New(opts)
	e.recognizer = gesture.NewRecognizer(cfg.Capture, deps.Classifier, e.controller, logger.With("component", "gesture"))
	e.normalizer = input.NewNormalizer(cfg.Input, e.controller, e.recognizer, commands{e}, logger.With("component", "input"))
	e.ctx, e.cancel = context.WithCancel(context.Background())
	return e
}

// Start begins loading the phrase pool and the template library. ctx bounds
// every load the engine starts until Close.
func (e *Engine) Start(ctx context.Context) {
	e.cancel()
	e.ctx, e.cancel = context.WithCancel(ctx)
	e.loadPhrases()
	e.ReloadTemplates()
}

// Close cancels outstanding loads.
func (e *Engine) Close() {
	e.cancel()
	if e.phraseLoad != nil {
		e.phraseLoad.Cancel()
	}
	if e.templateLoad != nil {
		e.templateLoad.Cancel()
	}
}

// Controller exposes the session controller for rendering.
func (e *Engine) Controller() *session.Controller {
	return e.controller
}

// Recognizer exposes the gesture recognizer.
func (e *Engine) Recognizer() *gesture.Recognizer {
	return e.recognizer
}

// Loading reports whether any asset load is still outstanding.
func (e *Engine) Loading() bool {
	return e.phraseLoad != nil || e.templateLoad != nil
}

// Frame applies completed loads and then every event in order.
func (e *Engine) Frame(events []input.Event) []input.Outcome {
	e.Poll()
	out := make([]input.Outcome, 0, len(events))
	for _, ev := range events {
		out = append(out, e.Handle(ev))
	}
	return out
}

// Handle applies a single event.
func (e *Engine) Handle(ev input.Event) input.Outcome {
	out := e.normalizer.Handle(ev)
	if out.Action == input.ActionNone {
		return out
	}
	e.metrics.InputAction(out.Action.String())
	if out.Action == input.ActionStroke && out.Stroke.Outcome != gesture.OutcomeRecording {
		e.metrics.Stroke(out.Stroke.Outcome.String())
	}
	return out
}

// StartSession starts a session if none is active.
func (e *Engine) StartSession() bool {
	if !e.controller.StartSession() {
		return false
	}
	e.metrics.SessionStarted()
	return true
}

// ExitSession abandons the session and reloads the phrase pool, as a
// fresh experiment scene would. Loads started before the exit are dropped.
func (e *Engine) ExitSession() {
	if e.controller.State() == session.StateActive {
		e.metrics.SessionAbandoned()
	}
	e.recognizer.Cancel()
	e.controller.ExitSession()
	e.loadPhrases()
}

// ReloadTemplates starts a fresh template load. A result arriving while a
// session is active is held until the session is over, except for the
// first load.
func (e *Engine) ReloadTemplates() {
	if e.deps.Templates == nil {
		return
	}
	if e.templateLoad != nil {
		e.templateLoad.Cancel()
	}
	store := e.deps.Templates
	e.templateLoad = loader.Go(e.ctx, store.Load)
}

// Poll applies loads that have completed. It reports whether anything was
// applied.
func (e *Engine) Poll() bool {
	changed := false
	if e.phraseLoad != nil && e.phraseLoad.Ready() {
		changed = e.applyPhrases() || changed
	}
	if e.templateLoad != nil && e.templateLoad.Ready() {
		if !e.templatesApplied || e.controller.State() != session.StateActive {
			changed = e.applyTemplates() || changed
		}
	}
	return changed
}

// Wait blocks until outstanding loads finish or ctx ends, then applies
// them. Templates held back by an active session stay pending.
func (e *Engine) Wait(ctx context.Context) error {
	if e.phraseLoad != nil {
		_, _ = e.phraseLoad.Wait(ctx)
	}
	if e.templateLoad != nil {
		_, _ = e.templateLoad.Wait(ctx)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	e.Poll()
	return nil
}

func (e *Engine) loadPhrases() {
	if e.phraseLoad != nil {
		e.phraseLoad.Cancel()
	}
	if e.deps.Phrases == nil {
		e.phraseLoad = nil
		return
	}
	src, name := e.deps.Phrases, e.cfg.PhrasesFile
	e.phraseEpoch = e.controller.Epoch()
	e.phraseLoad = loader.Go(e.ctx, func(ctx context.Context) ([]string, error) {
		return phrases.Load(ctx, src, name)
	})
}

func (e *Engine) applyPhrases() bool {
	pool, err := e.phraseLoad.Result()
	epoch := e.phraseEpoch
	e.phraseLoad = nil
	if err != nil {
		if e.ctx.Err() == nil {
			e.logger.Warn("failed to load phrases", "source", e.deps.Phrases.Location(), "error", err)
			e.metrics.LoadFailed("phrases")
		}
		return false
	}
	if !e.controller.SetPhrasePool(epoch, pool) {
		return false
	}
	e.metrics.SetPhrasePool(len(pool))
	e.logger.Info("phrases loaded", "count", len(pool))
	return true
}

func (e *Engine) applyTemplates() bool {
	list, err := e.templateLoad.Result()
	e.templateLoad = nil
	if err != nil {
		if e.ctx.Err() == nil {
			e.logger.Warn("failed to load gesture templates", "source", e.deps.Templates.Location(), "error", err)
			e.metrics.LoadFailed("templates")
		}
		return false
	}
	e.recognizer.SetTemplates(list)
	e.templatesApplied = true
	e.metrics.SetTemplates(len(list))
	e.logger.Info("gesture templates loaded", "count", len(list))
	return true
}

// commands routes session commands from the normalizer back through the
// engine so exits also reset the recognizer and reload phrases.
type commands struct {
	e *Engine
}

func (c commands) StartSession() bool { return c.e.StartSession() }
func (c commands) ExitSession()       { c.e.ExitSession() }
