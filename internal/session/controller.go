// Package session sequences trials, applies edits to the typed buffer and
// produces the interaction log for one participant at a time.
package session

import (
	"context"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/verte-zerg/entrylab/internal/clock"
	"github.com/verte-zerg/entrylab/internal/model"
	"github.com/verte-zerg/entrylab/internal/phrases"
)

// DefaultTrials is the number of trials per session when unset.
const DefaultTrials = 3

// State is the controller's lifecycle position.
type State int

const (
	StateIdle State = iota
	StateActive
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	case StateEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// Recorder persists a finished session.
type Recorder interface {
	Record(ctx context.Context, s model.Session) error
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(ctx context.Context, s model.Session) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, s model.Session) error {
	return f(ctx, s)
}

// Observer is told about trial and session boundaries.
type Observer interface {
	TrialCompleted(t model.Trial)
	SessionEnded(s model.Session)
}

// Options configures a Controller.
type Options struct {
	Trials    int
	EntryType model.EntryType
	Clock     clock.Clock
	Sampler   *phrases.Sampler
	Recorder  Recorder
	Observer  Observer
	Logger    *slog.Logger
	// NewID generates participant identifiers.
	NewID func() string
}

// Controller owns the live session, the current trial and the typed
// buffer. It is not safe for concurrent use; every call is expected from
// the single control thread.
type Controller struct {
	opts   Options
	logger *slog.Logger

	state State
	epoch uint64
	pool  []string

	session    *model.Session
	targets    []string
	trialIndex int
	buffer     []rune
	lastStamp  time.Time
}

// New returns an idle controller.
func New(opts Options) *Controller {
	if opts.Trials <= 0 {
		opts.Trials = DefaultTrials
	}
	if opts.Clock == nil {
		opts.Clock = clock.System{}
	}
	if opts.Sampler == nil {
		opts.Sampler = phrases.NewSampler()
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{opts: opts, logger: logger}
}

// State returns the lifecycle state.
func (c *Controller) State() State {
	return c.state
}

// Epoch identifies the controller's current lifetime. It changes every time
// a session is abandoned, so asynchronous work started earlier can tell its
// result is stale.
func (c *Controller) Epoch() uint64 {
	return c.epoch
}

// SetPhrasePool installs the candidate phrases if epoch is still current.
func (c *Controller) SetPhrasePool(epoch uint64, pool []string) bool {
	if epoch != c.epoch {
		c.logger.Debug("dropping stale phrase pool", "epoch", epoch, "current", c.epoch)
		return false
	}
	c.pool = append([]string(nil), pool...)
	return true
}

// PhrasePool returns the number of candidate phrases.
func (c *Controller) PhrasePool() int {
	return len(c.pool)
}

// Trials returns the configured number of trials per session.
func (c *Controller) Trials() int {
	return c.opts.Trials
}

// EntryType returns the modality sessions are tagged with.
func (c *Controller) EntryType() model.EntryType {
	return c.opts.EntryType
}

// SetEntryType changes the modality for the next session.
func (c *Controller) SetEntryType(e model.EntryType) {
	c.opts.EntryType = e
}

// StartSession samples the trial phrases and begins the first trial. It
// returns false, leaving state untouched, when a session is already active
// or no phrases are loaded.
func (c *Controller) StartSession() bool {
	if c.state == StateActive {
		c.logger.Warn("session already active; start ignored", "participant", c.session.ParticipantID)
		return false
	}
	if len(c.pool) == 0 {
		c.logger.Warn("phrase pool is empty; cannot start session")
		return false
	}
	c.targets = c.opts.Sampler.Sample(c.pool, c.opts.Trials)
	c.trialIndex = 0
	c.lastStamp = time.Time{}
	c.session = &model.Session{
		ParticipantID: c.opts.NewID(),
		EntryType:     c.opts.EntryType,
		StartedAt:     c.stamp(),
		Trials:        make([]model.Trial, 0, c.opts.Trials),
	}
	c.state = StateActive
	c.logger.Info("session started",
		"participant", c.session.ParticipantID,
		"entry_type", c.session.EntryType.String(),
		"trials", c.opts.Trials,
	)
	c.startTrial()
	return true
}

// InsertCharacter appends r to the typed buffer and logs the edit.
func (c *Controller) InsertCharacter(r rune) {
	trial := c.currentTrial()
	if trial == nil {
		return
	}
	before := len(c.buffer)
	c.buffer = append(c.buffer, r)
	trial.Events = append(trial.Events, model.InputEvent{
		Time:         c.stamp(),
		Kind:         model.EventInsert,
		Character:    string(r),
		CursorBefore: before,
		CursorAfter:  len(c.buffer),
	})
	c.checkCompletion()
}

// DeleteCharacter removes the last typed rune. It does nothing, and logs
// nothing, when the buffer is empty.
func (c *Controller) DeleteCharacter() {
	trial := c.currentTrial()
	if trial == nil || len(c.buffer) == 0 {
		return
	}
	before := len(c.buffer)
	c.buffer = c.buffer[:before-1]
	trial.Events = append(trial.Events, model.InputEvent{
		Time:         c.stamp(),
		Kind:         model.EventDelete,
		CursorBefore: before,
		CursorAfter:  len(c.buffer),
	})
}

// ExitSession abandons any session in progress without recording it.
func (c *Controller) ExitSession() {
	if c.state == StateActive {
		c.logger.Info("session abandoned", "participant", c.session.ParticipantID, "trial", c.trialIndex)
	}
	c.state = StateIdle
	c.session = nil
	c.targets = nil
	c.trialIndex = 0
	c.buffer = nil
	c.epoch++
}

// TypedText returns the current buffer contents.
func (c *Controller) TypedText() string {
	return string(c.buffer)
}

// Target returns the current trial's phrase, or "" outside a trial.
func (c *Controller) Target() string {
	trial := c.currentTrial()
	if trial == nil {
		return ""
	}
	return trial.TargetPhrase
}

// TrialNumber returns the 1-based current trial and the total.
func (c *Controller) TrialNumber() (int, int) {
	if c.state != StateActive {
		return 0, c.opts.Trials
	}
	return c.trialIndex + 1, c.opts.Trials
}

// Session returns a copy of the live or most recently ended session.
func (c *Controller) Session() (model.Session, bool) {
	if c.session == nil {
		return model.Session{}, false
	}
	return copySession(*c.session), true
}

func (c *Controller) currentTrial() *model.Trial {
	if c.state != StateActive || len(c.session.Trials) == 0 {
		return nil
	}
	return &c.session.Trials[len(c.session.Trials)-1]
}

func (c *Controller) startTrial() {
	if c.trialIndex >= len(c.targets) {
		c.endSession()
		return
	}
	c.buffer = c.buffer[:0]
	c.session.Trials = append(c.session.Trials, model.Trial{
		PhraseIndex:  c.trialIndex,
		TargetPhrase: c.targets[c.trialIndex],
		StartedAt:    c.stamp(),
		Events:       []model.InputEvent{},
	})
}

// checkCompletion ends the trial once the buffer is as long as the target.
// Content is not compared.
func (c *Controller) checkCompletion() {
	trial := c.currentTrial()
	if len(c.buffer) != utf8.RuneCountInString(trial.TargetPhrase) {
		return
	}
	trial.EndedAt = c.stamp()
	trial.FinalText = string(c.buffer)
	if c.opts.Observer != nil {
		c.opts.Observer.TrialCompleted(copyTrial(*trial))
	}
	c.trialIndex++
	c.startTrial()
}

func (c *Controller) endSession() {
	c.session.EndedAt = c.stamp()
	c.state = StateEnded
	c.buffer = nil
	record := copySession(*c.session)
	c.logger.Info("session ended", "participant", record.ParticipantID, "trials", len(record.Trials))
	if c.opts.Recorder != nil {
		if err := c.opts.Recorder.Record(context.Background(), record); err != nil {
			c.logger.Error("failed to record session", "participant", record.ParticipantID, "error", err)
		}
	}
	if c.opts.Observer != nil {
		c.opts.Observer.SessionEnded(record)
	}
}

// stamp returns the clock time, never earlier than the previous stamp.
func (c *Controller) stamp() time.Time {
	now := c.opts.Clock.Now()
	if now.Before(c.lastStamp) {
		now = c.lastStamp
	}
	c.lastStamp = now
	return now
}

func copyTrial(t model.Trial) model.Trial {
	t.Events = append([]model.InputEvent{}, t.Events...)
	return t
}

func copySession(s model.Session) model.Session {
	trials := make([]model.Trial, len(s.Trials))
	for i, t := range s.Trials {
		trials[i] = copyTrial(t)
	}
	s.Trials = trials
	return s
}
