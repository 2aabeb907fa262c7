// Package persona implements the concurrent runtime of one chat persona.
//
// A Runtime owns three routines started by Start: respond (reads the event
// queue and replies), plan (periodically revises the plan) and memory
// (periodically folds processed messages into reflections). They share an
// event queue, a response queue, a processed-message queue, the plan and the
// monitored channel. All shared state is guarded by the runtime mutex.
package persona

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/oceanbase/powerpersona-go/pkg/archetype"
	"github.com/oceanbase/powerpersona-go/pkg/board"
	"github.com/oceanbase/powerpersona-go/pkg/core"
	"github.com/oceanbase/powerpersona-go/pkg/eventlog"
	"github.com/oceanbase/powerpersona-go/pkg/generation"
)

// Board is the read side of the message board used by a persona.
type Board interface {
	GetChannel(id int64) (board.Channel, bool)
	GetMessages(id int64) []string
	FormatMessage(ev core.Event) string
	Channels() []int64
}

// MemoryStore is the persona's long-term memory.
type MemoryStore interface {
	AddDocument(ctx context.Context, text string, kind core.DocumentKind, ts time.Time) error
	QueryMultiple(ctx context.Context, queries []string, n int) ([]string, error)
	GetLastN(kind core.DocumentKind, n int) []string
	Len() int
}

// Identity describes who a persona is.
type Identity struct {
	// UserID is the persona's author id on the board.
	UserID int64

	// Name is the display name.
	Name string

	// Description is the persona description passed to every generation call.
	Description string

	// PersistenceID names the persona's persistence and event files.
	PersistenceID string

	// Knowledge seeds an empty memory store.
	Knowledge []string
}

// IdentityFromArchetype builds an Identity from a catalogue profile.
func IdentityFromArchetype(userID int64, a *archetype.Archetype, persistenceID string) Identity {
	return Identity{
		UserID:        userID,
		Name:          a.Name,
		Description:   a.Prompt(),
		PersistenceID: persistenceID,
		Knowledge:     append([]string(nil), a.Knowledge...),
	}
}

// Runtime is one running persona.
type Runtime struct {
	cfg      core.PersonaConfig
	id       Identity
	board    Board
	store    MemoryStore
	ports    generation.Ports
	recorder eventlog.Recorder
	logger   *log.Entry
	now      func() time.Time

	rngMu sync.Mutex
	rng   *rand.Rand

	events    *Queue[core.Event]
	responses *Queue[core.Response]
	processed *Queue[string]

	// tickMu is held for a whole Tick so that a lock taken by LockResponse
	// never lands between the lock check and the queue drain.
	tickMu sync.Mutex

	mu           sync.Mutex
	plan         string
	monitoring   int64
	memoryCount  int
	running      bool
	lockQueue    bool
	lockResponse bool
	readOnly     bool
	lastActivity time.Time
	lastMessages []string

	group    *errgroup.Group
	stopped  chan struct{}
	stopOnce sync.Once
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithRand sets the random source of every randomised decision.
func WithRand(rng *rand.Rand) Option {
	return func(r *Runtime) {
		if rng != nil {
			r.rng = rng
		}
	}
}

// WithLogger sets the base logger.
func WithLogger(logger *log.Logger) Option {
	return func(r *Runtime) {
		if logger != nil {
			r.logger = log.NewEntry(logger)
		}
	}
}

// WithRecorder sets the generation call recorder.
func WithRecorder(rec eventlog.Recorder) Option {
	return func(r *Runtime) {
		if rec != nil {
			r.recorder = rec
		}
	}
}

// WithClock overrides the clock used for idle tracking and bot context.
func WithClock(now func() time.Time) Option {
	return func(r *Runtime) {
		if now != nil {
			r.now = now
		}
	}
}

// New creates a stopped runtime.
//
// The monitored channel is cfg.ChannelID when the board knows it, otherwise
// a random board channel. The plan is the latest persisted PLAN document, or
// cfg.BasePlan.
func New(cfg core.PersonaConfig, id Identity, b Board, store MemoryStore, ports generation.Ports, opts ...Option) (*Runtime, error) {
	if b == nil || store == nil {
		return nil, core.NewPersonaError("persona.New", fmt.Errorf("%w: board and store are required", core.ErrInvalidInput))
	}
	if !ports.Complete() {
		return nil, core.NewPersonaError("persona.New", fmt.Errorf("%w: every generation port is required", core.ErrInvalidInput))
	}
	if cfg.PlanEvery <= 0 || cfg.ReflectionBatch <= 0 || cfg.LastMessages <= 0 {
		return nil, core.NewPersonaError("persona.New", fmt.Errorf("%w: plan_every, reflection_batch and last_messages must be positive", core.ErrInvalidConfig))
	}

	r := &Runtime{
		cfg:       cfg,
		id:        id,
		board:     b,
		store:     store,
		ports:     ports,
		recorder:  eventlog.Nop{},
		logger:    log.NewEntry(log.StandardLogger()),
		now:       time.Now,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		events:    NewQueue[core.Event](),
		responses: NewQueue[core.Response](),
		processed: NewQueue[string](),
		stopped:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.WithFields(log.Fields{
		"persona":        id.Name,
		"persistence_id": id.PersistenceID,
	})

	channels := b.Channels()
	if _, ok := b.GetChannel(cfg.ChannelID); ok && cfg.ChannelID != 0 {
		r.monitoring = cfg.ChannelID
	} else if len(channels) > 0 {
		r.monitoring = channels[r.intn(len(channels))]
	} else {
		return nil, core.NewPersonaError("persona.New", fmt.Errorf("%w: the board has no channels", core.ErrUnknownChannel))
	}

	r.plan = cfg.BasePlan
	if last := store.GetLastN(core.KindPlan, 1); len(last) == 1 && last[0] != "" {
		r.plan = last[0]
		r.logger.Info("Agent-Info: Restored plan from memory")
	}
	r.lastActivity = r.now()
	r.logger.Info("Agent-Info: Agent configs loaded")
	return r, nil
}

// Start seeds knowledge into an empty store and launches the three routines.
// Port calls run under ctx; cancelling ctx also stops the runtime.
func (r *Runtime) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running || r.group != nil {
		r.mu.Unlock()
		return core.NewPersonaError("Start", fmt.Errorf("%w: already started", core.ErrInvalidInput))
	}
	select {
	case <-r.stopped:
		r.mu.Unlock()
		return core.NewPersonaError("Start", fmt.Errorf("%w: already stopped", core.ErrInvalidInput))
	default:
	}
	r.running = true
	r.lastActivity = r.now()
	r.mu.Unlock()

	r.seedKnowledge(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return r.respondRoutine(gctx) })
	g.Go(func() error { return r.planRoutine(gctx) })
	g.Go(func() error { return r.memoryRoutine(gctx) })

	r.mu.Lock()
	r.group = g
	r.mu.Unlock()
	r.logger.Info("Agent-Info: Routines started")
	return nil
}

func (r *Runtime) seedKnowledge(ctx context.Context) {
	if len(r.id.Knowledge) == 0 || r.store.Len() > 0 {
		return
	}
	for _, k := range r.id.Knowledge {
		if err := r.store.AddDocument(ctx, k, core.KindKnowledge, time.Time{}); err != nil {
			r.logger.WithError(err).Warn("Agent-Info: Could not seed knowledge")
			return
		}
	}
	r.logger.Infof("Agent-Info: Seeded %d knowledge documents", len(r.id.Knowledge))
}

// Stop asks every routine to exit at its next check. In-flight port calls
// complete.
func (r *Runtime) Stop() {
	r.mu.Lock()
	r.running = false
	r.mu.Unlock()
	r.stopOnce.Do(func() { close(r.stopped) })
}

// Wait blocks until the routines have exited.
func (r *Runtime) Wait() error {
	r.mu.Lock()
	g := r.group
	r.mu.Unlock()
	if g == nil {
		return nil
	}
	return g.Wait()
}

// AddEvent enqueues ev when the persona did not author it, monitors its
// channel and is not switching channels. It reports whether ev was queued.
func (r *Runtime) AddEvent(ev core.Event) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ev.AuthorID == r.id.UserID || ev.ChannelID != r.monitoring || r.lockQueue {
		return false
	}
	r.events.Put(ev)
	r.logger.Debug("Agent-Info: Added event in event queue")
	return true
}

// LockResponse suspends (true) or resumes (false) the respond routine.
// It waits for an in-flight tick to finish.
func (r *Runtime) LockResponse(locked bool) {
	r.tickMu.Lock()
	defer r.tickMu.Unlock()
	r.mu.Lock()
	r.lockResponse = locked
	r.mu.Unlock()
}

// SetReadOnly makes the persona read without replying.
func (r *Runtime) SetReadOnly(readOnly bool) {
	r.mu.Lock()
	r.readOnly = readOnly
	r.mu.Unlock()
}

// SetMonitoringChannel moves the persona to a board channel.
func (r *Runtime) SetMonitoringChannel(id int64) error {
	if _, ok := r.board.GetChannel(id); !ok {
		return core.NewPersonaError("SetMonitoringChannel", core.ErrUnknownChannel)
	}
	r.mu.Lock()
	r.monitoring = id
	r.mu.Unlock()
	return nil
}

// Identity returns who the persona is.
func (r *Runtime) Identity() Identity { return r.id }

// Events returns the inbound event queue.
func (r *Runtime) Events() *Queue[core.Event] { return r.events }

// Responses returns the outbound response queue.
func (r *Runtime) Responses() *Queue[core.Response] { return r.responses }

// Processed returns the processed-message queue.
func (r *Runtime) Processed() *Queue[string] { return r.processed }

// Plan returns the current plan.
func (r *Runtime) Plan() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.plan
}

// MonitoringChannel returns the monitored channel id.
func (r *Runtime) MonitoringChannel() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.monitoring
}

// MemoryCount returns the number of documents the routines stored since start.
func (r *Runtime) MemoryCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.memoryCount
}

// Running reports whether the runtime has been started and not stopped.
func (r *Runtime) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// QueueLocked reports whether AddEvent currently rejects events.
func (r *Runtime) QueueLocked() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lockQueue
}

// ResponseLocked reports whether the respond routine is suspended.
func (r *Runtime) ResponseLocked() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lockResponse
}

// LastMessages returns the persona's most recent non-empty replies, oldest first.
func (r *Runtime) LastMessages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lastMessages...)
}

func (r *Runtime) setLockQueue(locked bool) {
	r.mu.Lock()
	r.lockQueue = locked
	r.mu.Unlock()
}

func (r *Runtime) touch() {
	r.mu.Lock()
	r.lastActivity = r.now()
	r.mu.Unlock()
}

func (r *Runtime) rememberReply(reply string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastMessages = append(r.lastMessages, reply)
	if over := len(r.lastMessages) - r.cfg.LastMessages; over > 0 {
		r.lastMessages = append([]string(nil), r.lastMessages[over:]...)
	}
}

func (r *Runtime) randFloat() float64 {
	r.rngMu.Lock()
	defer r.rngMu.Unlock()
	return r.rng.Float64()
}

func (r *Runtime) intn(n int) int {
	r.rngMu.Lock()
	defer r.rngMu.Unlock()
	return r.rng.Intn(n)
}

func (r *Runtime) uniform(lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + r.randFloat()*(hi-lo)
}

func (r *Runtime) substate() Substate {
	r.rngMu.Lock()
	defer r.rngMu.Unlock()
	return ChooseSubstate(r.rng, r.cfg.SubstateWeights)
}

// sleep waits d and reports whether the routine should keep going.
func (r *Runtime) sleep(ctx context.Context, d time.Duration) bool {
	if !r.Running() || ctx.Err() != nil {
		return false
	}
	if d > 0 {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return false
		case <-r.stopped:
			return false
		case <-t.C:
		}
	}
	return r.Running() && ctx.Err() == nil
}
