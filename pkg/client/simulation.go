package client

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/oceanbase/powerpersona-go/pkg/board"
	"github.com/oceanbase/powerpersona-go/pkg/core"
	"github.com/oceanbase/powerpersona-go/pkg/persona"
)

// SimulationOptions configures a Simulation.
type SimulationOptions struct {
	// Duration bounds the run. Zero runs until the context is cancelled.
	Duration time.Duration

	// OpeningMessage is posted by a random persona to start the conversation.
	// Empty posts nothing.
	OpeningMessage string

	// ChannelID is where the opening message is posted.
	ChannelID int64

	// Throttle is the minimum time between two posts of the same persona.
	Throttle time.Duration

	// OnMessage is called after every post, in posting order.
	OnMessage func(core.Event)

	// Rand picks the opening author.
	Rand *rand.Rand
}

// Simulation runs several personas against one board. Every post is fanned
// out to every persona; replies are posted back through a per-persona rate
// limiter.
type Simulation struct {
	id       string
	board    *board.Board
	runtimes []*persona.Runtime
	opts     SimulationOptions
	logger   *log.Entry

	mu         sync.Mutex
	transcript []core.Event
}

// NewSimulation registers every persona on the board.
func NewSimulation(b *board.Board, runtimes []*persona.Runtime, opts SimulationOptions, logger *log.Logger) *Simulation {
	if logger == nil {
		logger = log.StandardLogger()
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	for _, rt := range runtimes {
		id := rt.Identity()
		b.UpdateUser(id.UserID, id.Name)
	}
	runID := uuid.NewString()
	return &Simulation{
		id:       runID,
		board:    b,
		runtimes: runtimes,
		opts:     opts,
		logger:   logger.WithField("run_id", runID),
	}
}

// ID returns the run id.
func (s *Simulation) ID() string {
	return s.id
}

// Transcript returns every message posted during the run.
func (s *Simulation) Transcript() []core.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Event(nil), s.transcript...)
}

// Post adds ev to the board and delivers it to every persona.
func (s *Simulation) Post(ev core.Event) error {
	if _, err := s.board.AddMessage(ev); err != nil {
		return err
	}
	delivered := 0
	for _, rt := range s.runtimes {
		if rt.AddEvent(ev) {
			delivered++
		}
	}

	s.mu.Lock()
	s.transcript = append(s.transcript, ev)
	if s.opts.OnMessage != nil {
		s.opts.OnMessage(ev)
	}
	s.mu.Unlock()

	s.logger.Debugf("Agent-Client: [%s] %s (delivered to %d)", ev.DisplayName, ev.Content, delivered)
	return nil
}

// Run starts every persona, seeds the opening message and relays replies
// until the duration elapses or ctx is cancelled. Every persona is stopped
// and awaited before Run returns.
func (s *Simulation) Run(ctx context.Context) error {
	if len(s.runtimes) == 0 {
		return core.NewPersonaError("Simulation.Run", errors.New("no personas"))
	}
	if s.opts.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Duration)
		defer cancel()
	}

	started := make([]*persona.Runtime, 0, len(s.runtimes))
	defer func() {
		for _, rt := range started {
			rt.Stop()
		}
		for _, rt := range started {
			if err := rt.Wait(); err != nil {
				s.logger.WithError(err).Warn("Agent-Client: Persona did not stop cleanly")
			}
		}
	}()
	for _, rt := range s.runtimes {
		if err := rt.Start(ctx); err != nil {
			return err
		}
		started = append(started, rt)
	}
	s.logger.Infof("Agent-Client: %d personas started", len(started))

	if s.opts.OpeningMessage != "" {
		author := s.runtimes[s.opts.Rand.Intn(len(s.runtimes))].Identity()
		if err := s.Post(core.Event{
			ChannelID:   s.opts.ChannelID,
			AuthorID:    author.UserID,
			DisplayName: author.Name,
			Content:     s.opts.OpeningMessage,
		}); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, rt := range s.runtimes {
		rt := rt
		g.Go(func() error { return s.relay(gctx, rt) })
	}
	err := g.Wait()
	s.logger.Infof("Agent-Client: Simulation finished with %d messages", len(s.Transcript()))
	return err
}

func (s *Simulation) relay(ctx context.Context, rt *persona.Runtime) error {
	limit := rate.Inf
	if s.opts.Throttle > 0 {
		limit = rate.Every(s.opts.Throttle)
	}
	limiter := rate.NewLimiter(limit, 1)
	id := rt.Identity()

	for {
		resp, err := rt.Responses().Get(ctx)
		if err != nil {
			return nil
		}
		if resp.Text == "" {
			continue
		}
		if err := limiter.Wait(ctx); err != nil {
			return nil
		}
		if err := s.Post(core.Event{
			ChannelID:   resp.ChannelID,
			AuthorID:    id.UserID,
			DisplayName: id.Name,
			Content:     resp.Text,
		}); err != nil {
			s.logger.WithError(err).Warn("Agent-Client: Could not post reply")
		}
	}
}
