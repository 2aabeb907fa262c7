package persona

import (
	"context"

	"github.com/oceanbase/powerpersona-go/pkg/core"
	"github.com/oceanbase/powerpersona-go/pkg/eventlog"
	"github.com/oceanbase/powerpersona-go/pkg/generation"
)

const selfPrefix = "[Me] "

func (r *Runtime) respondRoutine(ctx context.Context) error {
	for r.Running() && ctx.Err() == nil {
		worked := r.Tick(ctx)

		pause := core.Seconds(r.cfg.PollInterval)
		if worked && !r.cfg.SequentialMode {
			pause = core.Seconds(r.cfg.MessageThrottle) + core.Seconds(r.uniform(0, r.cfg.MaxRandomResponseDelay))
		}
		if !r.sleep(ctx, pause) {
			break
		}
	}
	r.logger.Info("Agent-Routine: Respond routine stopped")
	return nil
}

// Tick runs one respond routine step and reports whether it did any work.
func (r *Runtime) Tick(ctx context.Context) bool {
	r.tickMu.Lock()
	defer r.tickMu.Unlock()

	r.mu.Lock()
	locked, readOnly := r.lockResponse, r.readOnly
	idleFor := r.now().Sub(r.lastActivity)
	r.mu.Unlock()
	if locked {
		return false
	}

	queued := r.events.Len()
	if r.cfg.SequentialMode {
		if queued == 0 {
			return false
		}
		r.processBatch(ctx)
		r.touch()
		return true
	}

	state := NextState(queued, readOnly, idleFor, core.Seconds(r.cfg.IdleThreshold))
	switch state {
	case StateIdle:
		return false

	case StateInitiatingTopic:
		return r.initiateTopic(ctx)

	case StateReadOnly:
		r.readOnlyDrain()
		r.touch()
		return true
	}

	if r.randFloat() < r.cfg.ChannelSwitchProbability {
		r.switchChannel(ctx)
	}

	sub := r.substate()
	switch sub {
	case SubstateBatch:
		r.processBatch(ctx)
	case SubstateOnlyRead:
		r.readOnlyDrain()
	case SubstateIgnore:
		r.ignore()
	}
	r.logger.Infof("Agent-State: Type of read: %s", sub)
	r.touch()
	return true
}

// switchChannel moves to another board channel. AddEvent rejects events
// until the switch, including the optional new topic, has completed.
func (r *Runtime) switchChannel(ctx context.Context) {
	current := r.MonitoringChannel()
	others := make([]int64, 0)
	for _, id := range r.board.Channels() {
		if id != current {
			others = append(others, id)
		}
	}
	if len(others) == 0 {
		r.logger.Debug("Agent-Channel: No other channel to switch to")
		return
	}

	r.setLockQueue(true)
	defer r.setLockQueue(false)

	r.readOnlyDrain()
	next := others[r.intn(len(others))]
	r.mu.Lock()
	r.monitoring = next
	r.mu.Unlock()

	name := ""
	if ch, ok := r.board.GetChannel(next); ok {
		name = ch.Name
	}
	r.logger.Infof("Agent-Channel: Switched to channel: %s (%d)", name, next)

	if r.cfg.TopicOnSwitch {
		r.postTopic(ctx, next)
	}
}

// initiateTopic starts a conversation in a quiet channel. When the persona
// wrote the channel's last message it usually stays silent instead.
func (r *Runtime) initiateTopic(ctx context.Context) bool {
	defer r.touch()

	channelID := r.MonitoringChannel()
	if ch, ok := r.board.GetChannel(channelID); ok && ch.LastAuthorID == r.id.UserID {
		if r.randFloat() < r.cfg.SelfTopicAbortProbability {
			r.logger.Debug("Agent-State: Last message is mine, not starting a topic")
			return false
		}
	}
	return r.postTopic(ctx, channelID)
}

func (r *Runtime) postTopic(ctx context.Context, channelID int64) bool {
	plan := r.Plan()
	topic, err := r.ports.Responder.NewTopic(ctx, plan, r.id.Description)
	if err != nil {
		r.logger.WithError(err).Warn("Agent-Output: New topic generation failed")
		topic = ""
	}
	r.recorder.Record(eventlog.KeyTopics, []string{plan, r.id.Description}, topic)
	if topic == "" {
		return false
	}
	r.responses.Put(core.Response{Text: topic, ChannelID: channelID})
	r.processed.Put(selfPrefix + topic)
	r.logger.Infof("Agent-Output: Created new topic: %s", topic)
	return true
}

func (r *Runtime) processBatch(ctx context.Context) {
	batch := r.events.Drain()
	if len(batch) == 0 {
		return
	}
	r.logger.Infof("Agent-Info: Processing %d elements from the event queue", len(batch))
	r.processMessages(ctx, batch)
}

func (r *Runtime) readOnlyDrain() {
	for _, ev := range r.events.Drain() {
		r.processed.Put(r.board.FormatMessage(ev))
		r.logger.Debugf("Agent-Info: Processing message from %s (read-only)", ev.DisplayName)
	}
}

func (r *Runtime) ignore() {
	if _, ok := r.events.TryGet(); ok {
		r.logger.Debug("Agent-Info: Ignoring message in event queue")
	}
}

// processMessages runs the generation pipeline over events and queues
// exactly one response, possibly empty.
func (r *Runtime) processMessages(ctx context.Context, events []core.Event) {
	formatted := make([]string, len(events))
	for i, ev := range events {
		formatted[i] = r.board.FormatMessage(ev)
	}

	plan := r.Plan()
	summary := r.channelContext(ctx, r.MonitoringChannel())
	memories := r.responseMemories(ctx, plan, summary, formatted)

	in := generation.ResponseInput{
		Plan:         plan,
		Context:      summary,
		Memories:     memories,
		Messages:     formatted,
		Persona:      r.id.Description,
		LastMessages: r.LastMessages(),
	}
	reply, err := r.ports.Responder.Respond(ctx, in)
	if err != nil {
		r.logger.WithError(err).Warn("Agent-Output: Response generation failed")
		reply = ""
	}
	r.recorder.Record(eventlog.KeyResponse, in, reply)
	if reply != "" {
		r.rememberReply(reply)
	}

	r.responses.Put(core.Response{Text: reply, ChannelID: events[0].ChannelID})
	for _, msg := range formatted {
		r.processed.Put(msg)
	}
	if reply != "" && r.cfg.TraceOwnReplies {
		r.processed.Put(selfPrefix + reply)
	}
}

func (r *Runtime) botContext(channelID int64) string {
	name := ""
	if ch, ok := r.board.GetChannel(channelID); ok {
		name = ch.Name
	}
	return generation.BotContext(r.id.Name, name, r.now())
}

// channelContext summarises the channel window. An empty window is answered
// without a port call.
func (r *Runtime) channelContext(ctx context.Context, channelID int64) string {
	msgs := r.board.GetMessages(channelID)
	if len(msgs) == 0 {
		return generation.EmptyTranscriptSummary
	}
	botCtx := r.botContext(channelID)
	summary, err := r.ports.Contextualizer.SummarizeTranscript(ctx, msgs, botCtx)
	if err != nil {
		r.logger.WithError(err).Warn("Agent-Output: Context summary failed")
		summary = ""
	}
	r.recorder.Record(eventlog.KeyNeutralContexts, []any{msgs, botCtx}, summary)
	return summary
}

func (r *Runtime) neutralQueries(ctx context.Context, channelID int64) []string {
	msgs := r.board.GetMessages(channelID)
	queries, err := r.ports.QueryEngine.TranscriptQueries(ctx, msgs)
	if err != nil {
		r.logger.WithError(err).Warn("Agent-Output: Context query generation failed")
		queries = []string{}
	}
	r.recorder.Record(eventlog.KeyContextQueries, msgs, queries)
	return queries
}

func (r *Runtime) responseMemories(ctx context.Context, plan, summary string, messages []string) []string {
	queries, err := r.ports.QueryEngine.ResponseQueries(ctx, plan, summary, r.id.Description, messages)
	if err != nil {
		r.logger.WithError(err).Warn("Agent-Output: Response query generation failed")
		queries = []string{}
	}
	r.recorder.Record(eventlog.KeyResponseQueries, []any{plan, summary, r.id.Description, messages}, queries)
	return r.lookup(ctx, queries)
}

func (r *Runtime) lookup(ctx context.Context, queries []string) []string {
	memories, err := r.store.QueryMultiple(ctx, queries, 0)
	if err != nil {
		r.logger.WithError(err).Warn("Agent-Output: Memory lookup failed")
		memories = []string{}
	}
	r.recorder.Record(eventlog.KeyMemories, queries, memories)
	return memories
}

