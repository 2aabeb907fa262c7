package generation_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oceanbase/powerpersona-go/pkg/core"
	"github.com/oceanbase/powerpersona-go/pkg/generation"
	"github.com/oceanbase/powerpersona-go/pkg/llm"
)

type call struct {
	messages []llm.Message
	opts     *llm.GenerateOptions
}

// scriptedProvider answers every call with reply, or blocks until the
// context ends when block is set.
type scriptedProvider struct {
	mu    sync.Mutex
	reply string
	err   error
	block bool
	calls []call
}

func (p *scriptedProvider) Generate(ctx context.Context, prompt string, opts ...llm.GenerateOption) (string, error) {
	return p.GenerateWithMessages(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, opts...)
}

func (p *scriptedProvider) GenerateWithMessages(ctx context.Context, messages []llm.Message, opts ...llm.GenerateOption) (string, error) {
	p.mu.Lock()
	p.calls = append(p.calls, call{messages: messages, opts: llm.ApplyGenerateOptions(opts)})
	block, reply, err := p.block, p.reply, p.err
	p.mu.Unlock()

	if block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return reply, err
}

func (p *scriptedProvider) Close() error { return nil }

func (p *scriptedProvider) last(t *testing.T) call {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	require.NotEmpty(t, p.calls)
	return p.calls[len(p.calls)-1]
}

func (p *scriptedProvider) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

func shortTimeouts() core.GenerationTimeouts {
	return core.GenerationTimeouts{Summary: 0.02, Queries: 0.02, Reflection: 0.02, Plan: 0.02, Response: 0.02}
}

func TestSummarizeTranscript(t *testing.T) {
	ctx := context.Background()
	p := &scriptedProvider{reply: "People are  talking about ramen .\n"}
	g := generation.NewLLM(p, generation.Options{})

	out, err := g.SummarizeTranscript(ctx, []string{"jake: ramen?"}, "Your name is Mia.")
	require.NoError(t, err)
	assert.Equal(t, "People are talking about ramen.", out)

	c := p.last(t)
	require.Len(t, c.messages, 2)
	assert.Equal(t, "Your name is Mia.", c.messages[0].Content)
	assert.Contains(t, c.messages[1].Content, "jake: ramen?")
	assert.Equal(t, 300, c.opts.MaxTokens)
	assert.Equal(t, 0.7, c.opts.Temperature)

	out, err = g.SummarizeTranscript(ctx, nil, "ctx")
	require.NoError(t, err)
	assert.Equal(t, generation.EmptyTranscriptSummary, out)
	assert.Equal(t, 1, p.count())
}

func TestTimeoutFallbacks(t *testing.T) {
	ctx := context.Background()
	p := &scriptedProvider{block: true}
	g := generation.NewLLM(p, generation.Options{Timeouts: shortTimeouts()})

	summary, err := g.SummarizeTranscript(ctx, []string{"a: b"}, "")
	require.NoError(t, err)
	assert.Equal(t, generation.SummaryTimeoutFallback, summary)

	reflection, err := g.SummarizeIntoMemory(ctx, []string{"a: b"}, "persona")
	require.NoError(t, err)
	assert.Empty(t, reflection)

	queries, err := g.TranscriptQueries(ctx, []string{"a: b"})
	require.NoError(t, err)
	assert.NotNil(t, queries)
	assert.Empty(t, queries)

	queries, err = g.ResponseQueries(ctx, "plan", "summary", "persona", nil)
	require.NoError(t, err)
	assert.Empty(t, queries)

	_, err = g.MakePlan(ctx, "plan", "summary", nil, "channel", "persona")
	assert.ErrorIs(t, err, core.ErrGenerationFailed)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	_, err = g.Respond(ctx, generation.ResponseInput{Messages: []string{"a: b"}})
	assert.ErrorIs(t, err, core.ErrGenerationFailed)
}

func TestProviderErrorsPropagate(t *testing.T) {
	p := &scriptedProvider{err: errors.New("rate limited")}
	g := generation.NewLLM(p, generation.Options{})

	_, err := g.SummarizeTranscript(context.Background(), []string{"a: b"}, "")
	assert.ErrorIs(t, err, core.ErrGenerationFailed)

	var pe *core.PersonaError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "SummarizeTranscript", pe.Op)

	_, err = g.TranscriptQueries(context.Background(), []string{"a: b"})
	assert.ErrorIs(t, err, core.ErrGenerationFailed)
}

func TestQueries(t *testing.T) {
	p := &scriptedProvider{reply: "Query: ramen places\nQuery: Jake's cat"}
	g := generation.NewLLM(p, generation.Options{})

	out, err := g.TranscriptQueries(context.Background(), []string{"jake: my cat"})
	require.NoError(t, err)
	assert.Equal(t, []string{"ramen places", "Jakes cat"}, out)

	out, err = g.TranscriptQueries(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Equal(t, 1, p.count())

	_, err = g.ResponseQueries(context.Background(), "eat ramen", "quiet channel", "I am Jake", nil)
	require.NoError(t, err)
	c := p.last(t)
	assert.Contains(t, c.messages[0].Content, "I am Jake")
	assert.Contains(t, c.messages[0].Content, "eat ramen")
	assert.Contains(t, c.messages[0].Content, "quiet channel")
	assert.Equal(t, "No message at the moment.", c.messages[1].Content)
}

func TestRespond(t *testing.T) {
	p := &scriptedProvider{reply: `"haha yes"`}
	g := generation.NewLLM(p, generation.Options{})

	out, err := g.Respond(context.Background(), generation.ResponseInput{
		Plan:     "talk about games",
		Context:  "people are bored",
		Messages: []string{"mia: anyone?", "sam: hello"},
		Persona:  "I am Jake",
	})
	require.NoError(t, err)
	assert.Equal(t, "haha yes", out)

	c := p.last(t)
	assert.Equal(t, 70, c.opts.MaxTokens)
	assert.Equal(t, []string{"\n"}, c.opts.Stop)
	system := c.messages[0].Content
	assert.Contains(t, system, "No memories")
	assert.Contains(t, system, "No previous message.")
	assert.Contains(t, system, "people are bored")
	assert.True(t, strings.HasSuffix(c.messages[1].Content, "mia: anyone?\nsam: hello"))

	_, err = g.Respond(context.Background(), generation.ResponseInput{
		Memories:     []string{"Jake loves ramen"},
		LastMessages: []string{"gg"},
	})
	require.NoError(t, err)
	system = p.last(t).messages[0].Content
	assert.Contains(t, system, "Jake loves ramen")
	assert.Contains(t, system, "gg")
}

func TestMakePlanAndNewTopic(t *testing.T) {
	p := &scriptedProvider{reply: "Ask Mia about her art.\n"}
	g := generation.NewLLM(p, generation.Options{ResponseMaxTokens: 40})

	plan, err := g.MakePlan(context.Background(), "old plan", "summary", []string{"m1", "m2"}, "digest", "persona")
	require.NoError(t, err)
	assert.Equal(t, "Ask Mia about her art.", plan)
	system := p.last(t).messages[0].Content
	assert.Contains(t, system, "old plan")
	assert.Contains(t, system, "m1\nm2")
	assert.Contains(t, system, "digest")

	topic, err := g.NewTopic(context.Background(), "chat", "persona")
	require.NoError(t, err)
	assert.Equal(t, "Ask Mia about her art.", topic)
	assert.Equal(t, 40, p.last(t).opts.MaxTokens)
}

func TestPorts(t *testing.T) {
	ports := generation.NewLLM(&scriptedProvider{}, generation.Options{}).Ports()
	assert.True(t, ports.Complete())
	assert.False(t, generation.Ports{}.Complete())
}

func TestBotContext(t *testing.T) {
	now := time.Date(2024, 3, 9, 14, 5, 0, 0, time.UTC)
	assert.Equal(t,
		"Your name is Jake. It is 2024-03-09 14:05:00. You are currently on discord reading the channel General",
		generation.BotContext("Jake", "General", now))
}
