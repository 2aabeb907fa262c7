package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oceanbase/powerpersona-go/pkg/core"
	"github.com/oceanbase/powerpersona-go/pkg/llm"
)

// Options tunes the LLM-backed ports.
type Options struct {
	// Temperature is passed to every call. Default: 0.7
	Temperature float64

	// MaxTokens caps summaries, reflections, queries and plans. Default: 300
	MaxTokens int

	// ResponseMaxTokens caps chat replies and new topics. Default: 70
	ResponseMaxTokens int

	// Timeouts bounds each kind of call.
	Timeouts core.GenerationTimeouts
}

// LLM implements every generation port on top of an llm.Provider.
type LLM struct {
	provider llm.Provider
	opts     Options
}

var (
	_ Contextualizer = (*LLM)(nil)
	_ QueryEngine    = (*LLM)(nil)
	_ Planner        = (*LLM)(nil)
	_ Responder      = (*LLM)(nil)
)

// NewLLM creates the LLM-backed ports. Zero options take their defaults.
func NewLLM(provider llm.Provider, opts Options) *LLM {
	if opts.Temperature == 0 {
		opts.Temperature = 0.7
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 300
	}
	if opts.ResponseMaxTokens <= 0 {
		opts.ResponseMaxTokens = 70
	}
	def := core.DefaultGenerationTimeouts()
	if opts.Timeouts.Summary <= 0 {
		opts.Timeouts.Summary = def.Summary
	}
	if opts.Timeouts.Queries <= 0 {
		opts.Timeouts.Queries = def.Queries
	}
	if opts.Timeouts.Reflection <= 0 {
		opts.Timeouts.Reflection = def.Reflection
	}
	if opts.Timeouts.Plan <= 0 {
		opts.Timeouts.Plan = def.Plan
	}
	if opts.Timeouts.Response <= 0 {
		opts.Timeouts.Response = def.Response
	}
	return &LLM{provider: provider, opts: opts}
}

// Ports returns l as all four ports.
func (l *LLM) Ports() Ports {
	return Ports{Contextualizer: l, QueryEngine: l, Planner: l, Responder: l}
}

func (l *LLM) generate(ctx context.Context, op string, timeout float64, system, prompt string, opts ...llm.GenerateOption) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, core.Seconds(timeout))
	defer cancel()

	messages := make([]llm.Message, 0, 2)
	if system != "" {
		messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: system})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: prompt})

	opts = append([]llm.GenerateOption{llm.WithTemperature(l.opts.Temperature), llm.WithMaxTokens(l.opts.MaxTokens)}, opts...)
	out, err := l.provider.GenerateWithMessages(ctx, messages, opts...)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = context.DeadlineExceeded
		}
		return "", core.NewPersonaError(op, fmt.Errorf("%w: %w", core.ErrGenerationFailed, err))
	}
	return out, nil
}

func isTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}

// SummarizeTranscript writes a neutral digest. A timeout yields
// SummaryTimeoutFallback; an empty transcript yields EmptyTranscriptSummary
// without a model call.
func (l *LLM) SummarizeTranscript(ctx context.Context, messages []string, botContext string) (string, error) {
	if len(messages) == 0 {
		return EmptyTranscriptSummary, nil
	}
	prompt := neutralBase + "\n\nThe transcript to write about immediately:\n" + strings.Join(messages, "\n")
	out, err := l.generate(ctx, "SummarizeTranscript", l.opts.Timeouts.Summary, botContext, prompt)
	if err != nil {
		if isTimeout(err) {
			return SummaryTimeoutFallback, nil
		}
		return "", err
	}
	return CleanOutput(out), nil
}

// SummarizeIntoMemory writes a reflection. A timeout yields "".
func (l *LLM) SummarizeIntoMemory(ctx context.Context, messages []string, persona string) (string, error) {
	prompt := engagedBase + "\n\nBased on your personality, here is transcript to reflection about:\n" + strings.Join(messages, "\n")
	out, err := l.generate(ctx, "SummarizeIntoMemory", l.opts.Timeouts.Reflection, persona, prompt)
	if err != nil {
		if isTimeout(err) {
			return "", nil
		}
		return "", err
	}
	return CleanOutput(out), nil
}

// TranscriptQueries derives neutral queries. No messages, no queries.
func (l *LLM) TranscriptQueries(ctx context.Context, messages []string) ([]string, error) {
	if len(messages) == 0 {
		return []string{}, nil
	}
	out, err := l.generate(ctx, "TranscriptQueries", l.opts.Timeouts.Queries, queryBase, strings.Join(messages, "\n"))
	if err != nil {
		if isTimeout(err) {
			return []string{}, nil
		}
		return nil, err
	}
	return SplitQueries(out), nil
}

// ResponseQueries derives queries in the persona's voice.
func (l *LLM) ResponseQueries(ctx context.Context, plan, summary, persona string, messages []string) ([]string, error) {
	if len(messages) == 0 {
		messages = []string{noMessages}
	}
	system := fmt.Sprintf("Your personality is as follows:\n%s\n\nYour current plan is:\n%s\n\nHere is the context from your notebook or diary:\n%s\n\n---\n\n%s",
		persona, plan, summary, queryBase)
	out, err := l.generate(ctx, "ResponseQueries", l.opts.Timeouts.Queries, system, strings.Join(messages, "\n"))
	if err != nil {
		if isTimeout(err) {
			return []string{}, nil
		}
		return nil, err
	}
	return SplitQueries(out), nil
}

// MakePlan writes the persona's next plan.
func (l *LLM) MakePlan(ctx context.Context, plan, summary string, memories []string, channelContext, persona string) (string, error) {
	system := fmt.Sprintf("%s\n\nChannel context:\n%s\n\nMy previous plan:\n%s\n\nMemories:\n%s",
		persona, channelContext, plan, strings.Join(memories, "\n"))
	prompt := plannerBase + "\n\nCurrent context:\n" + summary
	out, err := l.generate(ctx, "MakePlan", l.opts.Timeouts.Plan, system, prompt)
	if err != nil {
		return "", err
	}
	return CleanOutput(out), nil
}

// Respond writes a short chat reply. Generation stops at the first newline.
func (l *LLM) Respond(ctx context.Context, in ResponseInput) (string, error) {
	lastMsgs := noLastMessages
	if len(in.LastMessages) > 0 {
		lastMsgs = strings.Join(in.LastMessages, "\n")
	}
	memories := noMemories
	if len(in.Memories) > 0 {
		memories = strings.Join(in.Memories, "\n")
	}

	system := fmt.Sprintf("You are a Discord user with the following personality:\n%s\n\nWhat you were planning on doing:\n%s\n\nWhat you can remember:\n%s\n\n----\n\nThe last 5 messages your sent were:\n%s\n\n%s\n\n%s",
		in.Persona, in.Plan, memories, lastMsgs, in.Context, respondRules)
	out, err := l.generate(ctx, "Respond", l.opts.Timeouts.Response, system, "\n"+strings.Join(in.Messages, "\n"),
		llm.WithMaxTokens(l.opts.ResponseMaxTokens), llm.WithStop("\n"))
	if err != nil {
		return "", err
	}
	return CleanResponse(out), nil
}

// NewTopic writes a spontaneous opener.
func (l *LLM) NewTopic(ctx context.Context, plan, persona string) (string, error) {
	system := fmt.Sprintf("%s\n\nYou plan was to %s", persona, plan)
	out, err := l.generate(ctx, "NewTopic", l.opts.Timeouts.Response, system, newTopicPrompt,
		llm.WithMaxTokens(l.opts.ResponseMaxTokens))
	if err != nil {
		return "", err
	}
	return CleanResponse(out), nil
}

// BotContext is the situational system prompt of the transcript summary.
func BotContext(name, channel string, now time.Time) string {
	return fmt.Sprintf("Your name is %s. It is %s. You are currently on discord reading the channel %s",
		name, now.Format("2006-01-02 15:04:05"), channel)
}
