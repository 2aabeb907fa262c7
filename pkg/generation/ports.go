// Package generation defines the generation ports a persona calls into and
// their language-model implementation.
//
// Ports are fallible and may be slow. Callers supply their own fallback
// values; the LLM implementation additionally maps the timeouts of the
// summary, query and reflection calls to neutral defaults.
package generation

import "context"

// EmptyTranscriptSummary is the digest of a channel with no messages.
const EmptyTranscriptSummary = "Reading the discord conversation, I can observe that there is no messages at the moment. I should consider sparking a new topic."

// SummaryTimeoutFallback is returned when a transcript summary times out.
const SummaryTimeoutFallback = "Nothing seems to be happening here."

// Contextualizer turns message transcripts into prose.
type Contextualizer interface {
	// SummarizeTranscript writes a neutral first-person digest of messages.
	SummarizeTranscript(ctx context.Context, messages []string, botContext string) (string, error)

	// SummarizeIntoMemory writes a personal reflection on messages, biased by persona.
	SummarizeIntoMemory(ctx context.Context, messages []string, persona string) (string, error)
}

// QueryEngine derives memory lookup queries.
type QueryEngine interface {
	// TranscriptQueries derives neutral queries from messages alone.
	TranscriptQueries(ctx context.Context, messages []string) ([]string, error)

	// ResponseQueries derives queries from the persona's plan, the channel summary and personality.
	ResponseQueries(ctx context.Context, plan, summary, persona string, messages []string) ([]string, error)
}

// Planner revises the persona's plan.
type Planner interface {
	MakePlan(ctx context.Context, plan, summary string, memories []string, channelContext, persona string) (string, error)
}

// ResponseInput carries everything a reply is generated from.
type ResponseInput struct {
	Plan         string
	Context      string
	Memories     []string
	Messages     []string
	Persona      string
	LastMessages []string
}

// Responder writes chat messages.
type Responder interface {
	// Respond replies to in.Messages. An empty reply means stay silent.
	Respond(ctx context.Context, in ResponseInput) (string, error)

	// NewTopic starts a conversation out of nothing.
	NewTopic(ctx context.Context, plan, persona string) (string, error)
}

// Ports aggregates the four generation ports of a persona.
type Ports struct {
	Contextualizer Contextualizer
	QueryEngine    QueryEngine
	Planner        Planner
	Responder      Responder
}

// Complete reports whether every port is set.
func (p Ports) Complete() bool {
	return p.Contextualizer != nil && p.QueryEngine != nil && p.Planner != nil && p.Responder != nil
}
