// Package core provides the configuration, errors and shared domain types of PowerPersona.
package core

import "fmt"

// Event is a single inbound chat message delivered to a persona.
//
// Events are produced by the message board integration and consumed exactly once by a
// persona runtime. They are never mutated after creation.
//
// Example:
//
//	ev := core.Event{
//	    ChannelID:   1,
//	    AuthorID:    42,
//	    DisplayName: "alice",
//	    Content:     "has anyone tried the new ramen place?",
//	}
type Event struct {
	// ChannelID is the channel the message was posted in.
	ChannelID int64 `json:"channel_id" yaml:"channel_id"`

	// AuthorID is the user id of the author.
	AuthorID int64 `json:"author_id" yaml:"author_id"`

	// DisplayName is the author's name at the time of posting.
	DisplayName string `json:"display_name" yaml:"display_name"`

	// Content is the raw message text.
	Content string `json:"content" yaml:"content"`
}

// Response is an outbound reply produced by a persona, tagged with the channel it targets.
//
// An empty Text means the persona decided to stay silent.
type Response struct {
	Text      string `json:"text"`
	ChannelID int64  `json:"channel_id"`
}

// DocumentKind classifies every entry of a persona's memory store.
type DocumentKind string

const (
	// KindMemory is a reflection produced from processed messages.
	KindMemory DocumentKind = "MEMORY"

	// KindPlan is a plan produced by the plan routine.
	KindPlan DocumentKind = "PLAN"

	// KindFormerPlan is a plan that has been superseded.
	KindFormerPlan DocumentKind = "FORMER_PLAN"

	// KindKnowledge is background knowledge seeded from the persona's archetype.
	KindKnowledge DocumentKind = "KNOWLEDGE"
)

// Valid reports whether k is one of the known document kinds.
func (k DocumentKind) Valid() bool {
	switch k {
	case KindMemory, KindPlan, KindFormerPlan, KindKnowledge:
		return true
	}
	return false
}

// ParseDocumentKind converts a string to a DocumentKind.
//
// The legacy spelling "FORMER-PLAN" is accepted for FORMER_PLAN.
func ParseDocumentKind(s string) (DocumentKind, error) {
	if s == "FORMER-PLAN" {
		return KindFormerPlan, nil
	}
	k := DocumentKind(s)
	if !k.Valid() {
		return "", NewPersonaError("ParseDocumentKind", fmt.Errorf("%w: %q", ErrInvalidKind, s))
	}
	return k, nil
}
