// Package client drives persona runtimes from the outside: a synchronous
// prompt client and a multi-persona simulation on a shared board.
package client

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/oceanbase/powerpersona-go/pkg/board"
	"github.com/oceanbase/powerpersona-go/pkg/core"
	"github.com/oceanbase/powerpersona-go/pkg/persona"
)

// PromptEvent is one message of a MultiPrompt call.
type PromptEvent struct {
	Message   string
	UserID    int64
	Username  string
	ChannelID int64
}

// PromptClient exchanges request/response turns with one persona.
//
// The persona should run in sequential mode so every prompt yields exactly
// one response.
type PromptClient struct {
	runtime *persona.Runtime
	board   *board.Board
	logger  *log.Entry
}

// NewPromptClient registers the persona on the board.
func NewPromptClient(rt *persona.Runtime, b *board.Board, logger *log.Logger) *PromptClient {
	if logger == nil {
		logger = log.StandardLogger()
	}
	id := rt.Identity()
	b.UpdateUser(id.UserID, id.Name)
	return &PromptClient{
		runtime: rt,
		board:   b,
		logger:  logger.WithFields(log.Fields{"client": "prompt", "persona": id.Name}),
	}
}

// Runtime returns the driven persona.
func (c *PromptClient) Runtime() *persona.Runtime {
	return c.runtime
}

// Start launches the persona routines.
func (c *PromptClient) Start(ctx context.Context) error {
	c.logger.Info("Agent-Client: Starting agent routines")
	return c.runtime.Start(ctx)
}

// Stop stops the persona and waits for its routines.
func (c *PromptClient) Stop() error {
	c.logger.Info("Agent-Client: Stopping agent")
	c.runtime.Stop()
	return c.runtime.Wait()
}

// Prompt posts text as username and waits for the persona's reply.
func (c *PromptClient) Prompt(ctx context.Context, text string, userID int64, username string, channelID int64) (string, error) {
	return c.MultiPrompt(ctx, []PromptEvent{{
		Message:   text,
		UserID:    userID,
		Username:  username,
		ChannelID: channelID,
	}})
}

// MultiPrompt posts every event and waits for a single reply to the batch.
// The respond routine is held while the batch is enqueued.
func (c *PromptClient) MultiPrompt(ctx context.Context, events []PromptEvent) (string, error) {
	if len(events) == 0 {
		return "", core.NewPersonaError("MultiPrompt", fmt.Errorf("%w: no events", core.ErrInvalidInput))
	}

	c.runtime.LockResponse(true)
	accepted := 0
	for _, pe := range events {
		ev := core.Event{
			ChannelID:   pe.ChannelID,
			AuthorID:    pe.UserID,
			DisplayName: pe.Username,
			Content:     pe.Message,
		}
		c.board.UpdateUser(pe.UserID, pe.Username)
		if _, err := c.board.AddMessage(ev); err != nil {
			c.runtime.LockResponse(false)
			return "", err
		}
		if c.runtime.AddEvent(ev) {
			accepted++
		}
		c.logger.Debugf("Agent-Client: Event added: [%s] -> %q", pe.Username, pe.Message)
	}
	c.runtime.LockResponse(false)

	if accepted == 0 {
		return "", core.NewPersonaError("MultiPrompt", fmt.Errorf("%w: the persona is not monitoring channel %d", core.ErrInvalidInput, events[0].ChannelID))
	}

	resp, err := c.runtime.Responses().Get(ctx)
	if err != nil {
		return "", core.NewPersonaError("MultiPrompt", err)
	}
	if resp.Text != "" {
		id := c.runtime.Identity()
		if _, err := c.board.AddMessage(core.Event{
			ChannelID:   resp.ChannelID,
			AuthorID:    id.UserID,
			DisplayName: id.Name,
			Content:     resp.Text,
		}); err != nil {
			c.logger.WithError(err).Warn("Agent-Client: Could not post reply")
		}
	}
	c.logger.Infof("Agent-Client: Response: %q", resp.Text)
	return resp.Text, nil
}
