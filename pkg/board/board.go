// Package board implements the virtual message board shared by all personas of a process.
//
// The board tracks channels, user display names and a bounded window of the
// most recent formatted messages per channel. Personas read it; only the
// surrounding integration (prompt client, simulation, gateway) mutates it.
package board

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/bwmarrin/snowflake"

	"github.com/oceanbase/powerpersona-go/pkg/core"
)

// DefaultMessageWindow is the number of recent messages kept per channel.
const DefaultMessageWindow = 15

var mentionPattern = regexp.MustCompile(`<@!?(\d+)>`)

// Channel is a read-only view of a board channel.
type Channel struct {
	ID            int64
	Name          string
	LastAuthorID  int64
	LastMessageID int64
}

type channel struct {
	Channel
	// messages is a ring of the last window formatted messages; head is the oldest.
	messages []string
	head     int
}

func (c *channel) push(msg string, window int) {
	if len(c.messages) < window {
		c.messages = append(c.messages, msg)
		return
	}
	c.messages[c.head] = msg
	c.head = (c.head + 1) % window
}

func (c *channel) ordered() []string {
	out := make([]string, 0, len(c.messages))
	out = append(out, c.messages[c.head:]...)
	return append(out, c.messages[:c.head]...)
}

// Board is a goroutine-safe message board.
type Board struct {
	window int
	node   *snowflake.Node

	mu       sync.RWMutex
	channels map[int64]*channel
	users    map[int64]string
}

// New creates a board keeping window messages per channel
// (DefaultMessageWindow when window <= 0).
func New(window int) *Board {
	if window <= 0 {
		window = DefaultMessageWindow
	}
	// Node 0 is always valid.
	node, _ := snowflake.NewNode(0)
	return &Board{
		window:   window,
		node:     node,
		channels: make(map[int64]*channel),
		users:    make(map[int64]string),
	}
}

// AddChannel registers a channel or renames an existing one.
func (b *Board) AddChannel(id int64, name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if c, ok := b.channels[id]; ok {
		c.Name = name
		return
	}
	b.channels[id] = &channel{Channel: Channel{ID: id, Name: name}}
}

// RemoveChannel unregisters a channel and drops its messages.
func (b *Board) RemoveChannel(id int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.channels, id)
}

// UpdateUser records the display name used to render mentions of id.
func (b *Board) UpdateUser(id int64, name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.users[id] = name
}

// AddMessage formats ev, appends it to its channel window, records the
// author and returns the new message id.
func (b *Board) AddMessage(ev core.Event) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, ok := b.channels[ev.ChannelID]
	if !ok {
		return 0, core.NewPersonaError("AddMessage", core.ErrUnknownChannel)
	}
	c.push(b.format(ev), b.window)
	c.LastAuthorID = ev.AuthorID
	c.LastMessageID = b.node.Generate().Int64()
	return c.LastMessageID, nil
}

// GetChannel returns the channel with id.
func (b *Board) GetChannel(id int64) (Channel, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	c, ok := b.channels[id]
	if !ok {
		return Channel{}, false
	}
	return c.Channel, true
}

// GetMessages returns the recent formatted messages of a channel, oldest first.
// An unknown channel has no messages.
func (b *Board) GetMessages(id int64) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	c, ok := b.channels[id]
	if !ok {
		return []string{}
	}
	return c.ordered()
}

// Channels returns the registered channel ids in ascending order.
func (b *Board) Channels() []int64 {
	b.mu.RLock()
	ids := make([]int64, 0, len(b.channels))
	for id := range b.channels {
		ids = append(ids, id)
	}
	b.mu.RUnlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// FormatMessage renders ev as "<display>: <content>" with newlines flattened
// and user mentions replaced by "@name".
func (b *Board) FormatMessage(ev core.Event) string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.format(ev)
}

func (b *Board) format(ev core.Event) string {
	content := strings.ReplaceAll(ev.Content, "\n", " ")
	content = mentionPattern.ReplaceAllStringFunc(content, func(m string) string {
		id, err := strconv.ParseInt(mentionPattern.FindStringSubmatch(m)[1], 10, 64)
		if err != nil {
			return m
		}
		if name, ok := b.users[id]; ok {
			return "@" + name
		}
		return m
	})
	return ev.DisplayName + ": " + content
}
