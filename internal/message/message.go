// Package message holds the single message slot operators see command
// outcomes in. Only the most recent message is observable.
package message

import (
	"sync"

	"dartdash/internal/format"
)

const (
	TitleDone  = "Done"
	TitleError = "Error"
)

// Message is one operator-facing notice.
type Message struct {
	Title string
	Body  string
	Tier  format.Tier
}

// Done builds a success message.
func Done(body string) Message {
	return Message{Title: TitleDone, Body: body, Tier: format.TierNominal}
}

// Failure builds an error message.
func Failure(body string) Message {
	return Message{Title: TitleError, Body: body, Tier: format.TierCritical}
}

// Center is the single-slot message presenter. Show replaces whatever
// is currently displayed; there is no queue.
type Center struct {
	mu      sync.Mutex
	current *Message
	gen     uint64
	notify  func(Message)
}

// NewCenter creates a center. notify, when non-nil, is called after every
// Show outside the lock.
func NewCenter(notify func(Message)) *Center {
	return &Center{notify: notify}
}

// Show displays msg, replacing the previous one.
func (c *Center) Show(msg Message) {
	c.mu.Lock()
	m := msg
	c.current = &m
	c.gen++
	notify := c.notify
	c.mu.Unlock()
	if notify != nil {
		notify(msg)
	}
}

// Current returns the displayed message, if any.
func (c *Center) Current() (Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return Message{}, false
	}
	return *c.current, true
}

// Generation increases with every Show.
func (c *Center) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// Dismiss clears the slot.
func (c *Center) Dismiss() {
	c.mu.Lock()
	c.current = nil
	c.mu.Unlock()
}
