package main

import (
	"cherrypick/client/internal/models"
	"fmt"
	"strconv"
	"sync"
)

// printer writes each message of a room once. Optimistic entries and their
// echoes share a client message id, so an echo is not printed again.
type printer struct {
	self int64

	mu   sync.Mutex
	seen map[string]bool
}

func newPrinter(self int64) *printer {
	return &printer{self: self, seen: make(map[string]bool)}
}

func messageKey(m models.ChatMessage) string {
	if m.ClientMessageID != "" {
		return m.ClientMessageID
	}
	return strconv.FormatInt(m.ID, 10)
}

func (p *printer) print(msgs []models.ChatMessage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, m := range msgs {
		key := messageKey(m)
		if p.seen[key] {
			continue
		}
		p.seen[key] = true

		who := m.SenderNickname
		if m.SenderID == p.self {
			who = "me"
		}
		if m.IsSystem() {
			who = "*"
		}
		fmt.Printf("%s %s: %s\n", m.CreatedAt.Local().Format("15:04"), who, m.Message)
	}
}
