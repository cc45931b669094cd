package llm

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter estimates token counts for persisted messages.
type TokenCounter struct {
	once     sync.Once
	encoding *tiktoken.Tiktoken
	err      error
}

// NewTokenCounter creates a lazy counter. The encoding is loaded on first use
// because tiktoken fetches its dictionary.
func NewTokenCounter() *TokenCounter {
	return &TokenCounter{}
}

// Count returns the token count of a message's text payload. Returns 0 when
// the encoding is unavailable; counting is best-effort bookkeeping, never a
// reason to fail an append.
func (c *TokenCounter) Count(msg Message) int {
	c.once.Do(func() {
		c.encoding, c.err = tiktoken.GetEncoding("cl100k_base")
	})
	if c.err != nil || c.encoding == nil {
		return 0
	}

	total := 0
	for _, block := range msg.Content {
		switch block.Kind() {
		case BlockText:
			total += len(c.encoding.Encode(block.Text(), nil, nil))
		case BlockToolResult:
			total += len(c.encoding.Encode(block.ToolResult().Content, nil, nil))
		}
	}
	return total
}
