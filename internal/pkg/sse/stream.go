package sse

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Stream ties one subscriber connection to a gin request.
type Stream struct {
	client    *Client
	ctx       *gin.Context
	hub       *Hub
	heartbeat time.Duration
	replay    func(send func(Event) error) error

	// writeMu serializes event and heartbeat writes so frames cannot
	// interleave on the wire.
	writeMu sync.Mutex
	closed  atomic.Bool
	cancel  context.CancelFunc
}

// StreamBuilder configures a Stream before it starts.
type StreamBuilder struct {
	ginCtx     *gin.Context
	hub        *Hub
	owner      string
	bufferSize int
	heartbeat  time.Duration
	replay     func(send func(Event) error) error
}

// NewStream creates a builder with default buffer and heartbeat.
func NewStream(c *gin.Context, hub *Hub) *StreamBuilder {
	return &StreamBuilder{
		ginCtx:     c,
		hub:        hub,
		bufferSize: 16,
		heartbeat:  30 * time.Second,
	}
}

// WithOwner sets the subscription scope.
func (b *StreamBuilder) WithOwner(owner string) *StreamBuilder {
	b.owner = owner
	return b
}

// WithBufferSize sets the channel buffer.
func (b *StreamBuilder) WithBufferSize(size int) *StreamBuilder {
	b.bufferSize = size
	return b
}

// WithHeartbeat sets the keepalive interval. Zero disables it.
func (b *StreamBuilder) WithHeartbeat(interval time.Duration) *StreamBuilder {
	b.heartbeat = interval
	return b
}

// WithReplay installs a catch-up callback that runs after the subscriber is
// registered and before live events flow. Used to close the gap between a
// client timeout and late-arriving appends.
func (b *StreamBuilder) WithReplay(fn func(send func(Event) error) error) *StreamBuilder {
	b.replay = fn
	return b
}

// Build constructs the Stream.
func (b *StreamBuilder) Build() *Stream {
	return &Stream{
		client: &Client{
			ID:      uuid.New().String(),
			Owner:   b.owner,
			Channel: make(chan Event, b.bufferSize),
		},
		ctx:       b.ginCtx,
		hub:       b.hub,
		heartbeat: b.heartbeat,
		replay:    b.replay,
	}
}

// ClientID returns the connection id.
func (s *Stream) ClientID() string {
	return s.client.ID
}

// Close unregisters the subscriber. Idempotent.
func (s *Stream) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	s.hub.Unregister(s.client)
	if s.cancel != nil {
		s.cancel()
	}
}

// Run streams events to the client until it disconnects.
func (s *Stream) Run() error {
	s.ctx.Header("Content-Type", "text/event-stream")
	s.ctx.Header("Cache-Control", "no-cache")
	s.ctx.Header("Connection", "keep-alive")
	s.ctx.Header("X-Accel-Buffering", "no")

	s.hub.Register(s.client)
	defer s.Close()

	write := s.writeEvent

	connected := Event{
		Type: "connected",
		Data: map[string]string{"client_id": s.client.ID, "owner": s.client.Owner},
	}
	if err := write(connected); err != nil {
		return err
	}

	// Registration happened before replay, so anything appended during the
	// catch-up is already queued on the channel and arrives afterwards.
	if s.replay != nil {
		if err := s.replay(write); err != nil {
			return err
		}
	}

	if s.heartbeat > 0 {
		var hbCtx context.Context
		hbCtx, s.cancel = context.WithCancel(context.Background())
		go s.runHeartbeat(hbCtx)
	}

	clientGone := s.ctx.Request.Context().Done()

	for {
		select {
		case <-clientGone:
			return nil
		case event, ok := <-s.client.Channel:
			if !ok {
				return nil
			}
			if err := write(event); err != nil {
				return err
			}
		}
	}
}

func (s *Stream) writeEvent(event Event) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, err := fmt.Fprint(s.ctx.Writer, event.FormatSSE()); err != nil {
		return err
	}
	s.ctx.Writer.Flush()
	return nil
}

func (s *Stream) writeComment(comment string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, err := fmt.Fprint(s.ctx.Writer, ": "+comment+"\n\n"); err != nil {
		return err
	}
	s.ctx.Writer.Flush()
	return nil
}

func (s *Stream) runHeartbeat(ctx context.Context) {
	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.writeComment("heartbeat"); err != nil {
				return
			}
		}
	}
}
