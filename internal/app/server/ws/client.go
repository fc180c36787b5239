package ws

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// RuntimeClient is one live connection handle. A handle belongs to
// exactly one identity for its lifetime; the identity may own several
// handles at once (multiple devices or tabs).
type RuntimeClient struct {
	ctx      context.Context
	cancel   context.CancelFunc
	ws       *WebSocket
	id       string
	identity string
	out      chan []byte
	once     sync.Once

	mu     sync.Mutex
	closed bool
}

func NewClient(
	parent context.Context,
	ws *WebSocket,
	identity string,
) *RuntimeClient {
	ctx, cancel := context.WithCancel(parent)
	c := &RuntimeClient{
		ctx:      ctx,
		cancel:   cancel,
		ws:       ws,
		id:       uuid.NewString(),
		identity: identity,
		out:      make(chan []byte, 256),
	}
	go c.writeLoop()
	return c
}

func (c *RuntimeClient) ID() string       { return c.id }
func (c *RuntimeClient) Identity() string { return c.identity }

// Send queues data for the write loop. It never blocks on transport
// I/O: a closed client or a full queue reports an error, which the hub
// treats the same as a disconnected handle.
func (c *RuntimeClient) Send(ctx context.Context, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("client closed")
	}
	select {
	case c.out <- data:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return errors.New("send queue full")
	}
}

// Close is idempotent. The out channel is never closed; the write loop
// exits through the client context instead, so a concurrent Send can
// only observe the closed flag or land in the buffer.
func (c *RuntimeClient) Close() {
	c.once.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		c.cancel()
		c.ws.Close()
	})
}

func (c *RuntimeClient) writeLoop() {
	defer c.Close()
	for {
		select {
		case <-c.ctx.Done():
			return
		case data := <-c.out:
			_ = c.ws.WriteMessage(data)
		}
	}
}
