package realtime

import (
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"trivia-session-service/internal/domain"
	"trivia-session-service/internal/monitor"
)

// DefaultSendBuffer is the outbound queue length per connection.
const DefaultSendBuffer = 32

// Conn is a registered push connection. The transport drains Outbound with a
// single writer so each connection sees its messages in send order.
type Conn struct {
	id     string
	out    chan []byte
	closed atomic.Bool

	// guarded by Registry.mu
	userID string
	gameID string
}

func (c *Conn) ID() string { return c.id }

// Outbound yields encoded frames. It is closed when the connection is unregistered.
func (c *Conn) Outbound() <-chan []byte { return c.out }

// MarkClosed records that the underlying transport is no longer open.
// Later sends to this connection are skipped.
func (c *Conn) MarkClosed() { c.closed.Store(true) }

// Registry tracks live connections and their (user, game) binding, and fans
// messages out to every connection bound to a game. Single process only: a
// multi-instance deployment needs an external pub/sub fabric in front of Broadcast.
type Registry struct {
	buffer  int
	metrics *monitor.Metrics

	mu       sync.RWMutex
	conns    map[string]*Conn
	shutdown bool
}

func NewRegistry(sendBuffer int, metrics *monitor.Metrics) *Registry {
	if sendBuffer <= 0 {
		sendBuffer = DefaultSendBuffer
	}
	return &Registry{
		buffer:  sendBuffer,
		metrics: metrics,
		conns:   make(map[string]*Conn),
	}
}

// Register creates an unbound connection.
func (r *Registry) Register() *Conn {
	c := &Conn{
		id:  uuid.NewString(),
		out: make(chan []byte, r.buffer),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.shutdown {
		c.MarkClosed()
		close(c.out)
		return c
	}
	r.conns[c.id] = c
	r.metrics.ConnectionOpened()
	return c
}

// Bind attaches a connection to a user and game. Last bind wins.
func (r *Registry) Bind(connID, userID, gameID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conns[connID]
	if !ok {
		return domain.ErrConnectionNotFound
	}
	c.userID = userID
	c.gameID = gameID
	return nil
}

// Binding returns the user and game a connection is bound to.
func (r *Registry) Binding(connID string) (userID, gameID string, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[connID]
	if !ok {
		return "", "", false
	}
	return c.userID, c.gameID, c.gameID != ""
}

// Unregister drops the connection and closes its outbound queue.
func (r *Registry) Unregister(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conns[connID]
	if !ok {
		return
	}
	delete(r.conns, connID)
	c.MarkClosed()
	close(c.out)
	r.metrics.ConnectionClosed()
}

// Broadcast queues msg on every connection bound to gameID except excludeConnID
// and returns how many connections it reached. Delivery is best-effort: closed
// or saturated connections are skipped and logged, never retried.
func (r *Registry) Broadcast(gameID string, msg any, excludeConnID string) int {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Str("gameId", gameID).Msg("broadcast marshal failed")
		return 0
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	delivered := 0
	for id, c := range r.conns {
		if c.gameID != gameID || id == excludeConnID {
			continue
		}
		if err := r.enqueueLocked(c, data); err != nil {
			log.Debug().Err(err).Str("gameId", gameID).Str("connId", id).Msg("broadcast skipped")
			continue
		}
		delivered++
	}
	return delivered
}

// Send queues msg on a single connection.
func (r *Registry) Send(connID string, msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[connID]
	if !ok {
		return domain.ErrConnectionNotFound
	}
	return r.enqueueLocked(c, data)
}

// enqueueLocked requires r.mu held (read or write) so the queue cannot be closed underneath it.
func (r *Registry) enqueueLocked(c *Conn, data []byte) error {
	if c.closed.Load() {
		r.metrics.Dropped("closed")
		return domain.ErrConnectionClosed
	}
	select {
	case c.out <- data:
		r.metrics.Delivered()
		return nil
	default:
		r.metrics.Dropped("full")
		return domain.ErrSendBufferFull
	}
}

// Count returns the number of registered connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Bound lists connection ids bound to gameID.
func (r *Registry) Bound(gameID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ids []string
	for id, c := range r.conns {
		if c.gameID == gameID {
			ids = append(ids, id)
		}
	}
	return ids
}

// Close unregisters every connection. Registrations after Close are born closed.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.shutdown {
		return
	}
	r.shutdown = true
	for id, c := range r.conns {
		delete(r.conns, id)
		c.MarkClosed()
		close(c.out)
		r.metrics.ConnectionClosed()
	}
}
