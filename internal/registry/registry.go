package registry

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shopwire/shopwire-backend/pkg/errors"
)

// Connection is one live stream attachment for a user. A user may hold any
// number of connections at once, one per open device or tab.
type Connection struct {
	ID         string
	UserID     uuid.UUID
	ShopID     uuid.UUID
	JoinedAt   time.Time
	LastSeenAt time.Time
}

// Registry tracks live connections in process memory. State here is
// ephemeral; a restart empties it and clients are expected to reconnect
// and catch up from their last sequence.
type Registry struct {
	mu     sync.RWMutex
	byID   map[string]*Connection
	byUser map[uuid.UUID]map[string]*Connection
	byShop map[uuid.UUID]map[string]*Connection
}

func New() *Registry {
	return &Registry{
		byID:   make(map[string]*Connection),
		byUser: make(map[uuid.UUID]map[string]*Connection),
		byShop: make(map[uuid.UUID]map[string]*Connection),
	}
}

// Add registers a connection. Re-adding an existing ID replaces the previous
// entry, so a client that reconnects with the same ID does not leak a slot.
func (r *Registry) Add(conn Connection) error {
	if conn.ID == "" {
		return errors.New(errors.CodeValidation, "connection id is required")
	}
	if conn.UserID == uuid.Nil {
		return errors.New(errors.CodeValidation, "connection user id is required")
	}
	now := time.Now()
	if conn.JoinedAt.IsZero() {
		conn.JoinedAt = now
	}
	if conn.LastSeenAt.IsZero() {
		conn.LastSeenAt = now
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if previous, ok := r.byID[conn.ID]; ok {
		r.detachLocked(previous)
	}
	stored := conn
	r.byID[conn.ID] = &stored
	users, ok := r.byUser[conn.UserID]
	if !ok {
		users = make(map[string]*Connection)
		r.byUser[conn.UserID] = users
	}
	users[conn.ID] = &stored
	if stored.ShopID != uuid.Nil {
		shops, ok := r.byShop[conn.ShopID]
		if !ok {
			shops = make(map[string]*Connection)
			r.byShop[conn.ShopID] = shops
		}
		shops[conn.ID] = &stored
	}
	return nil
}

// Remove drops a connection. Removing an unknown ID is a no-op.
func (r *Registry) Remove(connectionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.byID[connectionID]
	if !ok {
		return
	}
	r.detachLocked(conn)
}

func (r *Registry) detachLocked(conn *Connection) {
	delete(r.byID, conn.ID)
	if users, ok := r.byUser[conn.UserID]; ok {
		delete(users, conn.ID)
		if len(users) == 0 {
			delete(r.byUser, conn.UserID)
		}
	}
	if shops, ok := r.byShop[conn.ShopID]; ok {
		delete(shops, conn.ID)
		if len(shops) == 0 {
			delete(r.byShop, conn.ShopID)
		}
	}
}

// Touch records heartbeat activity. It reports whether the connection is
// still registered so callers can tell a stale client to reconnect.
func (r *Registry) Touch(connectionID string, at time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.byID[connectionID]
	if !ok {
		return false
	}
	conn.LastSeenAt = at
	return true
}

// Get returns a copy of the connection, if registered.
func (r *Registry) Get(connectionID string) (Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.byID[connectionID]
	if !ok {
		return Connection{}, false
	}
	return *conn, true
}

// ListByUser returns copies of every live connection for the user.
func (r *Registry) ListByUser(userID uuid.UUID) []Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users, ok := r.byUser[userID]
	if !ok {
		return nil
	}
	connections := make([]Connection, 0, len(users))
	for _, conn := range users {
		connections = append(connections, *conn)
	}
	return connections
}

// ListByShop returns copies of every live connection attached under the
// shop, across all of its users.
func (r *Registry) ListByShop(shopID uuid.UUID) []Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	shops, ok := r.byShop[shopID]
	if !ok {
		return nil
	}
	connections := make([]Connection, 0, len(shops))
	for _, conn := range shops {
		connections = append(connections, *conn)
	}
	return connections
}

// ListAll returns a copy of every live connection. Diagnostic use.
func (r *Registry) ListAll() []Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	connections := make([]Connection, 0, len(r.byID))
	for _, conn := range r.byID {
		connections = append(connections, *conn)
	}
	return connections
}

// Count reports the number of live connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
