package realtime

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Subscriber is the part of a Connection the Router needs.
type Subscriber interface {
	Send(payload []byte) error
	Close(code int, reason string)
}

// Router fans events out to the dashboards watching a business.
// A business may have many open dashboards; each connection is tracked by id.
type Router struct {
	mu       sync.RWMutex
	rooms    map[string]map[string]Subscriber // businessID -> connID -> subscriber
	roomOf   map[string]string                // connID -> businessID
	sessions int
}

func NewRouter() *Router {
	return &Router{
		rooms:  make(map[string]map[string]Subscriber),
		roomOf: make(map[string]string),
	}
}

// Attach subscribes the connection to its business stream.
func (r *Router) Attach(conn *Connection) {
	r.attach(conn.ID, conn.BusinessID, conn)
}

// Detach removes a connection if it is still tracked.
func (r *Router) Detach(conn *Connection) {
	r.detach(conn.ID)
}

func (r *Router) attach(id, businessID string, sub Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.roomOf[id]; ok {
		r.detachLocked(id)
	}
	room := r.rooms[businessID]
	if room == nil {
		room = make(map[string]Subscriber)
		r.rooms[businessID] = room
	}
	room[id] = sub
	r.roomOf[id] = businessID
	r.sessions++
}

func (r *Router) detach(id string) {
	r.mu.Lock()
	r.detachLocked(id)
	r.mu.Unlock()
}

// Broadcast writes payload to every dashboard of the business and returns the
// number of successful deliveries.
func (r *Router) Broadcast(businessID string, payload []byte) int {
	r.mu.RLock()
	room := r.rooms[businessID]
	subs := make([]Subscriber, 0, len(room))
	for _, s := range room {
		subs = append(subs, s)
	}
	r.mu.RUnlock()

	delivered := 0
	for _, s := range subs {
		if err := s.Send(payload); err == nil {
			delivered++
		}
	}
	return delivered
}

// Count returns the number of tracked connections.
func (r *Router) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions
}

// Close terminates all tracked connections and clears router state.
func (r *Router) Close() {
	r.mu.Lock()
	var subs []Subscriber
	for _, room := range r.rooms {
		for _, s := range room {
			subs = append(subs, s)
		}
	}
	r.rooms = make(map[string]map[string]Subscriber)
	r.roomOf = make(map[string]string)
	r.sessions = 0
	r.mu.Unlock()

	for _, s := range subs {
		s.Close(websocket.CloseGoingAway, "server shutdown")
	}
}

func (r *Router) detachLocked(id string) {
	businessID, ok := r.roomOf[id]
	if !ok {
		return
	}
	delete(r.roomOf, id)
	r.sessions--
	room := r.rooms[businessID]
	if room == nil {
		return
	}
	delete(room, id)
	if len(room) == 0 {
		delete(r.rooms, businessID)
	}
}
