// Package registry tracks the live websocket connection for every
// (room, user) pair and fans chat payloads out to rooms.
package registry

import (
	"log"
	"sync"
)

// Handle is the send side of one live client connection. The registry owns
// the handle for as long as the pair stays connected; nobody else keeps a
// reference past a send call.
type Handle interface {
	SendJSON(v interface{}) error
	Close() error
}

// Registry is a two-level index, room key -> user key -> live handle.
// One instance is built in main and shared by every session goroutine;
// a single RWMutex serializes mutations against reads.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]map[string]Handle
}

func New() *Registry {
	return &Registry{
		rooms: make(map[string]map[string]Handle),
	}
}

// Connect installs handle under (roomKey, userKey), creating the room entry
// if absent. A handle already registered for the pair is closed before the
// replacement goes in, so a stale transport session never lingers.
func (r *Registry) Connect(roomKey, userKey string, handle Handle) {
	r.mu.Lock()
	room, ok := r.rooms[roomKey]
	if !ok {
		room = make(map[string]Handle)
		r.rooms[roomKey] = room
		setRooms(len(r.rooms))
	}
	prev, replaced := room[userKey]
	room[userKey] = handle
	if !replaced {
		incConnections()
	}
	r.mu.Unlock()

	if replaced {
		if err := prev.Close(); err != nil {
			log.Printf("registry: close superseded handle for %s in %s: %v", userKey, roomKey, err)
		}
	}
}

// Disconnect removes the pair if present and prunes the room entry when the
// last user leaves. Unknown pairs are a silent no-op.
func (r *Registry) Disconnect(roomKey, userKey string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomKey]
	if !ok {
		return
	}
	if _, ok := room[userKey]; !ok {
		return
	}

	delete(room, userKey)
	decConnections()
	if len(room) == 0 {
		delete(r.rooms, roomKey)
		setRooms(len(r.rooms))
	}
}

// DisconnectHandle removes the pair only while it still maps to handle.
// A session that was superseded by a duplicate connect must not evict its
// replacement during teardown; the return value tells the caller whether it
// was still the registered connection.
func (r *Registry) DisconnectHandle(roomKey, userKey string, handle Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomKey]
	if !ok {
		return false
	}
	current, ok := room[userKey]
	if !ok || current != handle {
		return false
	}

	delete(room, userKey)
	decConnections()
	if len(room) == 0 {
		delete(r.rooms, roomKey)
		setRooms(len(r.rooms))
	}
	return true
}

// SendToUser delivers payload to a single connection, best effort. Nothing
// happens when the user is not connected in that room.
func (r *Registry) SendToUser(userKey, roomKey string, payload interface{}) {
	r.mu.RLock()
	var handle Handle
	if room, ok := r.rooms[roomKey]; ok {
		handle = room[userKey]
	}
	r.mu.RUnlock()

	if handle == nil {
		return
	}
	if err := handle.SendJSON(payload); err != nil {
		log.Printf("registry: send to %s in %s: %v", userKey, roomKey, err)
		return
	}
	addDelivered(1)
}

// BroadcastToRoom delivers payload to every connection registered in the room
// at call entry, skipping excludeUserKey when non-empty. Recipients are
// snapshotted under the read lock and sends happen after it is released, so
// one slow or broken connection never stalls the registry or its peers.
func (r *Registry) BroadcastToRoom(roomKey string, payload interface{}, excludeUserKey string) {
	type recipient struct {
		userKey string
		handle  Handle
	}

	r.mu.RLock()
	room := r.rooms[roomKey]
	recipients := make([]recipient, 0, len(room))
	for userKey, handle := range room {
		if excludeUserKey != "" && userKey == excludeUserKey {
			continue
		}
		recipients = append(recipients, recipient{userKey: userKey, handle: handle})
	}
	r.mu.RUnlock()

	delivered := 0
	for _, rec := range recipients {
		if err := rec.handle.SendJSON(payload); err != nil {
			log.Printf("registry: broadcast to %s in %s: %v", rec.userKey, roomKey, err)
			continue
		}
		delivered++
	}
	if delivered > 0 {
		addDelivered(delivered)
	}
}

// UsersInRoom returns the user keys currently connected in the room. The
// slice is never nil so an empty room serializes as [] on the wire.
func (r *Registry) UsersInRoom(roomKey string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room := r.rooms[roomKey]
	users := make([]string, 0, len(room))
	for userKey := range room {
		users = append(users, userKey)
	}
	return users
}

// RoomCount reports the number of rooms with at least one live connection.
func (r *Registry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
