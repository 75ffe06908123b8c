package realtime

import (
	"encoding/json"
	"sync"
)

// wsPeer serializes frame writes to a single connection. The json.Encoder
// is not safe for concurrent use and fan-out writes come from many
// goroutines.
type wsPeer struct {
	mu      sync.Mutex
	encoder *json.Encoder
}

func newWSPeer(encoder *json.Encoder) *wsPeer {
	return &wsPeer{encoder: encoder}
}

func (p *wsPeer) writeFrame(frame wsFrame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.encoder.Encode(frame)
}

// userHub groups the open connections of each user so a mutation made in
// one session can be pushed to every other tab or device of that user.
type userHub struct {
	mu    sync.Mutex
	rooms map[string]*userRoom
}

type userRoom struct {
	mu          sync.Mutex
	userID      string
	subscribers map[*wsPeer]struct{}
}

func newUserHub() *userHub {
	return &userHub{rooms: make(map[string]*userRoom)}
}

// join adds the peer to the user's room, creating the room on first join.
// Lookup and insert happen under the hub lock so a concurrent leave cannot
// garbage-collect the room between the two steps and strand the peer.
func (h *userHub) join(userID string, peer *wsPeer) *userRoom {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[userID]
	if !ok {
		room = &userRoom{userID: userID, subscribers: make(map[*wsPeer]struct{})}
		h.rooms[userID] = room
	}
	room.add(peer)
	return room
}

// leave drops the peer and garbage-collects the room once the last
// session of the user disconnects. Occupancy is checked under the hub lock,
// the same lock join inserts under.
func (h *userHub) leave(userID string, peer *wsPeer) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[userID]
	if !ok {
		return
	}
	if room.remove(peer) {
		delete(h.rooms, userID)
	}
}

// sessions reports how many connections the user currently holds.
func (h *userHub) sessions(userID string) int {
	h.mu.Lock()
	room, ok := h.rooms[userID]
	h.mu.Unlock()
	if !ok {
		return 0
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	return len(room.subscribers)
}

func (r *userRoom) add(peer *wsPeer) {
	r.mu.Lock()
	r.subscribers[peer] = struct{}{}
	r.mu.Unlock()
}

func (r *userRoom) remove(peer *wsPeer) bool {
	r.mu.Lock()
	delete(r.subscribers, peer)
	empty := len(r.subscribers) == 0
	r.mu.Unlock()
	return empty
}

func (r *userRoom) peers() []*wsPeer {
	r.mu.Lock()
	out := make([]*wsPeer, 0, len(r.subscribers))
	for peer := range r.subscribers {
		out = append(out, peer)
	}
	r.mu.Unlock()
	return out
}

// broadcast delivers the frame to every session of the user.
func (r *userRoom) broadcast(frame wsFrame) {
	for _, peer := range r.peers() {
		_ = peer.writeFrame(frame)
	}
}

// broadcastExcept delivers the frame to every session of the user except
// the one that triggered it.
func (r *userRoom) broadcastExcept(frame wsFrame, except *wsPeer) {
	for _, peer := range r.peers() {
		if peer == except {
			continue
		}
		_ = peer.writeFrame(frame)
	}
}
