package realtime

import (
	"encoding/json"
	"io"
	"testing"
)

func discardPeer() *wsPeer {
	return newWSPeer(json.NewEncoder(io.Discard))
}

func TestUserHub_SessionCounting(t *testing.T) {
	hub := newUserHub()
	peerA := discardPeer()
	peerB := discardPeer()

	hub.join("user-1", peerA)
	hub.join("user-1", peerB)
	if got := hub.sessions("user-1"); got != 2 {
		t.Fatalf("sessions = %d, want 2", got)
	}

	hub.leave("user-1", peerA)
	if got := hub.sessions("user-1"); got != 1 {
		t.Fatalf("sessions = %d, want 1", got)
	}

	// Last leave garbage-collects the room.
	hub.leave("user-1", peerB)
	if got := hub.sessions("user-1"); got != 0 {
		t.Fatalf("sessions = %d, want 0", got)
	}
	hub.mu.Lock()
	_, exists := hub.rooms["user-1"]
	hub.mu.Unlock()
	if exists {
		t.Error("room should be dropped after the last session leaves")
	}
}

func TestUserHub_SiblingsShareOneRoom(t *testing.T) {
	hub := newUserHub()
	roomA := hub.join("user-1", discardPeer())
	if roomB := hub.join("user-1", discardPeer()); roomB != roomA {
		t.Error("sibling sessions must share one room")
	}
	if other := hub.join("user-2", discardPeer()); other == roomA {
		t.Error("users must not share rooms")
	}
}

// A session arriving right as the user's last other session disconnects
// must still land in the live room: membership is part of join, so the
// garbage collection in leave can never strand a new peer in a room the
// hub no longer knows about.
func TestUserHub_RejoinAfterLastLeave(t *testing.T) {
	hub := newUserHub()
	peerA := discardPeer()
	peerB := discardPeer()

	hub.join("user-1", peerA)
	hub.leave("user-1", peerA)

	roomB := hub.join("user-1", peerB)
	if got := hub.sessions("user-1"); got != 1 {
		t.Fatalf("sessions = %d, want 1", got)
	}
	if roomC := hub.join("user-1", discardPeer()); roomC != roomB {
		t.Error("later sessions must reach the room the rejoined peer is in")
	}
	if got := hub.sessions("user-1"); got != 2 {
		t.Fatalf("sessions = %d, want 2", got)
	}
}
