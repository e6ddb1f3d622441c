package session

import (
	"encoding/json"
	"sync"

	"paroles/logger"
)

const (
	defaultSubscriberBuffer = 32
	broadcastQueueSize      = 256
)

// Subscriber receives the snapshot stream of one room. Send carries
// marshaled snapshots and is closed by the hub on unsubscribe or when a
// slow consumer falls behind.
type Subscriber struct {
	RoomID string
	Send   chan []byte
}

type broadcastMessage struct {
	roomID  string
	payload []byte
}

// Hub fans session snapshots out to room subscribers. All bookkeeping
// happens on the Run loop; Publish never blocks a session.
type Hub struct {
	rooms map[string]map[*Subscriber]bool

	register   chan *Subscriber
	unregister chan *Subscriber
	broadcast  chan broadcastMessage
	done       chan struct{}

	mu sync.RWMutex
}

// NewHub creates a hub. Call Run on its own goroutine before subscribing.
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Subscriber]bool),
		register:   make(chan *Subscriber),
		unregister: make(chan *Subscriber),
		broadcast:  make(chan broadcastMessage, broadcastQueueSize),
		done:       make(chan struct{}),
	}
}

// Run drives the hub until Stop.
func (h *Hub) Run() {
	for {
		select {
		case sub := <-h.register:
			h.addSubscriber(sub)
		case sub := <-h.unregister:
			h.removeSubscriber(sub)
		case msg := <-h.broadcast:
			h.fanOut(msg)
		case <-h.done:
			h.cleanup()
			return
		}
	}
}

// Stop shuts the hub down and closes every subscription.
func (h *Hub) Stop() {
	close(h.done)
}

// Subscribe attaches a new subscriber to a room. buffer <= 0 picks the
// default; a subscriber that cannot drain its buffer is dropped.
func (h *Hub) Subscribe(roomID string, buffer int) *Subscriber {
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}
	sub := &Subscriber{RoomID: roomID, Send: make(chan []byte, buffer)}
	select {
	case h.register <- sub:
	case <-h.done:
		close(sub.Send)
	}
	return sub
}

// Unsubscribe detaches a subscriber and closes its channel. Safe to call
// more than once.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	select {
	case h.unregister <- sub:
	case <-h.done:
	}
}

// Publish queues one snapshot for fan-out. The queue is bounded; under
// pressure the snapshot is dropped, a later one supersedes it anyway.
func (h *Hub) Publish(snap Snapshot) {
	payload, err := json.Marshal(snap)
	if err != nil {
		logger.Error("failed to encode snapshot", logger.String("room", snap.RoomID), logger.ErrorField(err))
		return
	}
	select {
	case h.broadcast <- broadcastMessage{roomID: snap.RoomID, payload: payload}:
	default:
		logger.Warn("hub queue full, snapshot dropped", logger.String("room", snap.RoomID))
	}
}

// SubscriberCount reports the subscribers attached to a room.
func (h *Hub) SubscriberCount(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

func (h *Hub) addSubscriber(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[sub.RoomID] == nil {
		h.rooms[sub.RoomID] = make(map[*Subscriber]bool)
	}
	h.rooms[sub.RoomID][sub] = true
	logger.Debug("subscriber joined",
		logger.String("room", sub.RoomID),
		logger.Int("subscribers", len(h.rooms[sub.RoomID])),
	)
}

func (h *Hub) removeSubscriber(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[sub.RoomID]
	if !ok || !room[sub] {
		return
	}
	delete(room, sub)
	close(sub.Send)
	if len(room) == 0 {
		delete(h.rooms, sub.RoomID)
	}
	logger.Debug("subscriber left", logger.String("room", sub.RoomID))
}

// fanOut delivers one payload to every room subscriber. Full buffers mean
// the consumer stopped draining; those subscribers are dropped here, on
// the Run goroutine, never blocking the others.
func (h *Hub) fanOut(msg broadcastMessage) {
	h.mu.RLock()
	subs := make([]*Subscriber, 0, len(h.rooms[msg.roomID]))
	for sub := range h.rooms[msg.roomID] {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	var kicked []*Subscriber
	for _, sub := range subs {
		select {
		case sub.Send <- msg.payload:
		default:
			kicked = append(kicked, sub)
		}
	}
	for _, sub := range kicked {
		logger.Warn("dropping slow subscriber", logger.String("room", sub.RoomID))
		h.removeSubscriber(sub)
	}
}

func (h *Hub) cleanup() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, room := range h.rooms {
		for sub := range room {
			close(sub.Send)
		}
	}
	h.rooms = make(map[string]map[*Subscriber]bool)
}
