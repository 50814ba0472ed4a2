package hub

import (
	"hash/fnv"
	"sync"

	"github.com/josesc03/bookintokback/internal/config"
	"github.com/josesc03/bookintokback/pkg/log"
)

// Kind distinguishes the two channel kinds a user can hold open.
type Kind string

const (
	// KindChats carries the active-chat directory.
	KindChats Kind = "chats"
	// KindMessages carries one chat's message view; the client is bound to a
	// chat id at connect time.
	KindMessages Kind = "messages"
)

const shardCount = 16

type shard struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{} // uid -> live clients
}

// Hub is the in-process connection registry: it maps a user to the set of
// currently-open channels. Buckets are sharded by uid so register, unregister
// and send never contend on a global lock.
type Hub struct {
	shards [shardCount]*shard
	config config.WebSocketConfig
}

// NewHub creates an empty hub.
func NewHub(cfg config.WebSocketConfig) *Hub {
	h := &Hub{config: cfg}
	for i := range h.shards {
		h.shards[i] = &shard{clients: make(map[string]map[*Client]struct{})}
	}
	return h
}

func (h *Hub) shardFor(uid string) *shard {
	f := fnv.New32a()
	f.Write([]byte(uid))
	return h.shards[f.Sum32()%shardCount]
}

// Register adds a client to its user's channel set.
func (h *Hub) Register(c *Client) {
	s := h.shardFor(c.UserID)
	s.mu.Lock()
	set, ok := s.clients[c.UserID]
	if !ok {
		set = make(map[*Client]struct{})
		s.clients[c.UserID] = set
	}
	set[c] = struct{}{}
	s.mu.Unlock()

	log.L().Debug().
		Str(log.FieldClientID, c.ID).
		Str(log.FieldUserID, c.UserID).
		Str("kind", string(c.Kind)).
		Msg("client registered")
}

// Unregister removes a client; removing an absent client is a no-op. The
// client's send channel is closed exactly once, on the first removal, which
// lets the write pump shut the connection down.
func (h *Hub) Unregister(c *Client) {
	s := h.shardFor(c.UserID)
	s.mu.Lock()
	removed := false
	if set, ok := s.clients[c.UserID]; ok {
		if _, present := set[c]; present {
			delete(set, c)
			removed = true
		}
		if len(set) == 0 {
			delete(s.clients, c.UserID)
		}
	}
	s.mu.Unlock()

	c.closeSend()

	if removed {
		log.L().Debug().
			Str(log.FieldClientID, c.ID).
			Str(log.FieldUserID, c.UserID).
			Msg("client unregistered")
	}
}

// SendChatList delivers a chat-directory payload to every live chats-kind
// channel of the user. No live channel is a silent no-op.
func (h *Hub) SendChatList(uid string, data []byte) {
	h.send(uid, data, func(c *Client) bool {
		return c.Kind == KindChats
	})
}

// SendMessages delivers a message-view payload to every live messages-kind
// channel of the user that is bound to the given chat.
func (h *Hub) SendMessages(uid string, chatID uint, data []byte) {
	h.send(uid, data, func(c *Client) bool {
		return c.Kind == KindMessages && c.ChatID == chatID
	})
}

// SendToUser delivers a payload to every live channel of the user regardless
// of kind.
func (h *Hub) SendToUser(uid string, data []byte) {
	h.send(uid, data, func(*Client) bool { return true })
}

// send pushes data to each matching client. A client whose buffer is full is
// treated as dead: it is dropped asynchronously so one stuck channel never
// stalls delivery to the user's other channels or to other users.
func (h *Hub) send(uid string, data []byte, match func(*Client) bool) {
	s := h.shardFor(uid)

	var stuck []*Client
	s.mu.RLock()
	for c := range s.clients[uid] {
		if !match(c) {
			continue
		}
		select {
		case c.Send <- data:
		default:
			stuck = append(stuck, c)
		}
	}
	s.mu.RUnlock()

	for _, c := range stuck {
		log.L().Warn().
			Str(log.FieldClientID, c.ID).
			Str(log.FieldUserID, c.UserID).
			Msg("send buffer full, dropping client")
		go c.Close()
	}
}

// ClientCount returns the number of live channels for a user.
func (h *Hub) ClientCount(uid string) int {
	s := h.shardFor(uid)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients[uid])
}
