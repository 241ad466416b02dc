package ws

// Subscriber abstracts a streaming client.
type Subscriber interface {
	Send([]byte) error
	Close()
}

// Hub fans task events out to subscribers, keyed by member ID. A browser
// watching one member's board subscribes to that member only. All state is
// confined to the run goroutine.
type Hub struct {
	clients   map[string]map[Subscriber]struct{}
	register  chan subscription
	unreg     chan subscription
	broadcast chan message
}

type message struct {
	memberID string
	payload  []byte
}

type subscription struct {
	memberID string
	client   Subscriber
}

// NewHub creates an initialized Hub.
func NewHub() *Hub {
	h := &Hub{
		clients:   make(map[string]map[Subscriber]struct{}),
		register:  make(chan subscription),
		unreg:     make(chan subscription),
		broadcast: make(chan message),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case sub := <-h.register:
			if _, ok := h.clients[sub.memberID]; !ok {
				h.clients[sub.memberID] = make(map[Subscriber]struct{})
			}
			h.clients[sub.memberID][sub.client] = struct{}{}
		case sub := <-h.unreg:
			if clients, ok := h.clients[sub.memberID]; ok {
				delete(clients, sub.client)
				if len(clients) == 0 {
					delete(h.clients, sub.memberID)
				}
			}
		case msg := <-h.broadcast:
			if clients, ok := h.clients[msg.memberID]; ok {
				for c := range clients {
					if err := c.Send(msg.payload); err != nil {
						c.Close()
						delete(clients, c)
					}
				}
				if len(clients) == 0 {
					delete(h.clients, msg.memberID)
				}
			}
		}
	}
}

// Register adds a client to a member's event stream.
func (h *Hub) Register(memberID string, client Subscriber) {
	h.register <- subscription{memberID: memberID, client: client}
}

// Unregister removes a client.
func (h *Hub) Unregister(memberID string, client Subscriber) {
	h.unreg <- subscription{memberID: memberID, client: client}
}

// Broadcast sends payload to every subscriber of the member.
func (h *Hub) Broadcast(memberID string, payload []byte) {
	h.broadcast <- message{memberID: memberID, payload: payload}
}
