package websocket

import (
	"context"
	"encoding/json"

	"github.com/AzielCF/az-connect/integration/domain/channel"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

const (
	CodeChannelChanged = "CHANNEL_CHANGED"
	CodeNotification   = "NOTIFICATION"
	CodeFetchChannels  = "FETCH_CHANNELS"
	CodeListChannels   = "LIST_CHANNELS"

	relayTopic = "ws_broadcast"
)

type BroadcastMessage struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Token    string `json:"token,omitempty"`
	Result   any    `json:"result"`
	SenderID string `json:"sender_id,omitempty"`
}

// Relay carries broadcasts between nodes. The valkey client implements it.
type Relay interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	Subscribe(ctx context.Context, topic string, fn func(payload []byte)) error
}

// ChannelLister answers FETCH_CHANNELS requests.
type ChannelLister interface {
	List(ctx context.Context, chatbotID string) ([]channel.Channel, error)
}

type outbound struct {
	msg   BroadcastMessage
	relay bool
	to    *websocket.Conn
}

// Hub owns the set of connected dashboards. All connection bookkeeping happens
// on the Run goroutine.
type Hub struct {
	nodeID     string
	relay      Relay
	clients    map[*websocket.Conn]struct{}
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	broadcast  chan outbound
	done       chan struct{}
}

func NewHub(nodeID string, relay Relay) *Hub {
	return &Hub{
		nodeID:     nodeID,
		relay:      relay,
		clients:    make(map[*websocket.Conn]struct{}),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		broadcast:  make(chan outbound, 256),
		done:       make(chan struct{}),
	}
}

// Broadcast queues msg for every local client and, with a relay, every other
// node. It never blocks; a saturated hub drops the message.
func (h *Hub) Broadcast(msg BroadcastMessage) {
	h.enqueue(outbound{msg: msg, relay: true})
}

func (h *Hub) enqueue(o outbound) {
	select {
	case h.broadcast <- o:
	default:
		logrus.Warnf("[WS] Broadcast queue full, dropping %s", o.msg.Code)
	}
}

// Listen pushes committed channel changes to dashboards. Credentials are
// redacted before they leave the process.
func (h *Hub) Listen(ev channel.ChangeEvent) {
	ch := ev.Channel
	ch.Config = ch.Config.Redacted()
	h.Broadcast(BroadcastMessage{
		Code:    CodeChannelChanged,
		Message: string(ev.Previous) + " -> " + string(ch.Status),
		Token:   ch.ChatbotID,
		Result:  channel.ChangeEvent{Previous: ev.Previous, Channel: ch},
	})
}

// Notify implements channel.NotificationSink.
func (h *Hub) Notify(kind channel.NotificationKind, message string) {
	h.Broadcast(BroadcastMessage{Code: CodeNotification, Message: message, Result: kind})
}

// join registers conn with the running hub. It reports false once Run has
// returned.
func (h *Hub) join(conn *websocket.Conn) bool {
	select {
	case h.register <- conn:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(conn *websocket.Conn) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

// Run serves the hub until ctx is done. Every write to a connection happens
// here, so connections never see concurrent writers.
func (h *Hub) Run(ctx context.Context) {
	if h.relay != nil {
		go h.subscribe(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			for conn := range h.clients {
				h.close(conn)
			}
			close(h.done)
			return
		case conn := <-h.register:
			h.clients[conn] = struct{}{}
			logrus.Debug("[WS] Connection registered")
		case conn := <-h.unregister:
			delete(h.clients, conn)
			logrus.Debug("[WS] Connection unregistered")
		case o := <-h.broadcast:
			if o.to != nil {
				if _, ok := h.clients[o.to]; ok {
					h.write(o.to, o.msg)
				}
				continue
			}
			h.writeLocal(o.msg)
			if o.relay && h.relay != nil {
				h.publish(ctx, o.msg)
			}
		}
	}
}

func (h *Hub) write(conn *websocket.Conn, msg BroadcastMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		logrus.Warnf("[WS] Reply failed: %v", err)
		h.close(conn)
	}
}

func (h *Hub) writeLocal(msg BroadcastMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		logrus.Errorf("[WS] Marshal error: %v", err)
		return
	}
	for conn := range h.clients {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			logrus.Errorf("[WS] Write error: %v", err)
			h.close(conn)
		}
	}
}

func (h *Hub) publish(ctx context.Context, msg BroadcastMessage) {
	msg.SenderID = h.nodeID
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	if err := h.relay.Publish(ctx, relayTopic, data); err != nil {
		logrus.Errorf("[WS] Failed to publish to relay: %v", err)
	}
}

func (h *Hub) subscribe(ctx context.Context) {
	logrus.Info("[WS] Listening for broadcasts from other nodes")
	err := h.relay.Subscribe(ctx, relayTopic, func(payload []byte) {
		var msg BroadcastMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			return
		}
		if msg.SenderID == h.nodeID {
			return
		}
		h.enqueue(outbound{msg: msg})
	})
	if err != nil && ctx.Err() == nil {
		logrus.Errorf("[WS] Relay subscriber stopped: %v", err)
	}
}

func (h *Hub) close(conn *websocket.Conn) {
	_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
	_ = conn.Close()
	delete(h.clients, conn)
}

// RegisterRoutes mounts /ws on app.
func (h *Hub) RegisterRoutes(app fiber.Router, channels ChannelLister) {
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})

	app.Get("/ws", websocket.New(func(conn *websocket.Conn) {
		defer func() {
			h.leave(conn)
			_ = conn.Close()
		}()
		if !h.join(conn) {
			return
		}

		for {
			messageType, payload, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					logrus.Warnf("[WS] Read error: %v", err)
				}
				return
			}
			if messageType != websocket.TextMessage {
				continue
			}

			var req BroadcastMessage
			if err := json.Unmarshal(payload, &req); err != nil {
				logrus.Warnf("[WS] Ignoring malformed message: %v", err)
				continue
			}
			if req.Code == CodeFetchChannels {
				h.reply(conn, channels, req.Token)
			}
		}
	}))
}

func (h *Hub) reply(conn *websocket.Conn, channels ChannelLister, chatbotID string) {
	list, err := channels.List(context.Background(), chatbotID)
	resp := BroadcastMessage{Code: CodeListChannels, Token: chatbotID}
	if err != nil {
		resp.Message = err.Error()
	} else {
		for i := range list {
			list[i].Config = list[i].Config.Redacted()
		}
		resp.Message = "Channels found"
		resp.Result = list
	}
	h.enqueue(outbound{msg: resp, to: conn})
}
