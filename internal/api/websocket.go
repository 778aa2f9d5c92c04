package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/hackgods/conversational-appointment-booking/internal/appointment"
	"github.com/hackgods/conversational-appointment-booking/internal/conversation"
	"github.com/hackgods/conversational-appointment-booking/internal/workflow"
)

// Outbound event types.
const (
	EventConnected            = "connected"
	EventAgentMessage         = "agent_message"
	EventTyping               = "typing"
	EventStatusUpdate         = "status_update"
	EventSlotsAvailable       = "slots_available"
	EventAppointmentConfirmed = "appointment_confirmed"
	EventConversationReset    = "conversation_reset"
	EventError                = "error"
	EventPong                 = "pong"
)

// Inbound message types.
const (
	InboundUserMessage = "user_message"
	InboundReset       = "reset_conversation"
	InboundPing        = "ping"
)

const (
	wsWriteWait    = 10 * time.Second
	wsReadLimit    = 16 << 10
	wsFallbackText = "Sorry, something went wrong. Please try again."
	wsBusyText     = "I'm still working on your previous message. One moment please."
)

type InboundMessage struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}

type OutboundMessage struct {
	Type           string                      `json:"type"`
	ConversationID string                      `json:"conversation_id,omitempty"`
	Content        string                      `json:"content,omitempty"`
	AgentType      string                      `json:"agent_type,omitempty"`
	State          workflow.Phase              `json:"state,omitempty"`
	Slots          []appointment.SlotCandidate `json:"slots,omitempty"`
	AppointmentID  string                      `json:"appointment_id,omitempty"`
	Timestamp      time.Time                   `json:"timestamp"`
}

// ChatHub serves the realtime chat channel. It tracks one live socket per
// conversation; a second connection for the same conversation replaces the
// first.
type ChatHub struct {
	conversations *conversation.Service
	clinic        string
	logger        zerolog.Logger
	upgrader      websocket.Upgrader

	mu       sync.RWMutex
	sessions map[string]*wsSession
}

type wsSession struct {
	conn  *websocket.Conn
	mu    sync.Mutex // serializes writes
	phase workflow.Phase
}

func NewChatHub(conversations *conversation.Service, clinic string, logger zerolog.Logger) *ChatHub {
	return &ChatHub{
		conversations: conversations,
		clinic:        clinic,
		logger:        logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		sessions: make(map[string]*wsSession),
	}
}

// Active returns the number of open chat sockets.
func (h *ChatHub) Active() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

func (h *ChatHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(wsReadLimit)

	ctx := r.Context()
	c, err := h.open(ctx, chi.URLParam(r, "conversationID"))
	if err != nil {
		h.logger.Error().Err(err).Msg("websocket: could not open conversation")
		_ = conn.WriteJSON(OutboundMessage{Type: EventError, Content: wsFallbackText, Timestamp: time.Now()})
		return
	}

	s := &wsSession{conn: conn, phase: c.Context.Phase}
	h.register(c.ID, s)
	defer h.unregister(c.ID, s)

	h.logger.Info().Str("conversation_id", c.ID).Msg("websocket connected")

	s.send(OutboundMessage{
		Type:           EventConnected,
		ConversationID: c.ID,
		Content:        "Connected to " + h.clinic + " appointment assistant",
	})
	h.sendReply(s, c)

	for {
		var in InboundMessage
		if err := conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Warn().Err(err).Str("conversation_id", c.ID).Msg("websocket read failed")
			}
			return
		}

		switch in.Type {
		case InboundUserMessage:
			h.handleUserMessage(ctx, s, c.ID, in.Content)
		case InboundReset:
			h.handleReset(ctx, s, c.ID)
		case InboundPing:
			s.send(OutboundMessage{Type: EventPong})
		default:
			s.send(OutboundMessage{Type: EventError, Content: "Unknown message type: " + in.Type})
		}
	}
}

// open loads the requested conversation, starting a fresh one when the id
// is empty or unknown.
func (h *ChatHub) open(ctx context.Context, id string) (*conversation.Conversation, error) {
	if id != "" {
		c, err := h.conversations.Get(ctx, id)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, conversation.ErrConversationNotFound) {
			return nil, err
		}
	}
	return h.conversations.Start(ctx)
}

func (h *ChatHub) handleUserMessage(ctx context.Context, s *wsSession, id, text string) {
	s.send(OutboundMessage{Type: EventTyping, ConversationID: id})

	c, err := h.conversations.Send(ctx, id, text)
	if err != nil {
		msg := wsFallbackText
		switch {
		case errors.Is(err, conversation.ErrConversationBusy):
			msg = wsBusyText
		case errors.Is(err, conversation.ErrEmptyMessage):
			msg = "Please type a message."
		case errors.Is(err, conversation.ErrMessageTooLong):
			msg = "That message is too long. Please keep it shorter."
		default:
			h.logger.Error().Err(err).Str("conversation_id", id).Msg("websocket turn failed")
		}
		s.send(OutboundMessage{Type: EventError, ConversationID: id, Content: msg})
		return
	}

	prev := s.phase
	h.sendReply(s, c)

	switch {
	case c.Context.Phase == workflow.PhaseAwaitingSelection && len(c.Context.AvailableSlots) > 0:
		s.send(OutboundMessage{Type: EventSlotsAvailable, ConversationID: id, Slots: c.Context.AvailableSlots})
	case c.Context.Phase == workflow.PhaseCompleted && prev != workflow.PhaseCompleted:
		s.send(OutboundMessage{Type: EventAppointmentConfirmed, ConversationID: id, AppointmentID: c.Context.AppointmentID})
	}
	s.send(OutboundMessage{Type: EventStatusUpdate, ConversationID: id, State: c.Context.Phase})
}

func (h *ChatHub) handleReset(ctx context.Context, s *wsSession, id string) {
	c, err := h.conversations.Reset(ctx, id)
	if err != nil {
		msg := wsFallbackText
		if errors.Is(err, conversation.ErrConversationBusy) {
			msg = wsBusyText
		}
		s.send(OutboundMessage{Type: EventError, ConversationID: id, Content: msg})
		return
	}

	s.send(OutboundMessage{Type: EventConversationReset, ConversationID: id})
	h.sendReply(s, c)
	s.send(OutboundMessage{Type: EventStatusUpdate, ConversationID: id, State: c.Context.Phase})
}

func (h *ChatHub) sendReply(s *wsSession, c *conversation.Conversation) {
	s.phase = c.Context.Phase
	s.send(OutboundMessage{
		Type:           EventAgentMessage,
		ConversationID: c.ID,
		Content:        c.Context.Response,
		AgentType:      string(c.Context.CurrentRole),
	})
}

func (h *ChatHub) register(id string, s *wsSession) {
	h.mu.Lock()
	old := h.sessions[id]
	h.sessions[id] = s
	h.mu.Unlock()

	if old != nil {
		old.mu.Lock()
		_ = old.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "replaced by a newer connection"),
			time.Now().Add(wsWriteWait))
		old.mu.Unlock()
		_ = old.conn.Close()
	}
}

func (h *ChatHub) unregister(id string, s *wsSession) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sessions[id] == s {
		delete(h.sessions, id)
	}
}

func (s *wsSession) send(msg OutboundMessage) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	_ = s.conn.WriteJSON(msg)
}
