package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/conversational-appointment-booking/internal/llm"
	redisclient "github.com/hackgods/conversational-appointment-booking/internal/redis"
	"github.com/hackgods/conversational-appointment-booking/internal/workflow"
)

// Turner runs the booking flow. *workflow.Controller implements it.
type Turner interface {
	StartConversation(ctx context.Context) string
	ProcessTurn(ctx context.Context, userMessage string, durable workflow.TurnContext) workflow.TurnContext
}

type Service struct {
	store  Store
	turner Turner
	locker redisclient.Locker
	logger zerolog.Logger
	now    func() time.Time
}

func NewService(store Store, turner Turner, locker redisclient.Locker, logger zerolog.Logger) *Service {
	return &Service{store: store, turner: turner, locker: locker, logger: logger, now: storedNow}
}

// storedNow is the wall clock in the form the stores round-trip unchanged.
func storedNow() time.Time { return time.Now().UTC().Round(0) }

// Start opens a conversation with the greeting as its first message.
func (s *Service) Start(ctx context.Context) (*Conversation, error) {
	id := uuid.NewString()
	now := s.now()
	c := &Conversation{ID: id, CreatedAt: now}
	s.greet(ctx, c, now)

	if err := s.store.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("start conversation: %w", err)
	}
	s.logger.Info().Str("conversation_id", id).Msg("conversation started")
	return c, nil
}

func (s *Service) greet(ctx context.Context, c *Conversation, now time.Time) {
	greeting := s.turner.StartConversation(ctx)
	c.Context = workflow.NewTurnContext(c.ID)
	c.Context.Response = greeting
	c.Context.History = []llm.Message{llm.Assistant(greeting)}
	c.Messages = []Message{{Role: llm.RoleAssistant, Content: greeting, Timestamp: now}}
	c.UpdatedAt = now
}

// Send runs one turn. Turns for the same conversation are serialized; the
// updated conversation is saved whole or not at all.
func (s *Service) Send(ctx context.Context, id, text string) (*Conversation, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	if utf8.RuneCountInString(text) > maxMessageLen {
		return nil, ErrMessageTooLong
	}

	var out *Conversation
	err := s.locker.WithLock(ctx, redisclient.ConversationKey(id), func(ctx context.Context) error {
		c, err := s.store.Load(ctx, id)
		if err != nil {
			return err
		}

		received := s.now()
		c.Context = s.turner.ProcessTurn(ctx, text, c.Context)
		c.Context.ConversationID = c.ID

		replied := s.now()
		c.Messages = append(c.Messages,
			Message{Role: llm.RoleUser, Content: text, Timestamp: received},
			Message{Role: llm.RoleAssistant, Content: c.Context.Response, Timestamp: replied},
		)
		c.UpdatedAt = replied

		if err := s.store.Save(ctx, c); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrConversationBusy
		}
		if errors.Is(err, ErrConversationNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("process message: %w", err)
	}

	s.logger.Debug().
		Str("conversation_id", id).
		Str("phase", string(out.Context.Phase)).
		Msg("turn processed")
	return out, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Conversation, error) {
	return s.store.Load(ctx, id)
}

// Reset starts the conversation over under the same id.
func (s *Service) Reset(ctx context.Context, id string) (*Conversation, error) {
	var out *Conversation
	err := s.locker.WithLock(ctx, redisclient.ConversationKey(id), func(ctx context.Context) error {
		c, err := s.store.Load(ctx, id)
		if err != nil {
			return err
		}
		s.greet(ctx, c, s.now())
		if err := s.store.Save(ctx, c); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrConversationBusy
		}
		if errors.Is(err, ErrConversationNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("reset conversation: %w", err)
	}
	s.logger.Info().Str("conversation_id", id).Msg("conversation reset")
	return out, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}
