package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Store persists whole conversations. Save replaces the stored record in
// one write.
type Store interface {
	Save(ctx context.Context, c *Conversation) error
	Load(ctx context.Context, id string) (*Conversation, error)
	Delete(ctx context.Context, id string) error
}

type RedisStore struct {
	redis  *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
}

func NewRedisStore(client *redis.Client, ttl time.Duration, tracer trace.Tracer) *RedisStore {
	if client == nil {
		panic("conversation: redis client cannot be nil")
	}
	if tracer == nil {
		tracer = otel.Tracer("booking/conversation/store")
	}
	return &RedisStore{redis: client, ttl: ttl, tracer: tracer}
}

func storeKey(id string) string {
	return "conversation:" + id
}

func (s *RedisStore) Save(ctx context.Context, c *Conversation) error {
	ctx, span := s.tracer.Start(ctx, "conversation.save", trace.WithAttributes(attribute.String("booking.conversation_id", c.ID)))
	defer span.End()

	data, err := json.Marshal(c)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: marshal %s: %w", c.ID, err)
	}
	if err := s.redis.Set(ctx, storeKey(c.ID), data, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: persist %s: %w", c.ID, err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, id string) (*Conversation, error) {
	ctx, span := s.tracer.Start(ctx, "conversation.load", trace.WithAttributes(attribute.String("booking.conversation_id", id)))
	defer span.End()

	data, err := s.redis.Get(ctx, storeKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrConversationNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: load %s: %w", id, err)
	}

	var c Conversation
	if err := json.Unmarshal(data, &c); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: decode %s: %w", id, err)
	}
	return &c, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "conversation.delete")
	defer span.End()

	n, err := s.redis.Del(ctx, storeKey(id)).Result()
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: delete %s: %w", id, err)
	}
	if n == 0 {
		return ErrConversationNotFound
	}
	return nil
}

// MemoryStore keeps encoded conversations in process, expiring them after
// ttl like the redis store does.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]memoryItem
	ttl   time.Duration
	now   func() time.Time
}

type memoryItem struct {
	data    []byte
	expires time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{items: make(map[string]memoryItem), ttl: ttl, now: time.Now}
}

func (s *MemoryStore) Save(_ context.Context, c *Conversation) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("conversation: marshal %s: %w", c.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	item := memoryItem{data: data}
	if s.ttl > 0 {
		item.expires = s.now().Add(s.ttl)
	}
	s.items[c.ID] = item
	return nil
}

func (s *MemoryStore) Load(_ context.Context, id string) (*Conversation, error) {
	s.mu.Lock()
	item, ok := s.lookup(id)
	s.mu.Unlock()
	if !ok {
		return nil, ErrConversationNotFound
	}

	var c Conversation
	if err := json.Unmarshal(item.data, &c); err != nil {
		return nil, fmt.Errorf("conversation: decode %s: %w", id, err)
	}
	return &c, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lookup(id); !ok {
		return ErrConversationNotFound
	}
	delete(s.items, id)
	return nil
}

// lookup must be called with mu held.
func (s *MemoryStore) lookup(id string) (memoryItem, bool) {
	item, ok := s.items[id]
	if !ok {
		return memoryItem{}, false
	}
	if !item.expires.IsZero() && s.now().After(item.expires) {
		delete(s.items, id)
		return memoryItem{}, false
	}
	return item, true
}
