package conversation

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/conversational-appointment-booking/internal/intake"
	"github.com/hackgods/conversational-appointment-booking/internal/workflow"
)

func sampleConversation(id string) *Conversation {
	tc := workflow.NewTurnContext(id)
	tc.Phase = workflow.PhaseGatheringInfo
	tc.PatientInfo = intake.PatientInfo{Name: "Aisha Khan"}
	tc.Response = "Thanks Aisha!"
	now := time.Now().UTC().Truncate(time.Second)
	return &Conversation{
		ID:        id,
		Context:   tc,
		Messages:  []Message{{Role: "assistant", Content: "Hello!", Timestamp: now}},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestRedisStoreRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	store := NewRedisStore(client, time.Hour, nil)
	ctx := context.Background()

	c := sampleConversation("c-1")
	require.NoError(t, store.Save(ctx, c))
	assert.True(t, mr.Exists("conversation:c-1"))
	assert.Equal(t, time.Hour, mr.TTL("conversation:c-1"))

	got, err := store.Load(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, c.Context.Phase, got.Context.Phase)
	assert.Equal(t, "Aisha Khan", got.Context.PatientInfo.Name)
	require.Len(t, got.Messages, 1)
	assert.True(t, c.CreatedAt.Equal(got.CreatedAt))

	require.NoError(t, store.Delete(ctx, "c-1"))
	_, err = store.Load(ctx, "c-1")
	assert.ErrorIs(t, err, ErrConversationNotFound)
	assert.ErrorIs(t, store.Delete(ctx, "c-1"), ErrConversationNotFound)
}

func TestRedisStoreExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	store := NewRedisStore(client, time.Minute, nil)
	require.NoError(t, store.Save(context.Background(), sampleConversation("c-2")))

	mr.FastForward(2 * time.Minute)
	_, err := store.Load(context.Background(), "c-2")
	assert.ErrorIs(t, err, ErrConversationNotFound)
}

func TestRedisStoreCorruptRecord(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	require.NoError(t, mr.Set("conversation:bad", "{not json"))
	_, err := NewRedisStore(client, time.Minute, nil).Load(context.Background(), "bad")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrConversationNotFound)
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	now := time.Now()
	store.now = func() time.Time { return now }
	ctx := context.Background()

	c := sampleConversation("c-3")
	require.NoError(t, store.Save(ctx, c))

	c.Context.PatientInfo.Name = "changed after save"
	got, err := store.Load(ctx, "c-3")
	require.NoError(t, err)
	assert.Equal(t, "Aisha Khan", got.Context.PatientInfo.Name)

	now = now.Add(2 * time.Minute)
	_, err = store.Load(ctx, "c-3")
	assert.ErrorIs(t, err, ErrConversationNotFound)
}
