package conversation

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/conversational-appointment-booking/internal/llm"
	redisclient "github.com/hackgods/conversational-appointment-booking/internal/redis"
	"github.com/hackgods/conversational-appointment-booking/internal/workflow"
)

// echoTurner replies with the message count and moves to GATHERING_INFO.
type echoTurner struct {
	mu      sync.Mutex
	turns   int
	block   chan struct{}
	started chan struct{}
}

func (e *echoTurner) StartConversation(context.Context) string { return "Hello! Welcome to BookaDoc." }

func (e *echoTurner) ProcessTurn(_ context.Context, msg string, durable workflow.TurnContext) workflow.TurnContext {
	if e.started != nil {
		e.started <- struct{}{}
	}
	if e.block != nil {
		<-e.block
	}
	e.mu.Lock()
	e.turns++
	n := e.turns
	e.mu.Unlock()

	durable.UserMessage = msg
	durable.Phase = workflow.PhaseGatheringInfo
	durable.Response = fmt.Sprintf("reply %d to %q", n, msg)
	return durable
}

func newService(turner Turner, wait time.Duration) *Service {
	return NewService(NewMemoryStore(time.Hour), turner, redisclient.NewLocalLocker(wait), zerolog.Nop())
}

func TestStartGreets(t *testing.T) {
	svc := newService(&echoTurner{}, time.Second)

	c, err := svc.Start(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, c.ID, c.Context.ConversationID)
	assert.Equal(t, workflow.PhaseStart, c.Context.Phase)
	require.Len(t, c.Messages, 1)
	assert.Equal(t, llm.RoleAssistant, c.Messages[0].Role)
	assert.Equal(t, "Hello! Welcome to BookaDoc.", c.Messages[0].Content)

	stored, err := svc.Get(context.Background(), c.ID)
	require.NoError(t, err)
	require.Len(t, stored.Messages, 1)
	assert.Equal(t, c.Messages[0].Role, stored.Messages[0].Role)
	assert.Equal(t, c.Messages[0].Content, stored.Messages[0].Content)
	assert.WithinDuration(t, c.Messages[0].Timestamp, stored.Messages[0].Timestamp, 0)
	assert.Equal(t, time.UTC, stored.Messages[0].Timestamp.Location())
}

func TestSendAppendsTranscript(t *testing.T) {
	svc := newService(&echoTurner{}, time.Second)
	ctx := context.Background()
	c, err := svc.Start(ctx)
	require.NoError(t, err)

	c, err = svc.Send(ctx, c.ID, "  I need a doctor  ")
	require.NoError(t, err)

	assert.Equal(t, workflow.PhaseGatheringInfo, c.Context.Phase)
	require.Len(t, c.Messages, 3)
	assert.Equal(t, Message{Role: llm.RoleUser, Content: "I need a doctor", Timestamp: c.Messages[1].Timestamp}, c.Messages[1])
	assert.Equal(t, `reply 1 to "I need a doctor"`, c.Messages[2].Content)

	stored, err := svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Messages, 3)
	assert.Equal(t, workflow.PhaseGatheringInfo, stored.Context.Phase)
}

func TestSendValidation(t *testing.T) {
	svc := newService(&echoTurner{}, time.Second)
	ctx := context.Background()

	_, err := svc.Send(ctx, "missing", "hi")
	assert.ErrorIs(t, err, ErrConversationNotFound)

	_, err = svc.Send(ctx, "missing", "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)

	long := make([]byte, maxMessageLen+1)
	for i := range long {
		long[i] = 'a'
	}
	_, err = svc.Send(ctx, "missing", string(long))
	assert.ErrorIs(t, err, ErrMessageTooLong)
}

func TestSendRejectsOverlappingTurns(t *testing.T) {
	turner := &echoTurner{block: make(chan struct{}), started: make(chan struct{}, 1)}
	svc := newService(turner, 0)
	ctx := context.Background()
	c, err := svc.Start(ctx)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Send(ctx, c.ID, "first")
		done <- err
	}()
	<-turner.started

	_, err = svc.Send(ctx, c.ID, "second")
	assert.ErrorIs(t, err, ErrConversationBusy)

	close(turner.block)
	require.NoError(t, <-done)

	stored, err := svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Messages, 3)
}

func TestSendSerializesTurns(t *testing.T) {
	svc := newService(&echoTurner{}, 5*time.Second)
	ctx := context.Background()
	c, err := svc.Start(ctx)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Send(ctx, c.ID, fmt.Sprintf("message %d", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	stored, err := svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Messages, 1+2*8, "no turn was lost")
}

func TestResetStartsOver(t *testing.T) {
	svc := newService(&echoTurner{}, time.Second)
	ctx := context.Background()
	c, err := svc.Start(ctx)
	require.NoError(t, err)
	_, err = svc.Send(ctx, c.ID, "hello")
	require.NoError(t, err)

	reset, err := svc.Reset(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, reset.ID)
	assert.Equal(t, workflow.PhaseStart, reset.Context.Phase)
	assert.Len(t, reset.Messages, 1)

	require.NoError(t, svc.Delete(ctx, c.ID))
	_, err = svc.Reset(ctx, c.ID)
	assert.ErrorIs(t, err, ErrConversationNotFound)
}
