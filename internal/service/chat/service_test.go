package chat_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	model "github.com/zhouzirui/voicemate/backend/internal/model/chat"
	chat "github.com/zhouzirui/voicemate/backend/internal/service/chat"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func userMsg(content string) model.Message {
	return model.Message{Role: model.RoleUser, Content: content}
}

func assistantMsg(content string) model.Message {
	return model.Message{Role: model.RoleAssistant, Content: content}
}

func TestGetOrCreateIsLazyAndStable(t *testing.T) {
	svc := chat.NewService(20)
	ctx := context.Background()

	first := svc.GetOrCreate(ctx, "abc")
	assert.Equal(t, "abc", first.ID)
	assert.Empty(t, first.Messages)

	second := svc.GetOrCreate(ctx, "abc")
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.Equal(t, 1, svc.Stats(ctx).Sessions)
}

func TestCreateSessionGeneratesID(t *testing.T) {
	svc := chat.NewService(20)
	ctx := context.Background()

	a := svc.CreateSession(ctx)
	b := svc.CreateSession(ctx)
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Len(t, svc.ListSessions(ctx), 2)
}

func TestAppendCreatesSessionAndKeepsOrder(t *testing.T) {
	svc := chat.NewService(20)
	ctx := context.Background()

	require.NoError(t, svc.Append(ctx, "s1", userMsg("hello")))
	require.NoError(t, svc.Append(ctx, "s1", assistantMsg("hi there")))

	history := svc.History(ctx, "s1")
	require.Len(t, history, 2)
	assert.Equal(t, model.RoleUser, history[0].Role)
	assert.Equal(t, "hello", history[0].Content)
	assert.Equal(t, model.RoleAssistant, history[1].Role)
	assert.NotEmpty(t, history[0].ID)
	assert.False(t, history[0].Timestamp.IsZero())
}

func TestAppendValidates(t *testing.T) {
	svc := chat.NewService(20)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Append(ctx, " ", userMsg("x")), chat.ErrSessionRequired)
	assert.ErrorIs(t, svc.Append(ctx, "s", model.Message{Role: "system", Content: "x"}), chat.ErrInvalidRole)
}

func TestAppendEvictsOldestBeyondCap(t *testing.T) {
	svc := chat.NewService(20)
	ctx := context.Background()

	for turn := 1; turn <= 25; turn++ {
		require.NoError(t, svc.Append(ctx, "long", userMsg(fmt.Sprintf("question %d", turn))))
		require.NoError(t, svc.Append(ctx, "long", assistantMsg(fmt.Sprintf("answer %d", turn))))
	}

	history := svc.History(ctx, "long")
	require.Len(t, history, 20)
	for i, msg := range history {
		turn := 16 + i/2
		if i%2 == 0 {
			assert.Equal(t, fmt.Sprintf("question %d", turn), msg.Content)
		} else {
			assert.Equal(t, fmt.Sprintf("answer %d", turn), msg.Content)
		}
	}
}

func TestHistoryCapHoldsForAnyLength(t *testing.T) {
	for _, n := range []int{1, 3, 7, 8, 50} {
		svc := chat.NewService(7)
		ctx := context.Background()
		for i := 0; i < n; i++ {
			require.NoError(t, svc.Append(ctx, "s", userMsg(fmt.Sprint(i))))
		}

		history := svc.History(ctx, "s")
		want := n
		if want > 7 {
			want = 7
		}
		require.Len(t, history, want)
		assert.Equal(t, fmt.Sprint(n-1), history[len(history)-1].Content)
		assert.Equal(t, fmt.Sprint(n-want), history[0].Content)
	}
}

func TestHistoryReturnsCopyWithoutCreating(t *testing.T) {
	svc := chat.NewService(20)
	ctx := context.Background()

	assert.Empty(t, svc.History(ctx, "ghost"))
	assert.Equal(t, 0, svc.Stats(ctx).Sessions)

	require.NoError(t, svc.Append(ctx, "s", userMsg("original")))
	history := svc.History(ctx, "s")
	history[0].Content = "mutated"
	assert.Equal(t, "original", svc.History(ctx, "s")[0].Content)
}

func TestClearKeepsSessionUsable(t *testing.T) {
	svc := chat.NewService(20)
	ctx := context.Background()

	require.NoError(t, svc.Append(ctx, "s", userMsg("a")))
	require.NoError(t, svc.Append(ctx, "s", assistantMsg("b")))

	assert.Equal(t, 2, svc.Clear(ctx, "s"))
	assert.Empty(t, svc.History(ctx, "s"))
	assert.Equal(t, 0, svc.Clear(ctx, "s"))
	assert.Equal(t, 0, svc.Clear(ctx, "unknown"))

	sessions := svc.ListSessions(ctx)
	require.Len(t, sessions, 1)
	assert.Equal(t, 0, sessions[0].MessageCount)

	require.NoError(t, svc.Append(ctx, "s", userMsg("again")))
	assert.Len(t, svc.History(ctx, "s"), 1)
}

func TestListSessionsSortedByLastAccess(t *testing.T) {
	clock := newFakeClock()
	svc := chat.NewService(20, chat.WithClock(clock.Now))
	ctx := context.Background()

	require.NoError(t, svc.Append(ctx, "old", userMsg("1")))
	require.NoError(t, svc.Append(ctx, "new", userMsg("2")))
	require.NoError(t, svc.Append(ctx, "new", assistantMsg("3")))
	svc.GetOrCreate(ctx, "empty")

	sessions := svc.ListSessions(ctx)
	require.Len(t, sessions, 3)
	assert.Equal(t, []string{"empty", "new", "old"}, []string{sessions[0].ID, sessions[1].ID, sessions[2].ID})

	assert.Nil(t, sessions[0].FirstMessageAt)
	assert.Equal(t, 2, sessions[1].MessageCount)
	require.NotNil(t, sessions[1].FirstMessageAt)
	assert.True(t, sessions[1].LastMessageAt.After(*sessions[1].FirstMessageAt))

	stats := svc.Stats(ctx)
	assert.Equal(t, 3, stats.Sessions)
	assert.Equal(t, 3, stats.Messages)
}

func TestConcurrentAppendsAcrossSessions(t *testing.T) {
	svc := chat.NewService(20)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			sessionID := fmt.Sprintf("s%d", id)
			for j := 0; j < 30; j++ {
				_ = svc.Append(ctx, sessionID, userMsg(fmt.Sprint(j)))
				_ = svc.History(ctx, sessionID)
			}
		}(i)
	}
	wg.Wait()

	stats := svc.Stats(ctx)
	assert.Equal(t, 8, stats.Sessions)
	assert.Equal(t, 8*20, stats.Messages)
}
