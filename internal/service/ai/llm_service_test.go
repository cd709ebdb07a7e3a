package ai

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/voicemate/backend/internal/model/chat"
	"github.com/zhouzirui/voicemate/backend/internal/provider"
)

type fakeChatModel struct {
	reply string
	err   error
	seen  []*schema.Message
}

func (f *fakeChatModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	f.seen = input
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := f.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func (f *fakeChatModel) BindTools(_ []*schema.ToolInfo) error {
	return nil
}

func newTestService(t *testing.T, m *fakeChatModel, historyLimit int) *Service {
	t.Helper()
	svc, err := NewServiceWithModel(context.Background(), m, Options{Name: "fake", HistoryLimit: historyLimit})
	require.NoError(t, err)
	return svc
}

func TestCompleteSendsSystemPromptAndHistory(t *testing.T) {
	fake := &fakeChatModel{reply: "  Paris is the capital of France.  "}
	svc := newTestService(t, fake, 20)

	reply, err := svc.Complete(context.Background(), []chat.Message{
		{Role: chat.RoleUser, Content: "hello"},
		{Role: chat.RoleAssistant, Content: "Hi! How can I help?"},
		{Role: chat.RoleUser, Content: "What is the capital of France?"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Paris is the capital of France.", reply)

	require.Len(t, fake.seen, 4)
	assert.Equal(t, schema.System, fake.seen[0].Role)
	assert.Contains(t, fake.seen[0].Content, "remembering what we discussed earlier")
	assert.Equal(t, schema.User, fake.seen[1].Role)
	assert.Equal(t, schema.Assistant, fake.seen[2].Role)
	assert.Equal(t, "What is the capital of France?", fake.seen[3].Content)
}

func TestCompleteTrimsHistoryToLimit(t *testing.T) {
	fake := &fakeChatModel{reply: "ok"}
	svc := newTestService(t, fake, 4)

	var turns []chat.Message
	for i := 0; i < 10; i++ {
		turns = append(turns, chat.Message{Role: chat.RoleUser, Content: fmt.Sprintf("m%d", i)})
	}

	_, err := svc.Complete(context.Background(), turns)
	require.NoError(t, err)
	require.Len(t, fake.seen, 5)
	assert.Equal(t, "m6", fake.seen[1].Content)
	assert.Equal(t, "m9", fake.seen[4].Content)
}

func TestCompleteSingleTurnSkipsContinuationHint(t *testing.T) {
	fake := &fakeChatModel{reply: "hi"}
	svc := newTestService(t, fake, 20)

	_, err := svc.Complete(context.Background(), []chat.Message{{Role: chat.RoleUser, Content: "hello"}})
	require.NoError(t, err)
	assert.NotContains(t, fake.seen[0].Content, "remembering what we discussed earlier")
}

func TestCompleteErrors(t *testing.T) {
	_, err := newTestService(t, &fakeChatModel{reply: "x"}, 20).Complete(context.Background(), nil)
	require.ErrorIs(t, err, provider.ErrInvalidInput)

	_, err = newTestService(t, &fakeChatModel{reply: "   "}, 20).Complete(context.Background(), []chat.Message{{Role: chat.RoleUser, Content: "hi"}})
	require.ErrorIs(t, err, provider.ErrUnavailable)

	_, err = newTestService(t, &fakeChatModel{err: errors.New("connection reset")}, 20).Complete(context.Background(), []chat.Message{{Role: chat.RoleUser, Content: "hi"}})
	require.ErrorIs(t, err, provider.ErrUnavailable)

	denied := &fakeChatModel{err: provider.FromStatus("fake", 401, "bad key")}
	_, err = newTestService(t, denied, 20).Complete(context.Background(), []chat.Message{{Role: chat.RoleUser, Content: "hi"}})
	assert.Equal(t, provider.KindNotConfigured, provider.KindOf(err))
}

func TestNewServiceWithoutCredentials(t *testing.T) {
	_, err := NewServiceWithModel(context.Background(), nil, Options{})
	require.ErrorIs(t, err, provider.ErrNotConfigured)
}

func TestPromptBuilderUsesCustomPrompt(t *testing.T) {
	b := NewPromptBuilder("You are a pirate.")
	assert.Contains(t, b.SystemPrompt(0), "You are a pirate.")
	assert.Contains(t, NewPromptBuilder("").SystemPrompt(0), "voice assistant")
}
