package emotion

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/voicemate/backend/internal/model/voice"
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

func (f *fakeChatModel) BindTools(_ []*schema.ToolInfo) error { return nil }

func testVoices() voice.Store {
	return voice.NewMemoryStore([]voice.Voice{
		{ID: "en-US-claire", Styles: []string{"Neutral", "Cheerful", "Sad", "Calm"}},
	}, nil)
}

func TestSelectUsesClassifier(t *testing.T) {
	fake := &fakeChatModel{reply: "Sure: {\"emotion\": \"sad\", \"scale\": 3, \"confidence\": 0.9}"}
	svc, err := NewService(context.Background(), fake, testVoices(), Config{Enabled: true})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	got := svc.Select(context.Background(), "en-US-claire", "My dog died", "I'm so sorry to hear that.", "Cheerful")
	if got != "Sad" {
		t.Fatalf("expected Sad, got %q", got)
	}
	if len(fake.seen) != 2 || !strings.Contains(fake.seen[1].Content, "My dog died") {
		t.Fatalf("unexpected prompt %+v", fake.seen)
	}
	if !strings.Contains(fake.seen[0].Content, `{"emotion"`) {
		t.Fatalf("system prompt should carry literal json braces, got %q", fake.seen[0].Content)
	}
}

func TestSelectFallsBackOnClassifierError(t *testing.T) {
	fake := &fakeChatModel{err: errors.New("quota")}
	svc, err := NewService(context.Background(), fake, testVoices(), Config{Enabled: true})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	got := svc.Select(context.Background(), "en-US-claire", "I feel so sad and lonely", "Tell me more", "Cheerful")
	if got != "Calm" {
		t.Fatalf("expected heuristic Calm, got %q", got)
	}
}

func TestSelectIgnoresLowConfidence(t *testing.T) {
	fake := &fakeChatModel{reply: `{"emotion":"angry","scale":4,"confidence":0.2}`}
	svc, err := NewService(context.Background(), fake, testVoices(), Config{Enabled: true})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	if got := svc.Select(context.Background(), "en-US-claire", "ok", "Sure.", "Neutral"); got != "Neutral" {
		t.Fatalf("expected fallback Neutral, got %q", got)
	}
}

func TestDisabledWithoutModel(t *testing.T) {
	svc, err := NewService(context.Background(), nil, testVoices(), Config{Enabled: true})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if svc.Enabled() {
		t.Fatalf("service without model must not be enabled")
	}
}

func TestParseClassifierOutput(t *testing.T) {
	if _, err := parseClassifierOutput("no json here"); err == nil {
		t.Fatalf("expected error")
	}
	payload, err := parseClassifierOutput("```json\n{\"emotion\":\"HAPPY\",\"scale\":9}\n```")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	label, ok := parseEmotionLabel(payload.Emotion)
	if !ok || label != "happy" {
		t.Fatalf("unexpected label %q", label)
	}
	if clampScale(payload.Scale) != 5 {
		t.Fatalf("scale should clamp to 5")
	}
}
