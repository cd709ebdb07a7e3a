package emotion

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	analysis "github.com/zhouzirui/voicemate/backend/internal/analysis/emotion"
	"github.com/zhouzirui/voicemate/backend/internal/model/voice"
	speechsvc "github.com/zhouzirui/voicemate/backend/internal/service/speech"
)

const defaultTimeout = 5 * time.Second

// Config 控制情绪分类服务的行为。
type Config struct {
	Enabled       bool
	Timeout       time.Duration
	MinConfidence float32
}

// Service 使用大模型判断一轮对话的情绪并映射为 Murf 风格，失败时回退到关键词启发式。
type Service struct {
	enabled    bool
	classifier compose.Runnable[map[string]any, *schema.Message]
	voices     voice.Store
	heuristic  *speechsvc.StyleSelector
	cfg        Config
}

// NewService 创建情绪分类服务。chatModel 可重用对话所用的模型实例，为空时只使用启发式。
func NewService(ctx context.Context, chatModel model.ChatModel, voices voice.Store, cfg Config) (*Service, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = 0.5
	}

	svc := &Service{
		enabled:   cfg.Enabled && chatModel != nil,
		voices:    voices,
		heuristic: speechsvc.NewStyleSelector(voices),
		cfg:       cfg,
	}
	if !svc.enabled {
		return svc, nil
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage(classifierSystemPrompt),
		schema.UserMessage(classifierUserPrompt),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile emotion classifier chain: %w", err)
	}

	svc.classifier = runnable
	return svc, nil
}

// Enabled 返回是否使用大模型分类。
func (s *Service) Enabled() bool {
	return s != nil && s.enabled && s.classifier != nil
}

// Select 返回 voiceID 在本轮应使用的风格，声音不支持该风格时返回 fallback。
func (s *Service) Select(ctx context.Context, voiceID, userText, replyText, fallback string) string {
	if !s.Enabled() {
		return s.heuristic.Select(ctx, voiceID, userText, replyText, fallback)
	}

	decision, ok := s.classify(ctx, userText, replyText)
	if !ok {
		return s.heuristic.Select(ctx, voiceID, userText, replyText, fallback)
	}
	return speechsvc.ResolveStyle(s.voices, voiceID, decision, fallback)
}

func (s *Service) classify(ctx context.Context, userText, replyText string) (analysis.Decision, bool) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	msg, err := s.classifier.Invoke(ctx, map[string]any{
		"user_message":    strings.TrimSpace(userText),
		"assistant_reply": strings.TrimSpace(replyText),
	})
	if err != nil {
		log.Printf("[emotion] classifier invoke failed, use fallback: %v", err)
		return analysis.Decision{}, false
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return analysis.Decision{}, false
	}

	result, err := parseClassifierOutput(msg.Content)
	if err != nil {
		log.Printf("[emotion] classifier output parse failed, use fallback: %v", err)
		return analysis.Decision{}, false
	}

	label, ok := parseEmotionLabel(result.Emotion)
	if !ok || result.Confidence < s.cfg.MinConfidence {
		return analysis.Decision{}, false
	}

	scale := clampScale(result.Scale)
	return analysis.Decision{Emotion: label, Scale: scale, Score: int(scale * 2)}, true
}

// parseClassifierOutput 解析大模型返回的 JSON，容忍前后多余文本。
func parseClassifierOutput(content string) (*classifierPayload, error) {
	trimmed := strings.TrimSpace(content)
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start == -1 || end == -1 || end <= start {
		return nil, fmt.Errorf("missing json object")
	}

	payload := &classifierPayload{}
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func parseEmotionLabel(raw string) (analysis.Label, bool) {
	switch analysis.Label(strings.ToLower(strings.TrimSpace(raw))) {
	case analysis.Neutral:
		return analysis.Neutral, true
	case analysis.Happy:
		return analysis.Happy, true
	case analysis.Sad:
		return analysis.Sad, true
	case analysis.Angry:
		return analysis.Angry, true
	case analysis.Excited:
		return analysis.Excited, true
	case analysis.Tender:
		return analysis.Tender, true
	case analysis.Comfort:
		return analysis.Comfort, true
	case analysis.Magnetic:
		return analysis.Magnetic, true
	default:
		return "", false
	}
}

func clampScale(val float32) float32 {
	if val <= 0 {
		return 3
	}
	if val < 1 {
		return 1
	}
	if val > 5 {
		return 5
	}
	return val
}

type classifierPayload struct {
	Emotion    string  `json:"emotion"`
	Scale      float32 `json:"scale"`
	Confidence float32 `json:"confidence"`
}

const classifierSystemPrompt = "You classify the emotional tone a voice assistant should use when speaking its reply. " +
	"Read the user's words and the assistant's reply. Answer with one JSON object and nothing else: " +
	`{{"emotion": one of neutral/happy/sad/angry/excited/tender/comfort/magnetic, "scale": number 1-5, "confidence": number 0-1}}`

const classifierUserPrompt = "User said:\n{user_message}\n\nAssistant will reply:\n{assistant_reply}"
