package speech

import (
	"context"

	"github.com/zhouzirui/voicemate/backend/internal/analysis/emotion"
	"github.com/zhouzirui/voicemate/backend/internal/model/voice"
)

// StyleSelector 根据对话情绪为指定声音挑选 Murf 风格，声音不支持时退回默认风格。
type StyleSelector struct {
	voices voice.Store
}

// NewStyleSelector 创建风格选择器。
func NewStyleSelector(voices voice.Store) *StyleSelector {
	return &StyleSelector{voices: voices}
}

// Select 返回 voiceID 在本轮对话中应使用的风格。
func (s *StyleSelector) Select(_ context.Context, voiceID, userText, replyText, fallback string) string {
	decision := emotion.Analyze(userText, replyText)
	return ResolveStyle(s.voices, voiceID, decision, fallback)
}

// ResolveStyle 把情绪判定映射为声音支持的风格。
func ResolveStyle(voices voice.Store, voiceID string, decision emotion.Decision, fallback string) string {
	if decision.Emotion == emotion.Neutral || decision.Score <= 0 {
		return fallback
	}

	style := emotion.Style(decision.Emotion)
	if style == "" {
		return fallback
	}

	if voices == nil {
		return fallback
	}
	v, ok := voices.FindByID(voiceID)
	if !ok || !v.SupportsStyle(style) {
		return fallback
	}
	return style
}
