package speech

import (
	"context"
	"log"

	"github.com/zhouzirui/voicemate/backend/internal/config"
	speechmodel "github.com/zhouzirui/voicemate/backend/internal/model/speech"
	"github.com/zhouzirui/voicemate/backend/internal/provider"
)

// Service 组合语音识别与语音合成客户端；未配置的一侧返回 not_configured 错误而不是 panic。
type Service struct {
	transcriber *AssemblyAIClient
	synthesizer *MurfClient

	transcriptionStatus provider.Status
	synthesisStatus     provider.Status
}

// NewService 创建语音服务实例，任一客户端初始化失败只记录日志。
func NewService(tcfg config.TranscriptionConfig, scfg config.SynthesisConfig) *Service {
	s := &Service{
		transcriptionStatus: provider.Status{Name: assemblyAIName, Configured: tcfg.Enabled()},
		synthesisStatus:     provider.Status{Name: murfName, Configured: scfg.Enabled()},
	}

	if tcfg.Enabled() {
		client, err := NewAssemblyAIClient(tcfg)
		if err != nil {
			log.Printf("[speech] assemblyai init failed: %v", err)
			s.transcriptionStatus.Error = err.Error()
		} else {
			s.transcriber = client
			s.transcriptionStatus.Initialized = true
		}
	} else {
		log.Println("[speech] ASSEMBLYAI_API_KEY 未配置，语音识别不可用")
	}

	if scfg.Enabled() {
		client, err := NewMurfClient(scfg)
		if err != nil {
			log.Printf("[speech] murf init failed: %v", err)
			s.synthesisStatus.Error = err.Error()
		} else {
			s.synthesizer = client
			s.synthesisStatus.Initialized = true
		}
	} else {
		log.Println("[speech] MURF_API_KEY 未配置，语音合成不可用")
	}

	return s
}

// Transcribe 语音转文字
func (s *Service) Transcribe(ctx context.Context, audio []byte) (*speechmodel.TranscriptionResult, error) {
	if s == nil || s.transcriber == nil {
		return nil, provider.NotConfigured(assemblyAIName, "ASSEMBLYAI_API_KEY")
	}
	return s.transcriber.Transcribe(ctx, audio)
}

// Synthesize 文字转语音
func (s *Service) Synthesize(ctx context.Context, text, voice, style string) (*speechmodel.SynthesisResult, error) {
	if s == nil || s.synthesizer == nil {
		return nil, provider.NotConfigured(murfName, "MURF_API_KEY")
	}
	return s.synthesizer.Synthesize(ctx, text, voice, style)
}

// Statuses 返回两个语音客户端的健康信息。
func (s *Service) Statuses() []provider.Status {
	if s == nil {
		return nil
	}
	return []provider.Status{s.transcriptionStatus, s.synthesisStatus}
}
