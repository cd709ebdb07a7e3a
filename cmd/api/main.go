package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/joho/godotenv"

	"github.com/zhouzirui/voicemate/backend/internal/config"
	"github.com/zhouzirui/voicemate/backend/internal/handler"
	agenthandler "github.com/zhouzirui/voicemate/backend/internal/handler/agent"
	"github.com/zhouzirui/voicemate/backend/internal/handler/health"
	speechhandler "github.com/zhouzirui/voicemate/backend/internal/handler/speech"
	"github.com/zhouzirui/voicemate/backend/internal/model/voice"
	"github.com/zhouzirui/voicemate/backend/internal/provider"
	"github.com/zhouzirui/voicemate/backend/internal/service/agent"
	"github.com/zhouzirui/voicemate/backend/internal/service/ai"
	"github.com/zhouzirui/voicemate/backend/internal/service/chat"
	emotionservice "github.com/zhouzirui/voicemate/backend/internal/service/emotion"
	"github.com/zhouzirui/voicemate/backend/internal/service/speech"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	voices := voice.Builtin()
	chatService := chat.NewService(cfg.Conversation.HistoryCap)
	speechService := speech.NewService(cfg.Transcription, cfg.Synthesis)

	// Initialize AI service
	completionStatus := provider.Status{Name: cfg.Completion.Provider, Configured: cfg.Completion.Enabled()}
	var aiService *ai.Service
	if cfg.Completion.Enabled() {
		aiService, err = ai.NewService(ctx, cfg.Completion, cfg.Conversation.PromptHistory)
		if err != nil {
			log.Printf("warning: failed to initialize AI service: %v", err)
			log.Println("continuing without AI functionality - replies will use the fallback text")
			completionStatus.Error = err.Error()
		} else {
			completionStatus.Initialized = true
			log.Printf("AI service initialized provider=%s", aiService.Name())
		}
	} else {
		log.Printf("%s 凭证未配置，跳过 AI 功能初始化", cfg.Completion.Provider)
	}

	// nil *ai.Service must reach the pipeline as a nil interface
	var completer agent.Completer
	var chatModel model.ChatModel
	if aiService != nil {
		completer = aiService
		chatModel = aiService.GetChatModel()
	}

	var styles agent.StyleSelector
	if cfg.Synthesis.AutoStyle {
		styleSvc, err := emotionservice.NewService(ctx, chatModel, voices, emotionservice.Config{Enabled: cfg.Synthesis.StyleClassifier})
		if err != nil {
			log.Printf("warning: failed to initialize style classifier: %v", err)
			styles = speech.NewStyleSelector(voices)
		} else {
			styles = styleSvc
			log.Printf("auto style enabled llm=%t", styleSvc.Enabled())
		}
	}

	pipeline := agent.New(chatService, speechService, completer, speechService, agent.Config{
		MinConfidence: cfg.Transcription.MinConfidence,
		MaxChunkChars: cfg.Synthesis.MaxChars,
		Voice:         cfg.Synthesis.Voice,
		Style:         cfg.Synthesis.Style,
		FallbackVoice: cfg.Synthesis.FallbackVoice,
		FallbackStyle: cfg.Synthesis.FallbackStyle,
		EchoVoice:     cfg.Synthesis.EchoVoice,
		QueryVoice:    cfg.Synthesis.QueryVoice,
		Styles:        styles,
	})

	statuses := func() []provider.Status {
		return append(speechService.Statuses(), completionStatus)
	}

	router := handler.NewRouter(handler.Handlers{
		Agent: agenthandler.New(pipeline, chatService, agenthandler.Options{
			MaxUploadBytes: cfg.Server.MaxUploadBytes,
			QueryMaxChars:  cfg.Conversation.QueryMaxChars,
		}),
		Speech: speechhandler.New(pipeline, speechService, voices, speechhandler.Options{
			MaxUploadBytes: cfg.Server.MaxUploadBytes,
			TTSMaxChars:    cfg.Conversation.TTSMaxChars,
			DefaultVoice:   cfg.Synthesis.Voice,
		}),
		Health: health.New(chatService, statuses, nil),
	})

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("VoiceMate backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
