package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/zhouzirui/voicemate/backend/internal/analysis/text"
	"github.com/zhouzirui/voicemate/backend/internal/config"
	"github.com/zhouzirui/voicemate/backend/internal/model/voice"
	"github.com/zhouzirui/voicemate/backend/internal/service/agent"
	"github.com/zhouzirui/voicemate/backend/internal/service/ai"
	"github.com/zhouzirui/voicemate/backend/internal/service/chat"
	"github.com/zhouzirui/voicemate/backend/internal/service/speech"
)

var timeout time.Duration

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "voicectl",
		Short:         "Exercise the voice agent providers from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall request timeout")

	root.AddCommand(newTranscribeCmd())
	root.AddCommand(newSynthesizeCmd())
	root.AddCommand(newChunkCmd())
	root.AddCommand(newChatCmd())
	root.AddCommand(newQueryCmd())
	root.AddCommand(newVoicesCmd())
	return root
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("配置加载失败: %w", err)
	}
	return cfg, nil
}

func withTimeout(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), timeout)
}

// buildPipeline 按服务端相同的方式组装流水线，只是不启动 HTTP。
func buildPipeline(ctx context.Context, cfg *config.Config, store *chat.Service) *agent.Pipeline {
	speechSvc := speech.NewService(cfg.Transcription, cfg.Synthesis)

	var completer agent.Completer
	if cfg.Completion.Enabled() {
		svc, err := ai.NewService(ctx, cfg.Completion, cfg.Conversation.PromptHistory)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: completion unavailable: %v\n", err)
		} else {
			completer = svc
		}
	}

	var styles agent.StyleSelector
	if cfg.Synthesis.AutoStyle {
		styles = speech.NewStyleSelector(voice.Builtin())
	}

	return agent.New(store, speechSvc, completer, speechSvc, agent.Config{
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
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTranscribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transcribe <audio-file>",
		Short: "Transcribe an audio file with AssemblyAI",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			audio, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("读取音频失败: %w", err)
			}

			ctx, cancel := withTimeout(cmd)
			defer cancel()

			res, err := speech.NewService(cfg.Transcription, cfg.Synthesis).Transcribe(ctx, audio)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
}

func newSynthesizeCmd() *cobra.Command {
	var voiceID, style string
	cmd := &cobra.Command{
		Use:   "synthesize <text>",
		Short: "Synthesize text with Murf and print the audio URLs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, cancel := withTimeout(cmd)
			defer cancel()

			pipeline := buildPipeline(ctx, cfg, chat.NewService(cfg.Conversation.HistoryCap))
			result := pipeline.Speak(ctx, strings.Join(args, " "), voiceID, style)
			if err := printJSON(cmd.OutOrStdout(), result); err != nil {
				return err
			}
			if !result.Success {
				return fmt.Errorf("synthesis failed: %s", result.ErrorMessage)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&voiceID, "voice", "", "Murf voice id (default MURF_VOICE)")
	cmd.Flags().StringVar(&style, "style", "", "Murf style")
	return cmd
}

func newChunkCmd() *cobra.Command {
	var maxLen int
	cmd := &cobra.Command{
		Use:   "chunk [text]",
		Short: "Show how text is split for synthesis (reads stdin without arguments)",
		RunE: func(cmd *cobra.Command, args []string) error {
			input := strings.Join(args, " ")
			if len(args) == 0 {
				raw, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				input = string(raw)
			}

			chunks, err := text.ChunkForSynthesis(input, maxLen)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for i, c := range chunks {
				fmt.Fprintf(out, "[%d] (%d chars) %s\n", i+1, len([]rune(c)), c)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&maxLen, "max", 3000, "maximum characters per chunk")
	return cmd
}

func newChatCmd() *cobra.Command {
	var sessionID string
	cmd := &cobra.Command{
		Use:   "chat <audio-file>...",
		Short: "Run one conversation turn per audio file against a local session",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, cancel := withTimeout(cmd)
			defer cancel()

			store := chat.NewService(cfg.Conversation.HistoryCap)
			if sessionID == "" {
				sessionID = store.CreateSession(ctx).ID
			}
			pipeline := buildPipeline(ctx, cfg, store)

			for _, path := range args {
				audio, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("读取音频失败: %w", err)
				}
				if err := printJSON(cmd.OutOrStdout(), pipeline.HandleTurn(ctx, sessionID, audio)); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "session id (generated when empty)")
	return cmd
}

func newQueryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "query <text>",
		Short: "Ask the language model a single question and synthesize the answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, cancel := withTimeout(cmd)
			defer cancel()

			pipeline := buildPipeline(ctx, cfg, chat.NewService(cfg.Conversation.HistoryCap))
			return printJSON(cmd.OutOrStdout(), pipeline.QueryText(ctx, strings.Join(args, " ")))
		},
	}
}

func newVoicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "voices",
		Short: "List the built-in voice catalog",
		RunE: func(cmd *cobra.Command, _ []string) error {
			catalog := voice.Builtin()
			out := cmd.OutOrStdout()
			for _, v := range catalog.List() {
				fmt.Fprintf(out, "%-16s %-10s %-6s %s\n", v.ID, v.Name, v.Language, strings.Join(v.Styles, ","))
			}
			return nil
		},
	}
}
