// Package agent runs a voice turn: transcription, completion and synthesis,
// falling back per stage so a reply is produced whenever the user was heard.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime/debug"
	"strings"
	"time"

	"github.com/zhouzirui/voicemate/backend/internal/analysis/text"
	"github.com/zhouzirui/voicemate/backend/internal/model/chat"
	"github.com/zhouzirui/voicemate/backend/internal/model/speech"
	"github.com/zhouzirui/voicemate/backend/internal/provider"
)

// Transcriber converts recorded audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (*speech.TranscriptionResult, error)
}

// Completer produces the assistant reply for a conversation, oldest message first.
type Completer interface {
	Complete(ctx context.Context, turns []chat.Message) (string, error)
}

// Synthesizer turns text into hosted audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice, style string) (*speech.SynthesisResult, error)
}

// Store is the slice of the session store the pipeline writes through.
type Store interface {
	Append(ctx context.Context, sessionID string, message chat.Message) error
	History(ctx context.Context, sessionID string) []chat.Message
}

// StyleSelector picks a speaking style from the exchange.
type StyleSelector interface {
	Select(ctx context.Context, voiceID, userText, replyText, fallback string) string
}

// Config holds pipeline tunables.
type Config struct {
	MinConfidence float64
	MaxChunkChars int

	Voice         string
	Style         string
	FallbackVoice string
	FallbackStyle string
	EchoVoice     string
	QueryVoice    string
	NeutralStyle  string

	Styles StyleSelector
}

func (c Config) withDefaults() Config {
	if c.MaxChunkChars <= 0 {
		c.MaxChunkChars = 3000
	}
	if c.Voice == "" {
		c.Voice = "en-US-claire"
	}
	if c.Style == "" {
		c.Style = "Cheerful"
	}
	if c.FallbackVoice == "" {
		c.FallbackVoice = "en-US-ken"
	}
	if c.NeutralStyle == "" {
		c.NeutralStyle = "Neutral"
	}
	if c.FallbackStyle == "" {
		c.FallbackStyle = c.NeutralStyle
	}
	if c.EchoVoice == "" {
		c.EchoVoice = "en-US-natalie"
	}
	if c.QueryVoice == "" {
		c.QueryVoice = "en-US-marcus"
	}
	return c
}

// Pipeline wires the three adapters to the session store. Nil adapters report not_configured.
type Pipeline struct {
	store       Store
	transcriber Transcriber
	completer   Completer
	synthesizer Synthesizer
	cfg         Config
}

// New creates a Pipeline.
func New(store Store, transcriber Transcriber, completer Completer, synthesizer Synthesizer, cfg Config) *Pipeline {
	return &Pipeline{
		store:       store,
		transcriber: transcriber,
		completer:   completer,
		synthesizer: synthesizer,
		cfg:         cfg.withDefaults(),
	}
}

// HandleTurn processes one spoken user turn for sessionID.
func (p *Pipeline) HandleTurn(ctx context.Context, sessionID string, audio []byte) TurnResult {
	result := TurnResult{SessionID: sessionID}
	var status statusLine

	if strings.TrimSpace(sessionID) == "" {
		result.fail(ReasonGeneral, provider.New(provider.KindInvalidInput, "session", "session id is required"))
		result.FallbackUsed = true
		result.setReply(FallbackMessage(ReasonGeneral))
		result.Message = "Session ID is required"
		return result
	}

	transcript, err := p.transcribe(ctx, &result, audio)
	if err != nil {
		status.add(false, "", "Speech recognition failed")
		reason := result.fail(ReasonTranscription, err)
		result.FallbackUsed = true
		result.setReply(FallbackMessage(reason))
		result.Message = status.String()
		result.MessageCount = len(p.store.History(ctx, sessionID))
		log.Printf("[agent] session=%s transcription failed kind=%s: %v", sessionID, result.ErrorKind, err)
		return result
	}
	status.add(true, "Speech recognized", "")
	result.Transcript = transcript

	if err := p.store.Append(ctx, sessionID, chat.Message{Role: chat.RoleUser, Content: transcript}); err != nil {
		result.fail(ReasonGeneral, provider.Wrap(provider.KindInvalidInput, "store", err))
		result.setReply(FallbackMessage(ReasonGeneral))
		result.FallbackUsed = true
		result.Message = status.String()
		return result
	}

	reply, err := p.complete(ctx, &result, p.store.History(ctx, sessionID))
	if err != nil {
		status.add(false, "", "Using fallback response")
		reason := result.fail(ReasonCompletion, err)
		result.FallbackUsed = true
		reply = FallbackMessage(reason)
		log.Printf("[agent] session=%s completion failed kind=%s: %v", sessionID, result.ErrorKind, err)
	} else {
		status.add(true, "AI response generated", "")
	}
	result.setReply(reply)

	if err := p.store.Append(ctx, sessionID, chat.Message{Role: chat.RoleAssistant, Content: reply}); err != nil {
		log.Printf("[agent] session=%s failed to store reply: %v", sessionID, err)
	}

	voice, style := p.cfg.Voice, p.cfg.Style
	if result.FallbackUsed {
		voice, style = p.cfg.FallbackVoice, p.cfg.FallbackStyle
	} else if p.cfg.Styles != nil {
		style = p.cfg.Styles.Select(ctx, voice, transcript, reply, style)
	}

	err = p.speak(ctx, &result, reply, voice, style)
	status.add(err == nil, "Audio generated", "Audio generation failed")
	if err != nil {
		result.fail(ReasonSynthesis, err)
		log.Printf("[agent] session=%s synthesis failed kind=%s: %v", sessionID, provider.KindOf(err), err)
	}

	result.Success = true
	result.Message = status.String()
	result.MessageCount = len(p.store.History(ctx, sessionID))
	return result
}

// QueryText answers a single prompt without touching session history.
func (p *Pipeline) QueryText(ctx context.Context, prompt string) TurnResult {
	result := TurnResult{Transcript: strings.TrimSpace(prompt)}
	var status statusLine

	reply, err := p.complete(ctx, &result, []chat.Message{{Role: chat.RoleUser, Content: result.Transcript}})
	if err != nil {
		status.add(false, "", "Using fallback response")
		result.FallbackUsed = true
		reply = FallbackMessage(result.fail(ReasonCompletion, err))
	} else {
		status.add(true, "AI response generated", "")
	}
	result.setReply(reply)

	voice, style := p.cfg.QueryVoice, p.cfg.NeutralStyle
	if result.FallbackUsed {
		voice, style = p.cfg.FallbackVoice, p.cfg.FallbackStyle
	}
	err = p.speak(ctx, &result, reply, voice, style)
	status.add(err == nil, "Audio generated", "Audio generation failed")
	if err != nil {
		result.fail(ReasonSynthesis, err)
	}

	// a reply text always exists here, fallback or not
	result.Success = true
	result.Message = status.String()
	return result
}

// QueryAudio transcribes audio and answers it like QueryText.
func (p *Pipeline) QueryAudio(ctx context.Context, audio []byte) TurnResult {
	recognized := TurnResult{}
	transcript, err := p.transcribe(ctx, &recognized, audio)
	if err != nil {
		recognized.FallbackUsed = true
		recognized.setReply(FallbackMessage(recognized.fail(ReasonTranscription, err)))
		recognized.Message = "Speech recognition failed"
		return recognized
	}

	result := p.QueryText(ctx, transcript)
	result.Stages = append(recognized.Stages, result.Stages...)
	result.Message = "Speech recognized | " + result.Message
	return result
}

// Echo transcribes audio and reads the transcript back with the echo voice.
func (p *Pipeline) Echo(ctx context.Context, audio []byte) TurnResult {
	result := TurnResult{}
	transcript, err := p.transcribe(ctx, &result, audio)
	if err != nil {
		result.FallbackUsed = true
		result.setReply(FallbackMessage(result.fail(ReasonTranscription, err)))
		result.Message = "Speech recognition failed"
		return result
	}
	result.Transcript = transcript
	result.setReply(transcript)

	if err := p.speak(ctx, &result, transcript, p.cfg.EchoVoice, p.cfg.NeutralStyle); err != nil {
		result.fail(ReasonSynthesis, err)
		result.Message = "Speech recognized | Audio generation failed"
		return result
	}

	result.Success = true
	result.Message = "Speech recognized | Audio generated"
	return result
}

// Speak synthesizes arbitrary text, chunking it to the provider limit.
func (p *Pipeline) Speak(ctx context.Context, content, voice, style string) TurnResult {
	result := TurnResult{}
	result.setReply(text.Sanitize(content))
	if voice == "" {
		voice = p.cfg.Voice
	}
	if style == "" {
		style = p.cfg.NeutralStyle
	}

	if err := p.speak(ctx, &result, content, voice, style); err != nil {
		result.fail(ReasonSynthesis, err)
		result.Message = "Audio generation failed"
		return result
	}
	result.Success = true
	result.Message = "Audio generated"
	return result
}

func (p *Pipeline) transcribe(ctx context.Context, result *TurnResult, audio []byte) (string, error) {
	if p.transcriber == nil {
		return "", provider.NotConfigured("transcription", "ASSEMBLYAI_API_KEY")
	}
	if len(audio) == 0 {
		return "", provider.New(provider.KindInvalidInput, "transcription", "audio is empty")
	}

	started := time.Now()
	res, err := guard("transcription", func() (*speech.TranscriptionResult, error) {
		return p.transcriber.Transcribe(ctx, audio)
	})
	if err == nil {
		err = ctx.Err()
	}
	if err == nil {
		err = p.checkTranscript(res)
	}
	result.track("transcription", started, err)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(res.Text), nil
}

func (p *Pipeline) checkTranscript(res *speech.TranscriptionResult) error {
	if res == nil || strings.TrimSpace(res.Text) == "" {
		return provider.New(provider.KindInvalidInput, "transcription", "no speech detected")
	}
	if p.cfg.MinConfidence > 0 && res.Confidence < p.cfg.MinConfidence {
		return &provider.Error{
			Kind:     provider.KindLowConfidence,
			Provider: "transcription",
			Message:  fmt.Sprintf("confidence %.2f below %.2f", res.Confidence, p.cfg.MinConfidence),
		}
	}
	return nil
}

func (p *Pipeline) complete(ctx context.Context, result *TurnResult, turns []chat.Message) (string, error) {
	if p.completer == nil {
		return "", provider.NotConfigured("completion", "GEMINI_API_KEY")
	}

	started := time.Now()
	reply, err := guard("completion", func() (string, error) {
		return p.completer.Complete(ctx, turns)
	})
	if err == nil && strings.TrimSpace(reply) == "" {
		err = provider.New(provider.KindUnavailable, "completion", "empty reply")
	}
	result.track("completion", started, err)
	return strings.TrimSpace(reply), err
}

// speak synthesizes every chunk of content in order. Any failed chunk discards the whole set.
func (p *Pipeline) speak(ctx context.Context, result *TurnResult, content, voice, style string) error {
	result.Voice, result.Style = voice, style
	if p.synthesizer == nil {
		err := provider.NotConfigured("synthesis", "MURF_API_KEY")
		result.track("synthesis", time.Now(), err)
		return err
	}

	chunks, err := text.ChunkForSynthesis(content, p.cfg.MaxChunkChars)
	if err != nil {
		result.track("synthesis", time.Now(), err)
		return err
	}

	started := time.Now()
	urls := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		res, err := guard("synthesis", func() (*speech.SynthesisResult, error) {
			return p.synthesizer.Synthesize(ctx, chunk, voice, style)
		})
		if err == nil && (res == nil || res.AudioURL == "") {
			err = provider.New(provider.KindUnavailable, "synthesis", "no audio returned")
		}
		if err != nil {
			err = fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
			result.track("synthesis", started, err)
			return err
		}
		urls = append(urls, res.AudioURL)
	}
	result.track("synthesis", started, nil)

	result.AudioURLs = urls
	first := urls[0]
	result.AudioURL = &first
	return nil
}

// guard converts a panicking adapter into a provider_unavailable error.
func guard[T any](stage string, fn func() (T, error)) (out T, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[agent] %s adapter panicked: %v\n%s", stage, r, debug.Stack())
			err = provider.New(provider.KindUnavailable, stage, fmt.Sprintf("adapter panic: %v", r))
		}
	}()

	out, err = fn()
	if err != nil && !errors.As(err, new(*provider.Error)) {
		err = provider.Wrap(provider.KindOf(err), stage, err)
	}
	return out, err
}
