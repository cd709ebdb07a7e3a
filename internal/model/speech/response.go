package speech

// TranscriptionResult 语音识别结果
type TranscriptionResult struct {
	Text         string  `json:"text"`
	Confidence   float64 `json:"confidence"`
	Success      bool    `json:"success"`
	LanguageCode string  `json:"language_code,omitempty"`
	Duration     float64 `json:"audio_duration,omitempty"` // seconds
	TranscriptID string  `json:"transcript_id,omitempty"`
}

// SynthesisResult 语音合成结果，音频由服务商托管，仅返回地址
type SynthesisResult struct {
	AudioURL            string  `json:"audio_url"`
	Duration            float64 `json:"duration"` // seconds
	WordCount           int     `json:"word_count"`
	Success             bool    `json:"success"`
	CharactersUsed      int     `json:"characters_used,omitempty"`
	CharactersRemaining int     `json:"characters_remaining,omitempty"`
}
