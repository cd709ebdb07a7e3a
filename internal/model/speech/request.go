package speech

// SynthesisRequest 文本转语音请求
type SynthesisRequest struct {
	Text    string `json:"text"`
	VoiceID string `json:"voice_id"`
	Style   string `json:"style"`
}

// QueryRequest 单轮文本问答请求
type QueryRequest struct {
	Text string `json:"text"`
}
