package utils

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/zhouzirui/voicemate/backend/internal/provider"
)

// RespondJSON 发送JSON响应
func RespondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

// RespondError 发送错误响应
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, map[string]string{"error": message})
}

// RespondProviderError 按错误分类选择状态码，并附带 error_type 字段
func RespondProviderError(w http.ResponseWriter, err error) {
	kind := provider.KindOf(err)
	RespondJSON(w, provider.HTTPStatus(kind), map[string]string{
		"error":      err.Error(),
		"error_type": string(kind),
	})
}
