package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/zhouzirui/voicemate/backend/internal/provider"
)

const maxErrorBody = 4 << 10

// restClient 封装服务商 REST 调用：鉴权头、JSON 编解码以及错误归类。
type restClient struct {
	name       string
	baseURL    string
	authHeader string
	apiKey     string
	http       *http.Client
	errorKeys  []string
}

func newRESTClient(name, baseURL, authHeader, apiKey string, timeout time.Duration, errorKeys ...string) (*restClient, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, provider.NotConfigured(name, "api key")
	}
	if baseURL == "" {
		return nil, provider.New(provider.KindNotConfigured, name, "base url is empty")
	}

	return &restClient{
		name:       name,
		baseURL:    strings.TrimRight(baseURL, "/"),
		authHeader: authHeader,
		apiKey:     apiKey,
		http:       &http.Client{Timeout: timeout},
		errorKeys:  errorKeys,
	}, nil
}

// doJSON 发送请求并把 2xx 响应解码到 out；payload 为 []byte 时按原始字节上传。
func (c *restClient) doJSON(ctx context.Context, method, path string, payload any, out any) error {
	var (
		body        io.Reader
		contentType string
	)
	switch p := payload.(type) {
	case nil:
	case []byte:
		body = bytes.NewReader(p)
		contentType = "application/octet-stream"
	default:
		encoded, err := json.Marshal(p)
		if err != nil {
			return provider.Wrap(provider.KindInvalidInput, c.name, fmt.Errorf("encode request: %w", err))
		}
		body = bytes.NewReader(encoded)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return provider.Wrap(provider.KindInvalidInput, c.name, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set(c.authHeader, c.apiKey)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return provider.Wrap(provider.KindUnavailable, c.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return provider.FromStatus(c.name, resp.StatusCode, c.errorMessage(raw))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return provider.Wrap(provider.KindUnavailable, c.name, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// errorMessage 从服务商错误体中取出可读信息，取不到时返回截断后的原文。
func (c *restClient) errorMessage(raw []byte) string {
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err == nil {
		for _, key := range c.errorKeys {
			if msg, ok := payload[key].(string); ok && strings.TrimSpace(msg) != "" {
				return msg
			}
		}
	}

	text := strings.TrimSpace(string(raw))
	if len(text) > 200 {
		text = text[:200]
	}
	return text
}
