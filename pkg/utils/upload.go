package utils

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
)

// ErrNoAudio 表示请求中没有可用的音频文件
var ErrNoAudio = errors.New("audio file is required")

var audioExtensions = map[string]bool{
	".wav":  true,
	".mp3":  true,
	".webm": true,
	".ogg":  true,
	".m4a":  true,
	".aac":  true,
	".flac": true,
	".mp4":  true,
}

// AudioUpload 是从 multipart 表单中读出的音频
type AudioUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ReadAudioUpload 读取第一个存在的表单字段，校验类型并整体读入内存。
func ReadAudioUpload(r *http.Request, maxBytes int64, fields ...string) (*AudioUpload, error) {
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		return nil, fmt.Errorf("failed to parse multipart form: %w", err)
	}
	defer r.MultipartForm.RemoveAll()

	for _, field := range fields {
		file, header, err := r.FormFile(field)
		if errors.Is(err, http.ErrMissingFile) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", field, err)
		}
		defer file.Close()

		contentType := header.Header.Get("Content-Type")
		if !IsAudio(contentType, header.Filename) {
			return nil, fmt.Errorf("unsupported content type %q", contentType)
		}

		data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", field, err)
		}
		if int64(len(data)) > maxBytes {
			return nil, fmt.Errorf("audio exceeds %d bytes", maxBytes)
		}
		if len(data) == 0 {
			return nil, ErrNoAudio
		}

		return &AudioUpload{Filename: header.Filename, ContentType: contentType, Data: data}, nil
	}

	return nil, ErrNoAudio
}

// IsAudio 接受 audio/* 类型；octet-stream 或缺省类型时按扩展名判断。
func IsAudio(contentType, filename string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(contentType))
	}
	if strings.HasPrefix(mediaType, "audio/") {
		return true
	}
	if mediaType == "" || mediaType == "application/octet-stream" || mediaType == "video/webm" {
		return audioExtensions[strings.ToLower(filepath.Ext(filename))]
	}
	return false
}
