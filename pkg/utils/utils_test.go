package utils

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/zhouzirui/voicemate/backend/internal/provider"
)

func multipartRequest(t *testing.T, field, filename, contentType string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+filename+`"`)
	if contentType != "" {
		hdr.Set("Content-Type", contentType)
	}
	part, err := mw.CreatePart(hdr)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	part.Write(data)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestReadAudioUploadAcceptsFallbackField(t *testing.T) {
	req := multipartRequest(t, "audio", "clip.wav", "audio/wav", []byte("RIFF"))

	upload, err := ReadAudioUpload(req, 1<<20, "audio_file", "audio")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(upload.Data) != "RIFF" || upload.Filename != "clip.wav" {
		t.Fatalf("unexpected upload %+v", upload)
	}
}

func TestReadAudioUploadRejectsNonAudio(t *testing.T) {
	req := multipartRequest(t, "audio_file", "notes.txt", "text/plain", []byte("hello"))

	if _, err := ReadAudioUpload(req, 1<<20, "audio_file"); err == nil {
		t.Fatalf("expected content type rejection")
	}
}

func TestReadAudioUploadMissingFile(t *testing.T) {
	req := multipartRequest(t, "other", "clip.wav", "audio/wav", []byte("RIFF"))

	if _, err := ReadAudioUpload(req, 1<<20, "audio_file"); !errors.Is(err, ErrNoAudio) {
		t.Fatalf("expected ErrNoAudio, got %v", err)
	}
}

func TestIsAudio(t *testing.T) {
	cases := []struct {
		contentType, filename string
		want                  bool
	}{
		{"audio/webm;codecs=opus", "blob", true},
		{"application/octet-stream", "rec.mp3", true},
		{"application/octet-stream", "rec.bin", false},
		{"", "rec.wav", true},
		{"image/png", "rec.wav", false},
	}
	for _, tc := range cases {
		if got := IsAudio(tc.contentType, tc.filename); got != tc.want {
			t.Fatalf("IsAudio(%q, %q) = %v, want %v", tc.contentType, tc.filename, got, tc.want)
		}
	}
}

func TestRespondProviderError(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondProviderError(rec, provider.NotConfigured("murf", "MURF_API_KEY"))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error_type"] != "not_configured" {
		t.Fatalf("unexpected body %v", body)
	}
}
