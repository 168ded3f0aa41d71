package middleware

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRequestSizeLimit(t *testing.T) {
	// Mirrors the MAX_BODY_BYTES default: challenge bodies are a few hundred
	// bytes of JSON, so 64KiB is already generous.
	const maxBytes = int64(64 * 1024)

	handler := RequestSizeLimit(maxBytes)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	challengeBody := []byte(`{"type":"email","path":"/transfer","ignore_path":false}`)

	tests := []struct {
		name       string
		body       []byte
		wantStatus int
	}{
		{
			name:       "typical challenge body",
			body:       challengeBody,
			wantStatus: http.StatusOK,
		},
		{
			name:       "body at the cap",
			body:       bytes.Repeat([]byte("a"), int(maxBytes)),
			wantStatus: http.StatusOK,
		},
		{
			name:       "body over the cap",
			body:       bytes.Repeat([]byte("a"), int(maxBytes)+1),
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/v1/otp/challenge", bytes.NewReader(tt.body))
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("Status code = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}
