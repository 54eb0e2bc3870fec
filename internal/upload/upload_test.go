package upload_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"shotclock/internal/services"
	"shotclock/internal/testsupport"
	"shotclock/internal/upload"
)

type staticTokens struct {
	value       string
	err         error
	invalidated int
}

func (s *staticTokens) Token(context.Context) (string, error) { return s.value, s.err }

func (s *staticTokens) Invalidate() { s.invalidated++ }

func TestUploadPostsJSONWithBearer(t *testing.T) {
	var got map[string]string
	var auth, contentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		auth = r.Header.Get("Authorization")
		contentType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message":"queued"}`))
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithAnalysis(server.URL))
	u := upload.New(cfg, &staticTokens{value: "tok-1"}, nil)

	start := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	end := start.Add(5*time.Minute + 250*time.Millisecond)
	resp, err := u.Upload(context.Background(), upload.Request{
		Image:     []byte("png-bytes"),
		UserID:    "user-1",
		StartTime: start,
		EndTime:   end,
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if resp.StatusCode != http.StatusOK || resp.Message != "queued" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if auth != "bearer tok-1" {
		t.Fatalf("unexpected authorization header %q", auth)
	}
	if contentType != "application/json" {
		t.Fatalf("unexpected content type %q", contentType)
	}
	if got["userId"] != "user-1" {
		t.Fatalf("unexpected userId %q", got["userId"])
	}
	if got["startTime"] != "2026-10-14T09:00:00.000Z" || got["endTime"] != "2026-10-14T09:05:00.250Z" {
		t.Fatalf("unexpected times %q %q", got["startTime"], got["endTime"])
	}
	decoded, err := base64.StdEncoding.DecodeString(got["screenshot"])
	if err != nil || string(decoded) != "png-bytes" {
		t.Fatalf("unexpected screenshot payload %q (%v)", got["screenshot"], err)
	}
}

func TestUploadStatusError(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(strings.Repeat("x", 10000)))
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithAnalysis(server.URL))
	tokens := &staticTokens{value: "stale"}
	_, err := upload.New(cfg, tokens, nil).Upload(context.Background(), upload.Request{Image: []byte("x")})

	var statusErr *upload.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusUnauthorized || len(statusErr.Body) != services.MaxErrorBody {
		t.Fatalf("unexpected status error code=%d body=%d", statusErr.StatusCode, len(statusErr.Body))
	}
	if !errors.Is(err, services.ErrUpload) {
		t.Fatal("expected StatusError to match ErrUpload")
	}
	if calls != 1 {
		t.Fatalf("expected exactly one attempt, got %d", calls)
	}
	if tokens.invalidated != 1 {
		t.Fatal("expected 401 to invalidate the cached token")
	}
}

func TestUploadTransportAndTokenErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithAnalysis(url))
	_, err := upload.New(cfg, &staticTokens{value: "t"}, nil).Upload(context.Background(), upload.Request{})
	if !errors.Is(err, services.ErrUpload) {
		t.Fatalf("expected ErrUpload for transport failure, got %v", err)
	}

	tokenErr := services.Wrap(services.ErrToken, "token", "fetch", "failed", nil)
	_, err = upload.New(cfg, &staticTokens{err: tokenErr}, nil).Upload(context.Background(), upload.Request{})
	if !errors.Is(err, services.ErrToken) {
		t.Fatalf("expected ErrToken, got %v", err)
	}

	cfg.Analysis.IngestURL = ""
	_, err = upload.New(cfg, &staticTokens{value: "t"}, nil).Upload(context.Background(), upload.Request{})
	if !errors.Is(err, services.ErrUpload) {
		t.Fatalf("expected ErrUpload for missing endpoint, got %v", err)
	}
}
