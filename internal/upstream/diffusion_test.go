package upstream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"stylesync/internal/config"
	"testing"
	"time"
)

func testConfig(host string) config.Config {
	return config.Config{
		RapidAPIKey:     "test-key",
		RapidAPIHost:    host,
		UpstreamTimeout: 5 * time.Second,
	}
}

func jpegPart(name string) *FilePart {
	return &FilePart{Filename: name, ContentType: "image/jpeg", Data: []byte("fake-jpeg-bytes")}
}

func TestNewClientRejectsPlaceholderKey(t *testing.T) {
	cfg := testConfig("example.test")
	cfg.RapidAPIKey = "your_rapidapi_key_here"
	if _, err := NewClient(cfg); !errors.Is(err, config.ErrAPIKeyMissing) {
		t.Fatalf("expected ErrAPIKeyMissing, got %v", err)
	}
}

func TestRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		request Request
		wantErr bool
	}{
		{
			name:    "图片主体",
			request: Request{AvatarImage: jpegPart("me.jpg"), ClothingImage: jpegPart("dress.jpg")},
		},
		{
			name:    "文本主体",
			request: Request{AvatarPrompt: "red-haired woman, studio pose", ClothingImage: jpegPart("dress.jpg")},
		},
		{
			name:    "缺少主体",
			request: Request{ClothingImage: jpegPart("dress.jpg")},
			wantErr: true,
		},
		{
			name:    "主体图片与文本互斥",
			request: Request{AvatarImage: jpegPart("me.jpg"), AvatarPrompt: "text", ClothingImage: jpegPart("dress.jpg")},
			wantErr: true,
		},
		{
			name:    "缺少服装图",
			request: Request{AvatarPrompt: "text here"},
			wantErr: true,
		},
		{
			name: "背景图片与文本互斥",
			request: Request{
				AvatarPrompt:     "text here",
				ClothingImage:    jpegPart("dress.jpg"),
				BackgroundImage:  jpegPart("bg.jpg"),
				BackgroundPrompt: "beach sunset",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.request.Validate()
			if tt.wantErr && err == nil {
				t.Fatal("expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestTryOnSendsExpectedFields(t *testing.T) {
	var gotFields map[string]bool
	var gotKey, gotHost string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-rapidapi-key")
		gotHost = r.Header.Get("x-rapidapi-host")
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		gotFields = map[string]bool{}
		for field := range r.MultipartForm.Value {
			gotFields[field] = true
		}
		for field := range r.MultipartForm.File {
			gotFields[field] = true
		}
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("result-image"))
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	if err != nil {
		t.Fatalf("unexpected error creating client: %v", err)
	}

	request := Request{
		AvatarPrompt:     "red-haired woman, studio pose",
		ClothingImage:    jpegPart("dress.jpg"),
		BackgroundPrompt: "beach sunset",
	}

	result, err := client.TryOn(context.Background(), request)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(result.Data) != "result-image" {
		t.Fatalf("unexpected result payload: %q", result.Data)
	}
	if result.ContentType != "image/jpeg" {
		t.Fatalf("unexpected content type: %q", result.ContentType)
	}
	if gotKey != "test-key" {
		t.Fatalf("expected api key header, got %q", gotKey)
	}
	if gotHost == "" {
		t.Fatal("expected host header to be set")
	}

	for _, want := range []string{"avatar_prompt", "clothing_image", "background_prompt"} {
		if !gotFields[want] {
			t.Errorf("expected field %q in payload", want)
		}
	}
	for _, banned := range []string{"avatar_image", "background_image", "seed"} {
		if gotFields[banned] {
			t.Errorf("unexpected field %q in payload", banned)
		}
	}
}

func TestTryOnForwardsSeedAndPrefersEcho(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("X-Seed", "424242")
		w.Write([]byte("img"))
	}))
	defer server.Close()

	client, _ := NewClient(testConfig(server.URL))
	result, err := client.TryOn(context.Background(), Request{
		AvatarPrompt:  "studio portrait",
		ClothingImage: jpegPart("dress.jpg"),
		Seed:          "7",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Seed != "424242" {
		t.Fatalf("expected echoed seed, got %q", result.Seed)
	}
}

func TestTryOnClassifiesStatusCodes(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{name: "bad input", status: http.StatusBadRequest, wantErr: ErrBadInput},
		{name: "auth", status: http.StatusUnauthorized, wantErr: ErrAuth},
		{name: "rate limited", status: http.StatusTooManyRequests, wantErr: ErrRateLimited},
		{name: "server error", status: http.StatusBadGateway, wantErr: ErrUnavailable},
		{name: "service unavailable", status: http.StatusServiceUnavailable, wantErr: ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, `{"detail":"upstream internals"}`, tt.status)
			}))
			defer server.Close()

			client, _ := NewClient(testConfig(server.URL))
			_, err := client.TryOn(context.Background(), Request{
				AvatarPrompt:  "studio portrait",
				ClothingImage: jpegPart("dress.jpg"),
			})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if err != nil && strings.Contains(err.Error(), "upstream internals") {
				t.Fatal("upstream body must not leak into the returned error")
			}
		})
	}
}

func TestTryOnRejectsNonImageResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	client, _ := NewClient(testConfig(server.URL))
	_, err := client.TryOn(context.Background(), Request{
		AvatarPrompt:  "studio portrait",
		ClothingImage: jpegPart("dress.jpg"),
	})
	if !errors.Is(err, ErrBadContract) {
		t.Fatalf("expected ErrBadContract, got %v", err)
	}
}

func TestTryOnTimesOut(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("late"))
	}))
	defer server.Close()

	client, _ := NewClient(testConfig(server.URL))
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.TryOn(ctx, Request{
		AvatarPrompt:  "studio portrait",
		ClothingImage: jpegPart("dress.jpg"),
	})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestTryOnCancellationIsNotAFailureCategory(t *testing.T) {
	started := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		time.Sleep(500 * time.Millisecond)
	}))
	defer server.Close()

	client, _ := NewClient(testConfig(server.URL))
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	_, err := client.TryOn(ctx, Request{
		AvatarPrompt:  "studio portrait",
		ClothingImage: jpegPart("dress.jpg"),
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
