package features

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	server := httptest.NewServer(handler)
	return NewClient("test-key", server.URL), server
}

func TestCall_TextFeatureSuccess(t *testing.T) {
	var gotKey, gotPath, gotText string
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("api-key")
		gotPath = r.URL.Path
		r.ParseForm()
		gotText = r.PostFormValue("text")
		fmt.Fprint(w, `{"output": "a short summary"}`)
	})
	defer server.Close()

	result, err := client.Call(context.Background(), KindSummarize, Payload{Text: "long article"})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if result.Text != "a short summary" {
		t.Fatalf("result text = %q", result.Text)
	}
	if gotKey != "test-key" {
		t.Fatalf("api-key header = %q", gotKey)
	}
	if gotPath != "/summarization" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotText != "long article" {
		t.Fatalf("text field = %q", gotText)
	}
}

func TestCall_ImageFeatureUsesMultipart(t *testing.T) {
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			t.Errorf("content type = %q, want multipart", r.Header.Get("Content-Type"))
		}
		file, _, err := r.FormFile("image")
		if err != nil {
			t.Errorf("image file missing: %v", err)
		} else {
			file.Close()
		}
		fmt.Fprint(w, `{"output_url": "https://cdn.example/out.png"}`)
	})
	defer server.Close()

	result, err := client.Call(context.Background(), KindToonify, Payload{Image: []byte{0xff, 0xd8}})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if result.ImageURL != "https://cdn.example/out.png" {
		t.Fatalf("image url = %q", result.ImageURL)
	}
}

func TestCall_NSFWScoreMapping(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{0.12, "safe"},
		{0.49, "safe"},
		{0.5, "unsafe"},
		{0.93, "unsafe"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprintf(w, `{"output": {"nsfw_score": %v}}`, tt.score)
			})
			defer server.Close()

			result, err := client.Call(context.Background(), KindNSFWDetector, Payload{Image: []byte{1}})
			if err != nil {
				t.Fatalf("Call: %v", err)
			}
			if !strings.HasPrefix(result.Text, tt.want) {
				t.Fatalf("score %v → %q, want prefix %q", tt.score, result.Text, tt.want)
			}
		})
	}
}

func TestCall_TaggerTruncatesLabels(t *testing.T) {
	labels := make([]string, 15)
	for i := range labels {
		labels[i] = fmt.Sprintf("label%d", i)
	}
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"output": {"captions": [%q`, labels[0])
		for _, l := range labels[1:] {
			fmt.Fprintf(w, `,%q`, l)
		}
		fmt.Fprint(w, `]}}`)
	})
	defer server.Close()

	result, err := client.Call(context.Background(), KindImageTagger, Payload{Image: []byte{1}})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if got := len(strings.Split(result.Text, ", ")); got != 10 {
		t.Fatalf("labels = %d, want first 10", got)
	}
}

func TestCall_QuotaStatusCodes(t *testing.T) {
	for _, status := range []int{http.StatusTooManyRequests, http.StatusForbidden} {
		t.Run(fmt.Sprint(status), func(t *testing.T) {
			client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "quota exhausted", status)
			})
			defer server.Close()

			_, err := client.Call(context.Background(), KindTextGenerator, Payload{Text: "x"})
			var quota *QuotaError
			if !errors.As(err, &quota) {
				t.Fatalf("err = %v, want QuotaError", err)
			}
			if quota.Status != status {
				t.Fatalf("status = %d, want %d", quota.Status, status)
			}
		})
	}
}

func TestCall_ServerErrorIsRemoteError(t *testing.T) {
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal", http.StatusInternalServerError)
	})
	defer server.Close()

	_, err := client.Call(context.Background(), KindTextGenerator, Payload{Text: "x"})
	var remote *RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("err = %v, want RemoteError", err)
	}
	if remote.Status != http.StatusInternalServerError {
		t.Fatalf("status = %d", remote.Status)
	}
}

func TestCall_BodyErrFieldIsRemoteError(t *testing.T) {
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"err": "model unavailable"}`)
	})
	defer server.Close()

	_, err := client.Call(context.Background(), KindTextGenerator, Payload{Text: "x"})
	var remote *RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("err = %v, want RemoteError", err)
	}
	if !strings.Contains(remote.Message, "model unavailable") {
		t.Fatalf("message = %q", remote.Message)
	}
}

func TestCall_EmptyOutputIsNoResults(t *testing.T) {
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"output": "  "}`)
	})
	defer server.Close()

	_, err := client.Call(context.Background(), KindSummarize, Payload{Text: "x"})
	if !errors.Is(err, ErrNoResults) {
		t.Fatalf("err = %v, want ErrNoResults", err)
	}
}

func TestCall_ValidationBeforeNetwork(t *testing.T) {
	called := false
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})
	defer server.Close()

	tests := []struct {
		name    string
		kind    Kind
		payload Payload
	}{
		{"text feature without text", KindSummarize, Payload{}},
		{"image feature without image", KindToonify, Payload{Text: "no image"}},
		{"unknown kind", Kind("bogus"), Payload{Text: "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.Call(context.Background(), tt.kind, tt.payload)
			var invalid *ValidationError
			if !errors.As(err, &invalid) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
		})
	}
	if called {
		t.Fatal("validation errors must be rejected before any remote call")
	}
}

func TestUserMessage_CoversTaxonomy(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"quota", &QuotaError{Status: 429}, "quota"},
		{"timeout", fmt.Errorf("wrap: %w", ErrTimeout), "too long"},
		{"not found", ErrNoResults, "No results"},
		{"remote", &RemoteError{Status: 502}, "502"},
		{"validation", &ValidationError{Reason: "missing prompt"}, "missing prompt"},
		{"unknown", errors.New("surprise"), "went wrong"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := UserMessage(tt.err)
			if !strings.Contains(strings.ToLower(got), strings.ToLower(tt.want)) {
				t.Fatalf("UserMessage(%v) = %q, want substring %q", tt.err, got, tt.want)
			}
		})
	}
}
