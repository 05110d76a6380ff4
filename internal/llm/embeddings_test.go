package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/openai/openai-go/option"
)

// embeddingsResponse mirrors the wire shape of the embeddings endpoint,
// for test servers only.
type embeddingsResponse struct {
	Object string           `json:"object"`
	Data   []embeddingDatum `json:"data"`
	Model  string           `json:"model"`
}

type embeddingDatum struct {
	Object    string    `json:"object"`
	Index     int       `json:"index"`
	Embedding []float64 `json:"embedding"`
}

func embeddingsOf(vectors ...[]float64) embeddingsResponse {
	resp := embeddingsResponse{Object: "list", Model: "test-model"}
	for i, v := range vectors {
		resp.Data = append(resp.Data, embeddingDatum{Object: "embedding", Index: i, Embedding: v})
	}
	return resp
}

// newTestEmbeddingsClient points the client at a test server and disables
// the SDK's own retries so only the backoff policy is exercised.
func newTestEmbeddingsClient(serverURL, model string, expectedSize int) *EmbeddingsClient {
	return NewEmbeddingsClient("test-key", model, expectedSize,
		option.WithBaseURL(serverURL),
		option.WithMaxRetries(0),
	)
}

func TestNewEmbeddingsClient(t *testing.T) {
	client := NewEmbeddingsClient("test-key", "text-embedding-3-small", 1536)
	if client == nil {
		t.Fatal("NewEmbeddingsClient() returned nil")
	}
	if client.Model != "text-embedding-3-small" {
		t.Errorf("NewEmbeddingsClient() Model = %v, want text-embedding-3-small", client.Model)
	}
	if client.ExpectedSize != 1536 {
		t.Errorf("NewEmbeddingsClient() ExpectedSize = %v, want 1536", client.ExpectedSize)
	}
}

func TestEmbeddingsClient_EmbedTexts(t *testing.T) {
	tests := []struct {
		name         string
		texts        []string
		expectedSize int
		serverResp   func(w http.ResponseWriter, r *http.Request)
		wantErr      bool
		wantCount    int
	}{
		{
			name:         "successful embedding",
			texts:        []string{"Hello", "World"},
			expectedSize: 3,
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("expected POST, got %s", r.Method)
				}
				w.Header().Set("Content-Type", "application/json")
				_ = json.NewEncoder(w).Encode(embeddingsOf(
					[]float64{0.1, 0.2, 0.3},
					[]float64{0.4, 0.5, 0.6},
				))
			},
			wantErr:   false,
			wantCount: 2,
		},
		{
			name:         "empty input",
			texts:        []string{},
			expectedSize: 3,
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				// Should not be called
			},
			wantErr: true,
		},
		{
			name:         "wrong embedding count",
			texts:        []string{"Hello", "World"},
			expectedSize: 3,
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_ = json.NewEncoder(w).Encode(embeddingsOf([]float64{0.1, 0.2, 0.3}))
			},
			wantErr: true,
		},
		{
			name:         "wrong vector size",
			texts:        []string{"Hello"},
			expectedSize: 3,
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_ = json.NewEncoder(w).Encode(embeddingsOf([]float64{0.1, 0.2}))
			},
			wantErr: true,
		},
		{
			name:         "server error is not retried",
			texts:        []string{"Hello"},
			expectedSize: 3,
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"error": {"message": "internal server error"}}`))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(tt.serverResp))
			defer server.Close()

			client := newTestEmbeddingsClient(server.URL, "test-model", tt.expectedSize)
			embeddings, err := client.EmbedTexts(context.Background(), tt.texts)

			if tt.wantErr {
				if err == nil {
					t.Errorf("EmbedTexts() expected error, got nil")
				}
				return
			}

			if err != nil {
				t.Errorf("EmbedTexts() unexpected error: %v", err)
				return
			}

			if len(embeddings) != tt.wantCount {
				t.Errorf("EmbedTexts() returned %d embeddings, want %d", len(embeddings), tt.wantCount)
			}

			for i, emb := range embeddings {
				if len(emb) != tt.expectedSize {
					t.Errorf("EmbedTexts() embedding[%d] size = %d, want %d", i, len(emb), tt.expectedSize)
				}
			}
		})
	}
}

func TestEmbeddingsClient_EmbedTexts_ConvertsFloat64ToFloat32(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(embeddingsOf([]float64{1.5, 2.5, 3.5}))
	}))
	defer server.Close()

	client := newTestEmbeddingsClient(server.URL, "test-model", 3)
	embeddings, err := client.EmbedTexts(context.Background(), []string{"test"})
	if err != nil {
		t.Fatalf("EmbedTexts() error = %v", err)
	}

	if len(embeddings) != 1 {
		t.Fatalf("EmbedTexts() returned %d embeddings, want 1", len(embeddings))
	}

	emb := embeddings[0]
	want := []float32{1.5, 2.5, 3.5}
	for i := range want {
		if emb[i] != want[i] {
			t.Errorf("EmbedTexts() embedding[%d] = %v, want %v", i, emb[i], want[i])
		}
	}
}

func TestEmbeddingsClient_EmbedTexts_RetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error": {"message": "rate limit exceeded"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(embeddingsOf([]float64{0.1, 0.2, 0.3}))
	}))
	defer server.Close()

	client := newTestEmbeddingsClient(server.URL, "test-model", 3)
	embeddings, err := client.EmbedTexts(context.Background(), []string{"test"})
	if err != nil {
		t.Fatalf("EmbedTexts() error = %v", err)
	}
	if len(embeddings) != 1 {
		t.Fatalf("EmbedTexts() returned %d embeddings, want 1", len(embeddings))
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("server received %d calls, want 2 (one 429 then success)", got)
	}
}
