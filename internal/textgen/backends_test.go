package textgen

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIGenerate(t *testing.T) {
	t.Parallel()

	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":" Ответ модели "}}]}`)
	}))
	defer srv.Close()

	o := NewOpenAI(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL + "/v1"})
	text, err := o.Generate(context.Background(), Request{System: "sys", Prompt: "user"})
	require.NoError(t, err)
	assert.Equal(t, "Ответ модели", text)

	assert.Equal(t, "gpt-3.5-turbo", got.Model)
	assert.Equal(t, 150, got.MaxTokens)
	assert.InDelta(t, 0.8, got.Temperature, 1e-9)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "user", got.Messages[1].Content)
}

func TestOpenAINonSuccessStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	o := NewOpenAI(OpenAIConfig{APIKey: "k", BaseURL: srv.URL})
	_, err := o.Generate(context.Background(), Request{Prompt: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestOpenAIMalformedPayload(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"choices":[]}`)
	}))
	defer srv.Close()

	o := NewOpenAI(OpenAIConfig{APIKey: "k", BaseURL: srv.URL})
	_, err := o.Generate(context.Background(), Request{Prompt: "x"})
	require.Error(t, err)
}

func TestHuggingFaceFirstLine(t *testing.T) {
	t.Parallel()

	var got hfRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer hf-test", r.Header.Get("Authorization"))
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = io.WriteString(w, `[{"generated_text":"\n  Первая строка  \nвторая"}]`)
	}))
	defer srv.Close()

	h := NewHuggingFace(HuggingFaceConfig{Token: "hf-test", URL: srv.URL})
	text, err := h.Generate(context.Background(), Request{System: "sys", Prompt: "prompt"})
	require.NoError(t, err)
	assert.Equal(t, "Первая строка", text)
	assert.Equal(t, "sys\n\nprompt", got.Inputs)
	assert.Equal(t, 200, got.Parameters.MaxLength)
	assert.False(t, got.Parameters.ReturnFullText)
}

func TestGeminiGenerate(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, ":generateContent"), r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"Ответ Gemini"}]}}]}`)
	}))
	defer srv.Close()

	g, err := NewGemini(context.Background(), GeminiConfig{APIKey: "g-test", BaseURL: srv.URL})
	require.NoError(t, err)
	text, err := g.Generate(context.Background(), Request{System: "sys", Prompt: "prompt"})
	require.NoError(t, err)
	assert.Equal(t, "Ответ Gemini", text)
}

func TestNewGeminiRequiresKey(t *testing.T) {
	t.Parallel()

	_, err := NewGemini(context.Background(), GeminiConfig{})
	require.Error(t, err)
}
