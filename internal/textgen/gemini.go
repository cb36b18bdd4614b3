package textgen

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/genai"
)

type GeminiConfig struct {
	APIKey          string
	Model           string
	Temperature     float32
	MaxOutputTokens int32
	// BaseURL overrides the API endpoint (tests, proxies).
	BaseURL string
}

// Gemini calls Google's Gemini API through the genai SDK.
type Gemini struct {
	client *genai.Client
	cfg    GeminiConfig
}

func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("gemini api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = 0.8
	}
	if cfg.MaxOutputTokens <= 0 {
		cfg.MaxOutputTokens = 300
	}
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, err
	}
	return &Gemini{client: client, cfg: cfg}, nil
}

func (g *Gemini) Name() string { return "gemini" }

func (g *Gemini) Generate(ctx context.Context, req Request) (string, error) {
	conf := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(g.cfg.Temperature),
		MaxOutputTokens: g.cfg.MaxOutputTokens,
	}
	if req.System != "" {
		conf.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.cfg.Model, genai.Text(req.Prompt), conf)
	if err != nil {
		return "", err
	}
	if resp == nil {
		return "", errors.New("gemini: nil response")
	}
	return strings.TrimSpace(resp.Text()), nil
}
