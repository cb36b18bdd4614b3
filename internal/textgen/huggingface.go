package textgen

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

type HuggingFaceConfig struct {
	Token string
	// URL of the model inference endpoint.
	URL         string
	MaxLength   int
	Temperature float64
	HTTPClient  *http.Client
}

// HuggingFace calls the HF inference API text-generation task.
type HuggingFace struct {
	cfg  HuggingFaceConfig
	http *http.Client
}

func NewHuggingFace(cfg HuggingFaceConfig) *HuggingFace {
	if cfg.URL == "" {
		cfg.URL = "https://api-inference.huggingface.co/models/microsoft/phi-2"
	}
	if cfg.MaxLength <= 0 {
		cfg.MaxLength = 200
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = 0.9
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	return &HuggingFace{cfg: cfg, http: client}
}

func (h *HuggingFace) Name() string { return "huggingface" }

type hfRequest struct {
	Inputs     string       `json:"inputs"`
	Parameters hfParameters `json:"parameters"`
}

type hfParameters struct {
	MaxLength      int     `json:"max_length"`
	Temperature    float64 `json:"temperature"`
	ReturnFullText bool    `json:"return_full_text"`
}

// Generate returns the first non-empty line of the generated text.
func (h *HuggingFace) Generate(ctx context.Context, req Request) (string, error) {
	body, err := json.Marshal(hfRequest{
		Inputs: req.System + "\n\n" + req.Prompt,
		Parameters: hfParameters{
			MaxLength:   h.cfg.MaxLength,
			Temperature: h.cfg.Temperature,
		},
	})
	if err != nil {
		return "", err
	}

	var out []struct {
		GeneratedText string `json:"generated_text"`
	}
	if err := postJSON(ctx, h.http, h.cfg.URL, h.cfg.Token, body, &out); err != nil {
		return "", err
	}
	if len(out) == 0 {
		return "", errors.New("huggingface: empty response")
	}
	for _, line := range strings.Split(out[0].GeneratedText, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line, nil
		}
	}
	return "", nil
}
