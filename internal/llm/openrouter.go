package llm

import (
	"errors"
	"net/http"
)

const (
	defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"
	defaultOpenRouterApp     = "lumen"
)

// OpenRouterProvider talks to OpenRouter through its OpenAI-compatible
// endpoint. Model ids pass through untouched ("vendor/model").
type OpenRouterProvider struct {
	*OpenAIProvider
}

func NewOpenRouterProvider(cfg OpenRouterConfig) (*OpenRouterProvider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openrouter API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultOpenRouterBaseURL
	}
	if cfg.AppName == "" {
		cfg.AppName = defaultOpenRouterApp
	}

	inner, err := NewOpenAIProvider(OpenAIConfig{
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		BaseURL: cfg.BaseURL,
		HTTPClient: &http.Client{
			Transport: attributionTransport{
				base:    http.DefaultTransport,
				appName: cfg.AppName,
				siteURL: cfg.SiteURL,
			},
		},
	})
	if err != nil {
		return nil, err
	}
	return &OpenRouterProvider{OpenAIProvider: inner}, nil
}

// attributionTransport stamps OpenRouter's app attribution headers on
// every outgoing request.
type attributionTransport struct {
	base    http.RoundTripper
	appName string
	siteURL string
}

func (t attributionTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("X-Title", t.appName)
	if t.siteURL != "" {
		req.Header.Set("HTTP-Referer", t.siteURL)
	}
	return t.base.RoundTrip(req)
}
