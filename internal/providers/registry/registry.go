package registry

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"feestplanner/internal/providers"
	"feestplanner/internal/providers/gemini"
	"feestplanner/internal/providers/openai_compat"
)

type BuildOptions struct {
	Kind        string
	BaseURL     string
	APIKey      string
	Endpoint    string
	Headers     map[string]string
	HTTPClient  *http.Client
	MaxRetries  int
	BackoffBase time.Duration
}

func Build(ctx context.Context, opts BuildOptions) (providers.Provider, error) {
	switch opts.Kind {
	case "gemini", "genai", "google":
		return gemini.New(ctx, opts.APIKey)

	case "openai_compat", "openai-compatible", "openai":
		return openai_compat.New(openai_compat.Config{
			BaseURL:     opts.BaseURL,
			APIKey:      opts.APIKey,
			Headers:     opts.Headers,
			Endpoint:    opts.Endpoint,
			HTTPClient:  opts.HTTPClient,
			MaxRetries:  opts.MaxRetries,
			BackoffBase: opts.BackoffBase,
		}), nil

	default:
		return nil, fmt.Errorf("unsupported provider kind %q", opts.Kind)
	}
}
