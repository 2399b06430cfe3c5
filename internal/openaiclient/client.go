// Package openaiclient builds OpenAI API clients from configuration.
package openaiclient

import (
	"os"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Settings are the connection parameters shared by the embedding and generation clients.
type Settings struct {
	// APIKeyEnv names the environment variable holding the API key. When the variable is
	// unset the client falls back to OPENAI_API_KEY.
	APIKeyEnv  string
	BaseURL    string
	MaxRetries int
	Timeout    time.Duration
}

// Options returns the request options for s. A negative MaxRetries disables retries.
func (s Settings) Options() []option.RequestOption {
	var opts []option.RequestOption
	if s.APIKeyEnv != "" {
		if key := os.Getenv(s.APIKeyEnv); key != "" {
			opts = append(opts, option.WithAPIKey(key))
		}
	}
	if s.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(s.BaseURL))
	}
	opts = append(opts, option.WithMaxRetries(max(s.MaxRetries, 0)))
	if s.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(s.Timeout))
	}
	return opts
}

// New returns a client for s. Extra options are applied last and win over s.
func New(s Settings, extra ...option.RequestOption) openai.Client {
	return openai.NewClient(append(s.Options(), extra...)...)
}
