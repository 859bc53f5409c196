package rlmprovider

import (
	"context"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"rlmdriver/internal/rlmerr"
)

// NewAPIClient builds the openai-go client used both for the model
// catalog preflight (this file) and for chat completions
// (internal/chatclient), so both talk to the same resolved endpoint.
func NewAPIClient(cfg ProxyClientConfig) *openai.Client {
	client := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
	)
	return &client
}

// FetchAvailableModels lists the provider's model catalog and returns
// the non-empty string ids. Fails with rlmerr.ProxyError on
// network/HTTP failure, rlmerr.ModelError if the catalog is empty.
func FetchAvailableModels(ctx context.Context, client *openai.Client) ([]string, error) {
	page, err := client.Models.List(ctx)
	if err != nil {
		return nil, rlmerr.ProxyError{Reason: rlmerr.Redact(err.Error())}
	}
	if page == nil {
		return nil, rlmerr.ModelError{Reason: "model catalog response was empty"}
	}

	ids := make([]string, 0, len(page.Data))
	for _, model := range page.Data {
		id := strings.TrimSpace(model.ID)
		if id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, rlmerr.ModelError{Reason: "provider returned an empty model catalog"}
	}
	return ids, nil
}
