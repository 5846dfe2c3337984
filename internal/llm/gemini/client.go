package gemini

import (
	"context"
	"errors"
	"strings"
	"time"

	"google.golang.org/genai"

	"peerprep/interview/internal/llm"
	"peerprep/interview/internal/models"
)

const ProviderName = "gemini"

// Client represents a Gemini LLM client
type Client struct {
	client *genai.Client
	config *Config
}

func NewClient(config *Config) (*Client, error) {
	ctx := context.Background()

	clientConfig := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: config.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, &llm.ProviderError{
			Provider: ProviderName,
			Code:     llm.ErrCodeAPIKey,
			Message:  "Failed to create Gemini client",
			Err:      err,
		}
	}

	return &Client{
		client: client,
		config: config,
	}, nil
}

// GenerateContent sends the prompt and returns the text of the first non-empty candidate.
func (c *Client) GenerateContent(ctx context.Context, prompt string, requestID string) (*models.GenerationResponse, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, &llm.ProviderError{
			Provider: ProviderName,
			Code:     llm.ErrCodeInvalidInput,
			Message:  "Prompt must not be empty",
		}
	}

	startTime := time.Now()
	result, err := c.client.Models.GenerateContent(
		ctx,
		c.config.Model,
		genai.Text(prompt),
		&genai.GenerateContentConfig{Temperature: genai.Ptr(c.config.Temperature)},
	)
	if err != nil {
		return nil, classifyError(ctx, err)
	}
	if result == nil {
		return nil, &llm.ProviderError{
			Provider: ProviderName,
			Code:     llm.ErrCodeEmpty,
			Message:  "No response generated",
		}
	}

	content := firstCandidateText(result)
	if content == "" {
		return nil, &llm.ProviderError{
			Provider: ProviderName,
			Code:     llm.ErrCodeEmpty,
			Message:  "Empty response generated",
		}
	}

	return &models.GenerationResponse{
		Content:   content,
		RequestID: requestID,
		Metadata: models.GenerationMetadata{
			ProcessingTime: int(time.Since(startTime).Milliseconds()),
			Provider:       ProviderName,
			Model:          c.config.Model,
		},
	}, nil
}

func (c *Client) GetProviderName() string {
	return ProviderName
}

func firstCandidateText(resp *genai.GenerateContentResponse) string {
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		var builder strings.Builder
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
		if builder.Len() > 0 {
			return builder.String()
		}
	}
	return ""
}

func classifyError(ctx context.Context, err error) *llm.ProviderError {
	provErr := &llm.ProviderError{
		Provider: ProviderName,
		Code:     llm.ErrCodeServiceDown,
		Message:  "Failed to generate content",
		Err:      err,
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		provErr.Code = llm.ErrCodeTimeout
		provErr.Message = "Generation timed out"
	case isRateLimitError(err):
		provErr.Code = llm.ErrCodeRateLimit
		provErr.Message = "Rate limit exceeded"
	case isAuthError(err):
		provErr.Code = llm.ErrCodeAPIKey
		provErr.Message = "Gemini rejected the API key"
	}
	return provErr
}

func isRateLimitError(err error) bool {
	return errorContains(err, "429", "resource_exhausted", "quota", "rate limit")
}

func isAuthError(err error) bool {
	return errorContains(err, "401", "403", "api key not valid", "permission_denied", "unauthenticated")
}

func errorContains(err error, needles ...string) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, needle := range needles {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}
