package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/EmberRavager/youagent/internal/config"
)

// Client talks to an OpenAI-compatible chat completions endpoint.
type Client struct {
	Config config.APIConfig

	api *openai.Client
}

// NewClient creates a chat client from a resolved API configuration.
func NewClient(cfg config.APIConfig) *Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL
	clientCfg.HTTPClient = &http.Client{
		Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
	}

	return &Client{
		Config: cfg,
		api:    openai.NewClientWithConfig(clientCfg),
	}
}

// FromOptions resolves provider presets and environment variables, then
// builds a client. It fails before any network call when the configuration
// is incomplete.
func FromOptions(provider, model, apiKey, baseURL string, timeoutSeconds int) (*Client, error) {
	cfg, err := config.ResolveAPIConfig(provider, model, apiKey, baseURL, timeoutSeconds)
	if err != nil {
		return nil, err
	}
	return NewClient(cfg), nil
}

// ChatCompletion sends the full message log plus tool schemas and returns
// the assistant message of the first choice.
func (c *Client) ChatCompletion(ctx context.Context, messages []Message, tools []Tool) (Message, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.Config.Model,
		Messages:    toOpenAIMessages(messages),
		Temperature: 0.2,
	}
	if len(tools) > 0 {
		req.Tools = toOpenAITools(tools)
		req.ToolChoice = "auto"
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return Message{}, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Message{}, fmt.Errorf("chat completion returned no choices")
	}

	return fromOpenAIMessage(resp.Choices[0].Message), nil
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		msg := openai.ChatCompletionMessage{
			Role:       m.Role,
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
		}
		for _, tc := range m.ToolCalls {
			msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			})
		}
		out = append(out, msg)
	}
	return out
}

func toOpenAITools(tools []Tool) []openai.Tool {
	out := make([]openai.Tool, 0, len(tools))
	for _, t := range tools {
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Function.Name,
				Description: t.Function.Description,
				Parameters:  t.Function.Parameters,
			},
		})
	}
	return out
}

func fromOpenAIMessage(msg openai.ChatCompletionMessage) Message {
	out := Message{
		Role:    msg.Role,
		Content: msg.Content,
	}
	for _, tc := range msg.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			ID:   tc.ID,
			Type: string(tc.Type),
			Function: FunctionCall{
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			},
		})
	}
	return out
}
