package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
)

const (
	DefaultHost  = "http://localhost:11434"
	DefaultModel = "llama3.1:latest"
)

type Client struct {
	client  *api.Client
	model   string
	baseURL string
}

// Options carries the sampling settings Pixie sends with every request.
type Options struct {
	Temperature float64
	NumPredict  int
}

// Result is a completed, non-streamed chat turn.
type Result struct {
	Content         string
	DoneReason      string
	PromptEvalCount int
	EvalCount       int
}

func NewClient(baseURL, model string) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultHost
	}
	if model == "" {
		model = DefaultModel
	}

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Ollama URL: %w", err)
	}

	client := api.NewClient(parsedURL, http.DefaultClient)

	return &Client{
		client:  client,
		model:   model,
		baseURL: baseURL,
	}, nil
}

// Chat sends one non-streaming chat request and returns the full reply.
func (c *Client) Chat(ctx context.Context, messages []api.Message, opts Options) (Result, error) {
	stream := false
	req := &api.ChatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   &stream,
		Options:  map[string]any{"temperature": opts.Temperature},
	}
	if opts.NumPredict > 0 {
		req.Options["num_predict"] = opts.NumPredict
	}

	var (
		content strings.Builder
		result  Result
	)
	respFunc := func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		if resp.Done {
			result.DoneReason = resp.DoneReason
			result.PromptEvalCount = resp.PromptEvalCount
			result.EvalCount = resp.EvalCount
		}
		return nil
	}

	if err := c.client.Chat(ctx, req, respFunc); err != nil {
		return Result{}, err
	}
	result.Content = content.String()
	return result, nil
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) GetModel() string {
	return c.model
}

// Ping verifies the server is up and the configured model has been pulled.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	resp, err := c.client.List(ctx)
	if err != nil {
		return err
	}
	for _, m := range resp.Models {
		if m.Name == c.model || m.Model == c.model {
			return nil
		}
	}
	return fmt.Errorf("model %s is not available on %s", c.model, c.baseURL)
}
