package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/benvon/study-planner/internal/models"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"go.uber.org/zap"
)

const (
	// DefaultOpenAIModel is the default model to use
	DefaultOpenAIModel = "gpt-4o-mini"
	// DefaultOpenAIBaseURL is the default OpenAI API base URL
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	// DefaultTimeout is the default timeout for API calls
	DefaultTimeout = 30 * time.Second

	// MaxOrderingTokens caps the length of an ordering suggestion
	MaxOrderingTokens = 120
	// MaxUpcomingInPrompt bounds how many upcoming tasks the assistant sees
	MaxUpcomingInPrompt = 20

	// ErrNoChoicesInResponse is returned when the API response has no choices
	ErrNoChoicesInResponse = "no choices in response"
)

// OpenAIProvider implements the AIProvider interface using OpenAI's API
type OpenAIProvider struct {
	client    openai.Client
	model     string
	logger    *zap.Logger
	debugMode bool
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(apiKey string, model string) *OpenAIProvider {
	return NewOpenAIProviderWithLogger(apiKey, DefaultOpenAIBaseURL, model, nil, false)
}

// NewOpenAIProviderWithLogger creates a new OpenAI provider with logger support
func NewOpenAIProviderWithLogger(apiKey string, baseURL string, model string, logger *zap.Logger, debugMode bool) *OpenAIProvider {
	if model == "" {
		model = DefaultOpenAIModel
	}
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}

	httpClient := &http.Client{
		Timeout: DefaultTimeout,
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithHTTPClient(httpClient),
	)

	return &OpenAIProvider{
		client:    client,
		model:     model,
		logger:    logger,
		debugMode: debugMode,
	}
}

// SuggestOrdering asks the model which of two same-day tasks to start with
func (p *OpenAIProvider) SuggestOrdering(ctx context.Context, first, second *models.Task) (string, error) {
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage("You are a study coach. Given two tasks due on the same day, recommend which to complete first in one or two short sentences that start with \"Complete\". Do not use lists or markdown."),
		openai.UserMessage(buildOrderingPrompt(first, second)),
	}

	content, err := p.complete(ctx, "suggest_ordering", messages, MaxOrderingTokens)
	if err != nil {
		return "", fmt.Errorf("failed to suggest ordering: %w", err)
	}
	return strings.TrimSpace(content), nil
}

// Chat handles a chat message and returns the AI response
func (p *OpenAIProvider) Chat(ctx context.Context, messages []ChatMessage, planning *PlanningContext) (*ChatResponse, error) {
	openAIMessages := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages)+1)
	openAIMessages = append(openAIMessages, openai.SystemMessage(buildChatSystemPrompt(planning)))

	for _, msg := range messages {
		switch msg.Role {
		case "assistant":
			openAIMessages = append(openAIMessages, openai.AssistantMessage(msg.Content))
		default:
			openAIMessages = append(openAIMessages, openai.UserMessage(msg.Content))
		}
	}

	content, err := p.complete(ctx, "chat", openAIMessages, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to chat: %w", err)
	}
	return &ChatResponse{Message: content}, nil
}

// complete sends one chat completion request, logging it in debug mode
func (p *OpenAIProvider) complete(ctx context.Context, operation string, messages []openai.ChatCompletionMessageParamUnion, maxTokens int64) (string, error) {
	requestID := ExtractRequestID(ctx)
	userIDStr := ExtractUserID(ctx)
	taskIDStr := ExtractTaskID(ctx)

	req := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(p.model),
		Messages: messages,
		// Temperature omitted - some models only accept their default
	}
	if maxTokens > 0 {
		req.MaxTokens = openai.Int(maxTokens)
	}

	if p.logger != nil && p.debugMode {
		p.logger.Debug("llm_api_request",
			zap.String("operation", operation),
			zap.String("model", p.model),
			zap.Int("message_count", len(messages)),
			zap.String("user_id", userIDStr),
			zap.String("task_id", taskIDStr),
			zap.String("request_id", requestID),
		)
	}

	start := time.Now()
	resp, err := p.client.Chat.Completions.New(ctx, req)
	latency := time.Since(start)

	if err != nil {
		if p.logger != nil && p.debugMode {
			p.logger.Debug("llm_api_error",
				zap.String("operation", operation),
				zap.String("model", p.model),
				zap.Error(err),
				zap.String("user_id", userIDStr),
				zap.String("request_id", requestID),
				zap.Int64("latency_ms", latency.Milliseconds()),
			)
		}
		if apiErr := ExtractAPIError(err); apiErr != nil {
			return "", apiErr
		}
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", errors.New(ErrNoChoicesInResponse)
	}
	content := resp.Choices[0].Message.Content

	if p.logger != nil && p.debugMode {
		p.logger.Debug("llm_api_response",
			zap.String("operation", operation),
			zap.String("model", p.model),
			zap.Int("response_length", len(content)),
			zap.String("response_preview", SanitizeResponse(content, true)),
			zap.String("user_id", userIDStr),
			zap.String("request_id", requestID),
			zap.Int64("latency_ms", latency.Milliseconds()),
		)
	}

	return content, nil
}

// buildOrderingPrompt describes both tasks with the facts the ordering rule uses
func buildOrderingPrompt(first, second *models.Task) string {
	var b strings.Builder
	b.WriteString("Two tasks compete for the same day.\n\n")
	writeTaskLine(&b, "Task A", first)
	writeTaskLine(&b, "Task B", second)
	b.WriteString("\nPrefer the task with the earlier due time; a task with no due time is due at the end of the day. ")
	b.WriteString("If they are equal, prefer the task that was added first. ")
	b.WriteString("Mention the subject if it helps the student plan.")
	return b.String()
}

func writeTaskLine(b *strings.Builder, label string, t *models.Task) {
	due := "end of day"
	if t.DueTime != nil {
		due = t.DueTime.Display()
	}
	fmt.Fprintf(b, "%s: %q (subject: %s, priority: %s, due %s at %s, added %s)\n",
		label, SanitizePrompt(t.Label(), false), t.Subject, t.Priority, t.DueDate, due,
		t.CreatedAt.UTC().Format(time.RFC3339))
}

// buildChatSystemPrompt gives the assistant the student's schedule and any
// conflict found for the task they are proposing
func buildChatSystemPrompt(planning *PlanningContext) string {
	var b strings.Builder
	b.WriteString("You are a friendly study planning assistant. Help the student schedule tasks, plan Pomodoro sessions and avoid overloading a single day. Be concise.")

	if planning == nil {
		return b.String()
	}

	if !planning.Today.IsZero() {
		fmt.Fprintf(&b, "\n\nToday is %s.", planning.Today)
	}

	if len(planning.Upcoming) > 0 {
		b.WriteString("\n\nUpcoming incomplete tasks:")
		for i, t := range planning.Upcoming {
			if i >= MaxUpcomingInPrompt {
				fmt.Fprintf(&b, "\n- ...and %d more", len(planning.Upcoming)-MaxUpcomingInPrompt)
				break
			}
			due := ""
			if t.DueTime != nil {
				due = " at " + t.DueTime.Display()
			}
			fmt.Fprintf(&b, "\n- %s (%s, %s priority) due %s%s", SanitizePrompt(t.Label(), false), t.Subject, t.Priority, t.DueDate, due)
		}
	}

	if planning.Proposed != nil {
		fmt.Fprintf(&b, "\n\nThe student wants to add %q due %s.", SanitizePrompt(planning.Proposed.Label(), false), planning.Proposed.DueDate)
	}

	if planning.Conflict != nil && planning.Conflict.HasConflict {
		fmt.Fprintf(&b, "\nA %s conflict was detected: %s Explain it and suggest an adjustment.",
			planning.Conflict.ConflictType, planning.Conflict.Recommendation)
	}

	return b.String()
}

// RegisterOpenAI registers the OpenAI provider with the registry
func RegisterOpenAI(registry *ProviderRegistry) {
	registry.Register("openai", func(config map[string]string) (AIProvider, error) {
		apiKey, ok := config["api_key"]
		if !ok || apiKey == "" {
			return nil, fmt.Errorf("openai api_key is required")
		}

		return NewOpenAIProviderWithLogger(apiKey, config["base_url"], config["model"], nil, false), nil
	})
}
