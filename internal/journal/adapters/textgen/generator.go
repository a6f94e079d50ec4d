// Package textgen генерирует подсказки для записей через внешнюю языковую модель.
package textgen

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	anthropicclient "github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	openaiclient "github.com/openai/openai-go/v2"
	openaioption "github.com/openai/openai-go/v2/option"
	jetai "go.jetify.com/ai"
	jetapi "go.jetify.com/ai/api"
	jetanthropic "go.jetify.com/ai/provider/anthropic"
	jetopenai "go.jetify.com/ai/provider/openai"
	"go.uber.org/zap"

	"moodnote/pkg/logger"
	"moodnote/pkg/resilience"
)

// Поддерживаемые провайдеры.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderDisabled  = "disabled"
)

const (
	defaultOpenAIModel    = "gpt-4o-mini"
	defaultAnthropicModel = "claude-haiku-4-5-20251001"
	defaultMaxTokens      = 300
	systemPrompt          = "You help people start a short personal mood journal entry. Reply with the entry starter only."
)

// Ошибки генератора.
var (
	ErrDisabled      = errors.New("text generation is disabled")
	ErrMissingAPIKey = errors.New("text generation api key is empty")
	ErrEmptyResponse = errors.New("empty response from language model")
	ErrUnknownVendor = errors.New("unknown text generation provider")
)

// Config настройки провайдера.
type Config struct {
	Provider        string
	APIKey          string
	Model           string
	BaseURL         string
	Timeout         time.Duration
	MaxOutputTokens int
}

// Generator реализует services.TextGenerator.
type Generator struct {
	call      func(ctx context.Context, prompt string) (string, error)
	guard     *resilience.ServiceResilience
	timeout   time.Duration
	modelName string
}

// New создает генератор. Для отключенного провайдера возвращает ErrDisabled.
func New(cfg Config, guard *resilience.ServiceResilience) (*Generator, error) {
	model, name, err := buildLanguageModel(cfg)
	if err != nil {
		return nil, err
	}

	maxTokens := cfg.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	call := func(ctx context.Context, prompt string) (string, error) {
		resp, err := jetai.GenerateText(ctx,
			buildPromptMessages(prompt),
			jetai.WithModel(model),
			jetai.WithMaxOutputTokens(maxTokens),
		)
		if err != nil {
			return "", err
		}
		return extractText(resp)
	}
	return newGenerator(call, guard, cfg.Timeout, name), nil
}

func newGenerator(call func(context.Context, string) (string, error), guard *resilience.ServiceResilience, timeout time.Duration, name string) *Generator {
	if guard == nil {
		guard = resilience.NewServiceResilience("textgen",
			resilience.DefaultCircuitBreakerConfig(), resilience.DefaultRetryConfig())
	}
	return &Generator{call: call, guard: guard, timeout: timeout, modelName: name}
}

// Generate возвращает текст модели для prompt.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	log := logger.Log(ctx).With(zap.String("method", "Generator.Generate"), zap.String("model", g.modelName))

	text, err := resilience.ExecuteWithResult(ctx, g.guard, "generate", func() (string, error) {
		callCtx := ctx
		if g.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, g.timeout)
			defer cancel()
		}
		return g.call(callCtx, prompt)
	})
	if err != nil {
		log.Warn(ctx, "language model call failed", zap.Error(err))
		return "", fmt.Errorf("failed to generate text: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// State состояние предохранителя провайдера.
func (g *Generator) State() resilience.CircuitState {
	return g.guard.State()
}

func buildPromptMessages(prompt string) []jetapi.Message {
	return []jetapi.Message{
		&jetapi.SystemMessage{Content: systemPrompt},
		&jetapi.UserMessage{Content: jetapi.ContentFromText(prompt)},
	}
}

func extractText(resp *jetapi.Response) (string, error) {
	if resp == nil {
		return "", ErrEmptyResponse
	}

	var full strings.Builder
	for _, block := range resp.Content {
		textBlock, ok := block.(*jetapi.TextBlock)
		if !ok || textBlock.Text == "" {
			continue
		}
		full.WriteString(textBlock.Text)
	}

	if strings.TrimSpace(full.String()) == "" {
		return "", ErrEmptyResponse
	}
	return full.String(), nil
}

func buildLanguageModel(cfg Config) (jetapi.LanguageModel, string, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" || provider == ProviderDisabled {
		return nil, "", ErrDisabled
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, "", ErrMissingAPIKey
	}
	modelID := strings.TrimSpace(cfg.Model)
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")

	switch provider {
	case ProviderAnthropic:
		if modelID == "" {
			modelID = defaultAnthropicModel
		}
		opts := []anthropicoption.RequestOption{
			anthropicoption.WithAPIKey(apiKey),
			anthropicoption.WithMaxRetries(0),
		}
		if baseURL != "" {
			opts = append(opts, anthropicoption.WithBaseURL(baseURL))
		}
		client := anthropicclient.NewClient(opts...)
		return jetanthropic.NewLanguageModel(modelID, jetanthropic.WithClient(client)), modelID, nil

	case ProviderOpenAI:
		if modelID == "" {
			modelID = defaultOpenAIModel
		}
		opts := []openaioption.RequestOption{
			openaioption.WithAPIKey(apiKey),
			openaioption.WithMaxRetries(0),
		}
		if baseURL != "" {
			opts = append(opts, openaioption.WithBaseURL(baseURL))
		}
		client := openaiclient.NewClient(opts...)
		return jetopenai.NewLanguageModel(modelID, jetopenai.WithClient(client)), modelID, nil

	default:
		return nil, "", fmt.Errorf("%w: %q", ErrUnknownVendor, cfg.Provider)
	}
}
