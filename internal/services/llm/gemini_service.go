package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/ternarybob/docquery/internal/common"
	"github.com/ternarybob/docquery/internal/interfaces"
)

// GeminiService implements chat generation and batch embeddings using the
// Gemini API. A shared rate limiter paces all outbound calls.
type GeminiService struct {
	config  *common.GeminiConfig
	logger  arbor.ILogger
	client  *genai.Client
	timeout time.Duration
	limiter *rate.Limiter
}

// Compile-time interface assertions
var (
	_ interfaces.GenerationService = (*GeminiService)(nil)
	_ interfaces.EmbeddingProvider = (*GeminiService)(nil)
)

// convertMessagesToGemini converts []interfaces.Message to Gemini Content
// format. System messages are extracted separately for SystemInstruction;
// the rest keep their chronological order.
func convertMessagesToGemini(messages []interfaces.Message) ([]*genai.Content, string, error) {
	if len(messages) == 0 {
		return nil, "", fmt.Errorf("messages cannot be empty")
	}

	hasUserMessage := false
	for _, msg := range messages {
		if msg.Role == "user" {
			hasUserMessage = true
			break
		}
	}
	if !hasUserMessage {
		return nil, "", fmt.Errorf("at least one message must have role 'user'")
	}

	contents := make([]*genai.Content, 0, len(messages))
	var systemText string
	for _, msg := range messages {
		if msg.Role == "system" {
			if systemText == "" {
				systemText = msg.Content
			}
			continue
		}

		var geminiRole string
		switch msg.Role {
		case "assistant":
			geminiRole = genai.RoleModel
		case "user":
			geminiRole = genai.RoleUser
		default:
			geminiRole = genai.RoleUser
		}

		contents = append(contents, &genai.Content{
			Role:  geminiRole,
			Parts: []*genai.Part{genai.NewPartFromText(msg.Content)},
		})
	}

	return contents, systemText, nil
}

// NewGeminiService creates a new Gemini service instance
func NewGeminiService(config *common.GeminiConfig, logger arbor.ILogger) (*GeminiService, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required (set via GEMINI_API_KEY, DOCQUERY_GEMINI_API_KEY, or gemini.api_key in config)")
	}

	if config.Model == "" {
		config.Model = "gemini-2.0-flash"
	}
	if config.EmbeddingModel == "" {
		config.EmbeddingModel = "text-embedding-004"
	}
	if config.EmbeddingDimension <= 0 {
		config.EmbeddingDimension = 768
	}

	timeout, err := time.ParseDuration(config.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid timeout duration '%s': %w", config.Timeout, err)
	}

	rateLimit, err := time.ParseDuration(config.RateLimit)
	if err != nil {
		return nil, fmt.Errorf("invalid rate limit duration '%s': %w", config.RateLimit, err)
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}

	service := &GeminiService{
		config:  config,
		logger:  logger,
		client:  client,
		timeout: timeout,
		limiter: rate.NewLimiter(rate.Every(rateLimit), 1),
	}

	logger.Info().
		Str("chat_model", config.Model).
		Str("embedding_model", config.EmbeddingModel).
		Int("embedding_dimension", config.EmbeddingDimension).
		Dur("timeout", timeout).
		Msg("Gemini service initialized successfully")

	return service, nil
}

// Chat generates a completion response based on the conversation history.
func (s *GeminiService) Chat(ctx context.Context, messages []interfaces.Message) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("messages cannot be empty for chat completion")
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	contents, systemText, err := convertMessagesToGemini(messages)
	if err != nil {
		return "", fmt.Errorf("failed to convert messages to Gemini format: %w", err)
	}

	if err := s.limiter.Wait(timeoutCtx); err != nil {
		return "", fmt.Errorf("rate limiter wait failed: %w", err)
	}

	startTime := time.Now()
	resp, err := s.client.Models.GenerateContent(timeoutCtx, s.config.Model, contents, s.generateConfig(systemText))
	if err != nil {
		s.logger.Error().
			Err(err).
			Int("message_count", len(messages)).
			Msg("Gemini chat completion failed")
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	response := resp.Text()
	if strings.TrimSpace(response) == "" {
		return "", fmt.Errorf("no response generated from Gemini API")
	}

	s.logger.Debug().
		Int("message_count", len(messages)).
		Int("response_length", len(response)).
		Dur("duration", time.Since(startTime)).
		Msg("Gemini chat completion completed")

	return response, nil
}

// ChatStream generates a completion, delivering text fragments through
// onToken as they arrive. The returned string is the full response.
func (s *GeminiService) ChatStream(ctx context.Context, messages []interfaces.Message, onToken func(string) error) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("messages cannot be empty for chat completion")
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	contents, systemText, err := convertMessagesToGemini(messages)
	if err != nil {
		return "", fmt.Errorf("failed to convert messages to Gemini format: %w", err)
	}

	if err := s.limiter.Wait(timeoutCtx); err != nil {
		return "", fmt.Errorf("rate limiter wait failed: %w", err)
	}

	var full strings.Builder
	for chunk, err := range s.client.Models.GenerateContentStream(timeoutCtx, s.config.Model, contents, s.generateConfig(systemText)) {
		if err != nil {
			s.logger.Error().Err(err).Msg("Gemini streaming completion failed")
			return "", fmt.Errorf("streaming completion failed: %w", err)
		}
		text := chunk.Text()
		if text == "" {
			continue
		}
		full.WriteString(text)
		if onToken != nil {
			if err := onToken(text); err != nil {
				return "", fmt.Errorf("token callback failed: %w", err)
			}
		}
	}

	if full.Len() == 0 {
		return "", fmt.Errorf("no response generated from Gemini API")
	}

	return full.String(), nil
}

func (s *GeminiService) generateConfig(systemText string) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(s.config.Temperature),
	}
	if systemText != "" {
		config.SystemInstruction = genai.NewContentFromText(systemText, genai.RoleUser)
	}
	return config
}

// EmbedBatch generates embeddings for up to the provider limit of texts in
// one API call. Each result carries the index of its input text so callers
// can restore input order regardless of response ordering.
func (s *GeminiService) EmbedBatch(ctx context.Context, texts []string) ([]interfaces.BatchEmbedding, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("texts cannot be empty for embedding generation")
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.limiter.Wait(timeoutCtx); err != nil {
		return nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	contents := make([]*genai.Content, 0, len(texts))
	for _, text := range texts {
		contents = append(contents, genai.NewContentFromText(text, genai.RoleUser))
	}

	outputDim := int32(s.config.EmbeddingDimension)
	result, err := s.client.Models.EmbedContent(timeoutCtx, s.config.EmbeddingModel, contents, &genai.EmbedContentConfig{
		OutputDimensionality: &outputDim,
	})
	if err != nil {
		s.logger.Error().
			Err(err).
			Int("batch_size", len(texts)).
			Msg("Gemini embedding generation failed")
		return nil, fmt.Errorf("embedding generation failed: %w", err)
	}

	if result == nil || len(result.Embeddings) != len(texts) {
		got := 0
		if result != nil {
			got = len(result.Embeddings)
		}
		return nil, fmt.Errorf("embedding count mismatch: expected %d, got %d", len(texts), got)
	}

	embeddings := make([]interfaces.BatchEmbedding, 0, len(texts))
	for i, emb := range result.Embeddings {
		if len(emb.Values) != s.config.EmbeddingDimension {
			return nil, fmt.Errorf("embedding dimension mismatch at index %d: expected %d, got %d", i, s.config.EmbeddingDimension, len(emb.Values))
		}
		embeddings = append(embeddings, interfaces.BatchEmbedding{
			Index:  i,
			Values: emb.Values,
		})
	}

	return embeddings, nil
}

// Dimension returns the configured embedding vector size.
func (s *GeminiService) Dimension() int {
	return s.config.EmbeddingDimension
}

// HealthCheck verifies the Gemini service can handle requests with a
// lightweight embedding probe.
func (s *GeminiService) HealthCheck(ctx context.Context) error {
	if s.client == nil {
		return fmt.Errorf("genai client is not initialized")
	}

	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	embeddings, err := s.EmbedBatch(healthCtx, []string{"health check probe"})
	if err != nil {
		return fmt.Errorf("embedding probe failed: %w", err)
	}
	if len(embeddings) == 0 || len(embeddings[0].Values) == 0 {
		return fmt.Errorf("embedding probe returned empty vector")
	}

	s.logger.Debug().
		Int("embedding_dim", len(embeddings[0].Values)).
		Msg("Gemini health check passed")

	return nil
}

// Close releases resources. The genai client does not require explicit
// cleanup beyond clearing the reference.
func (s *GeminiService) Close() error {
	s.logger.Debug().Msg("Closing Gemini service")
	s.client = nil
	return nil
}
