// Package insight generates the optional executive summary that heads the
// email report, backed by Google's Gemini API.
package insight

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/uclone1/yt-competitor-monitor/internal/analysis"
	"github.com/uclone1/yt-competitor-monitor/internal/config"
)

// maxSummaryRunes caps the summary so a rambling response cannot dominate
// the report.
const maxSummaryRunes = 600

// Summarizer turns a run's analysis results into a short prose summary.
type Summarizer struct {
	client     *genai.Client
	log        *slog.Logger
	contentCfg *genai.GenerateContentConfig
	model      string
	maxRetries int
	retryDelay time.Duration
}

// NewSummarizer creates a Gemini-backed summarizer with the provided
// configuration.
func NewSummarizer(ctx context.Context, cfg config.GeminiConfig, log *slog.Logger) (*Summarizer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	gi, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	contentCfg := &genai.GenerateContentConfig{
		Temperature: &cfg.Temperature,
	}
	if cfg.Instruction != "" {
		contentCfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: cfg.Instruction}}}
	}

	logger := log.With("component", "summarizer")
	logger.Info("Gemini summarizer initialized", "model", cfg.Model)

	return &Summarizer{
		client:     gi,
		log:        logger,
		contentCfg: contentCfg,
		model:      cfg.Model,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
	}, nil
}

// Summarize produces a short prose summary of the outperforming videos.
// An empty result set yields an empty summary without an API call.
func (s *Summarizer) Summarize(ctx context.Context, channels []analysis.ChannelReport) (string, error) {
	if len(channels) == 0 {
		return "", nil
	}

	s.log.DebugContext(ctx, "Generating summary", "channels", len(channels))

	contents := []*genai.Content{genai.NewContentFromText(buildPrompt(channels), genai.RoleUser)}

	resp, err := s.generateWithRetries(ctx, contents)
	if err != nil {
		return "", err
	}

	return extractSummary(resp)
}

// buildPrompt renders the analysis results as a compact digest the model
// can reason over without the report markup.
func buildPrompt(channels []analysis.ChannelReport) string {
	var sb strings.Builder

	sb.WriteString("Today's outperforming YouTube videos across the tracked competitor channels:\n\n")
	for _, ch := range channels {
		fmt.Fprintf(&sb, "Channel %s (%s, avg %.0f views/video):\n", ch.ChannelName, ch.Handle, ch.AvgViews)
		for _, v := range ch.Outperformers {
			fmt.Fprintf(&sb, "- %q with %d views (%.1fx the channel average", v.Title, v.Views, v.Ratio)
			if v.Recent {
				sb.WriteString(", published this week")
			}
			sb.WriteString(")\n")
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func (s *Summarizer) generateWithRetries(ctx context.Context, contents []*genai.Content) (*genai.GenerateContentResponse, error) {
	var resp *genai.GenerateContentResponse
	var err error

	for i := 0; i <= s.maxRetries; i++ {
		resp, err = s.client.Models.GenerateContent(ctx, s.model, contents, s.contentCfg)
		if err == nil {
			return resp, nil
		}

		var apiErr *genai.APIError
		if errors.As(err, &apiErr) && (apiErr.Code == 500 || apiErr.Code == 503) {
			if i < s.maxRetries {
				s.log.WarnContext(ctx, "Gemini call failed, retrying",
					"attempt", i+1, "code", apiErr.Code, "delay", s.retryDelay)
				select {
				case <-time.After(s.retryDelay):
				case <-ctx.Done():
					return nil, ctx.Err()
				}
				continue
			}
			return nil, fmt.Errorf("gemini call failed after %d retries (code %d): %w", s.maxRetries, apiErr.Code, err)
		}

		return nil, fmt.Errorf("gemini call failed: %w", err)
	}

	return nil, err
}

func extractSummary(resp *genai.GenerateContentResponse) (string, error) {
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockedReasonUnspecified {
		reason := fmt.Sprintf("%v", resp.PromptFeedback.BlockReason)
		if resp.PromptFeedback.BlockReasonMessage != "" {
			reason = resp.PromptFeedback.BlockReasonMessage
		}
		return "", fmt.Errorf("summary blocked by safety filter: %s", reason)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("summary response has no content")
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", errors.New("summary response is empty")
	}

	runes := []rune(text)
	if len(runes) > maxSummaryRunes {
		text = string(runes[:maxSummaryRunes]) + "..."
	}

	return text, nil
}
