package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/procurechain/procurechain/internal/resilience"
)

// LLMConfig configures the optional natural-language technical scorer.
type LLMConfig struct {
	Endpoint string // OpenAI-compatible chat completions URL
	APIKey   string
	Model    string
	Timeout  time.Duration
	// Weight of the LLM assessment when blended with the lexical
	// proposal component. Remainder goes to the rule-based component.
	BlendWeight float64
}

// DefaultLLMConfig returns conservative defaults for the external call.
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		Model:       "gpt-4o-mini",
		Timeout:     10 * time.Second,
		BlendWeight: 0.7,
	}
}

// LLMScorer asks an external language model to assess proposal quality
// and blends the answer with the rule-based lexical score. This is the
// only blocking call in the pipeline, so it carries a hard timeout, a
// circuit breaker and retries; any failure is returned to the engine,
// which falls back to the deterministic scorer.
type LLMScorer struct {
	cfg      LLMConfig
	ruleCfg  Config
	fallback RuleBasedScorer
	client   *http.Client
	breaker  *resilience.CircuitBreaker
}

func NewLLMScorer(cfg LLMConfig, ruleCfg Config) *LLMScorer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.BlendWeight <= 0 || cfg.BlendWeight > 1 {
		cfg.BlendWeight = 0.7
	}
	return &LLMScorer{
		cfg:      cfg,
		ruleCfg:  ruleCfg,
		fallback: NewRuleBasedScorer(ruleCfg),
		client:   &http.Client{Timeout: cfg.Timeout},
		breaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			FailureThreshold: 3,
			RecoveryTimeout:  30 * time.Second,
			SuccessThreshold: 2,
		}),
	}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (s *LLMScorer) Score(ctx context.Context, proposal string, deliveryDays int) (TechnicalInsight, error) {
	base, _ := s.fallback.Score(ctx, proposal, deliveryDays)

	var assessment float64
	err := s.breaker.Call(func() error {
		return resilience.RetryWithPolicy(ctx, resilience.FastRetryPolicy, func() error {
			v, callErr := s.assess(ctx, proposal, deliveryDays)
			if callErr != nil {
				return callErr
			}
			assessment = v
			return nil
		})
	})
	if err != nil {
		return TechnicalInsight{}, fmt.Errorf("llm assessment failed: %w", err)
	}

	insight := base
	insight.Strategy = "llm"
	insight.ProposalComponent = clamp(
		s.cfg.BlendWeight*assessment+(1-s.cfg.BlendWeight)*base.ProposalComponent, 0, 100)
	insight.Score = clamp(0.6*insight.ProposalComponent+0.4*insight.TimelineComponent, 0, 100)
	return insight, nil
}

// assess makes one chat completions call and parses the numeric verdict.
func (s *LLMScorer) assess(ctx context.Context, proposal string, deliveryDays int) (float64, error) {
	prompt := fmt.Sprintf(
		"Rate the following procurement bid proposal for technical quality on a scale of 0 to 100. "+
			"Consider methodology, concreteness, and delivery feasibility for a %d day timeline. "+
			"Respond with only the number.\n\nProposal:\n%s", deliveryDays, proposal)

	body, err := json.Marshal(chatRequest{
		Model: s.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: "You are a procurement technical evaluator. Respond with a single number."},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("llm API status %d: %s", resp.StatusCode, string(raw))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("failed to decode llm response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return 0, fmt.Errorf("llm response contained no choices")
	}

	value, err := parseScore(parsed.Choices[0].Message.Content)
	if err != nil {
		return 0, err
	}
	return clamp(value, 0, 100), nil
}

// parseScore extracts the leading number from a model reply, tolerating
// surrounding prose.
func parseScore(content string) (float64, error) {
	fields := strings.FieldsFunc(strings.TrimSpace(content), func(r rune) bool {
		return (r < '0' || r > '9') && r != '.'
	})
	for _, f := range fields {
		if v, err := strconv.ParseFloat(f, 64); err == nil {
			return v, nil
		}
	}
	return 0, fmt.Errorf("no numeric score in llm reply %q", content)
}
