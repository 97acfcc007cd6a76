package scoring

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func llmTestConfig(endpoint string) LLMConfig {
	cfg := DefaultLLMConfig()
	cfg.Endpoint = endpoint
	cfg.Timeout = 2 * time.Second
	return cfg
}

func TestLLMScorerBlendsAssessment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"90"}}]}`))
	}))
	defer srv.Close()

	s := NewLLMScorer(llmTestConfig(srv.URL), DefaultConfig())
	insight, err := s.Score(context.Background(), goodProposal(), 30)
	require.NoError(t, err)

	assert.Equal(t, "llm", insight.Strategy)

	base, _ := NewRuleBasedScorer(DefaultConfig()).Score(context.Background(), goodProposal(), 30)
	want := 0.7*90 + 0.3*base.ProposalComponent
	assert.InDelta(t, want, insight.ProposalComponent, 0.001)
	assert.InDelta(t, 0.6*insight.ProposalComponent+0.4*insight.TimelineComponent, insight.Score, 0.001)
}

func TestLLMScorerErrorSurfacesForFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model unavailable", http.StatusBadGateway)
	}))
	defer srv.Close()

	s := NewLLMScorer(llmTestConfig(srv.URL), DefaultConfig())
	_, err := s.Score(context.Background(), goodProposal(), 30)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "llm assessment failed")
}

func TestLLMScorerProseReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"I would rate this proposal 75 out of 100."}}]}`))
	}))
	defer srv.Close()

	s := NewLLMScorer(llmTestConfig(srv.URL), DefaultConfig())
	insight, err := s.Score(context.Background(), goodProposal(), 30)
	require.NoError(t, err)
	assert.Greater(t, insight.ProposalComponent, 0.0)
}

func TestEngineFallsBackWhenLLMFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	e, err := NewEngine(DefaultConfig(), NewLLMScorer(llmTestConfig(srv.URL), DefaultConfig()))
	require.NoError(t, err)

	bid := Bid{ID: "b1", TenderID: "t1", VendorID: "v1", ProposedPrice: 80000, TechnicalProposal: goodProposal(), DeliveryDays: 30}
	res := e.ScoreBid(context.Background(), bid, Tender{ID: "t1", Budget: 100000}, &Vendor{ID: "v1"}, []Bid{bid})

	// deterministic fallback answered, so the result matches rule-based
	assert.Equal(t, "rule_based", res.Insights.Technical.Strategy)
	assert.False(t, res.Faulted)
}

func TestParseScore(t *testing.T) {
	tests := []struct {
		reply   string
		want    float64
		wantErr bool
	}{
		{"85", 85, false},
		{" 85.5 ", 85.5, false},
		{"Score: 70/100", 70, false},
		{"no number here", 0, true},
	}

	for _, tt := range tests {
		got, err := parseScore(tt.reply)
		if tt.wantErr {
			assert.Error(t, err, tt.reply)
			continue
		}
		require.NoError(t, err, tt.reply)
		assert.Equal(t, tt.want, got)
	}
}
