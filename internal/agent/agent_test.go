package agent

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/strategist/internal/config"
	"example.com/strategist/internal/domain"
	"example.com/strategist/internal/logger"
)

func sampleInput(t *testing.T) domain.StrategyInput {
	t.Helper()
	in, err := domain.NewStrategyInput("TechCorp", "SaaS", "B2B decision makers", "Increase brand awareness")
	require.NoError(t, err)
	return in
}

func mockJSON(t *testing.T) string {
	t.Helper()
	b, err := json.Marshal(mockStrategy())
	require.NoError(t, err)
	return string(b)
}

func TestMock_ReturnsValidStrategy(t *testing.T) {
	out, err := NewMock(0).GenerateStrategy(context.Background(), sampleInput(t))
	require.NoError(t, err)
	require.NoError(t, out.Validate())

	assert.GreaterOrEqual(t, len(out.ContentPillars), domain.MinContentPillars)
	assert.LessOrEqual(t, len(out.ContentPillars), domain.MaxContentPillars)
	assert.GreaterOrEqual(t, len(out.PlatformRecommendations), domain.MinPlatformRecommendations)
	assert.GreaterOrEqual(t, len(out.ContentThemes), domain.MinContentThemes)
	assert.GreaterOrEqual(t, len(out.EngagementTactics), domain.MinEngagementTactics)
	assert.NotEmpty(t, out.PostingSchedule)
	for _, p := range out.PlatformRecommendations {
		assert.True(t, p.Priority.Valid())
	}
	for _, prompt := range out.VisualPrompts {
		assert.GreaterOrEqual(t, len(prompt), 50, "visual prompt too short: %s", prompt)
	}
}

func TestMock_Deterministic(t *testing.T) {
	m := NewMock(0)
	a, err := m.GenerateStrategy(context.Background(), sampleInput(t))
	require.NoError(t, err)
	b, err := m.GenerateStrategy(context.Background(), domain.StrategyInput{BrandName: "Other"})
	require.NoError(t, err)
	assert.Equal(t, a, b)

	a.ContentPillars[0] = "mutated"
	c, _ := m.GenerateStrategy(context.Background(), sampleInput(t))
	assert.NotEqual(t, "mutated", c.ContentPillars[0])
}

func TestMock_Delay(t *testing.T) {
	m := NewMock(50 * time.Millisecond)
	start := time.Now()
	_, err := m.GenerateStrategy(context.Background(), sampleInput(t))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestMock_ConcurrentCallsOverlap(t *testing.T) {
	m := NewMock(100 * time.Millisecond)
	start := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.GenerateStrategy(context.Background(), domain.StrategyInput{})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Less(t, time.Since(start), 400*time.Millisecond)
}

func TestMock_Timeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := NewMock(time.Second).GenerateStrategy(ctx, sampleInput(t))
	require.Error(t, err)
	var ae *Error
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "mock", ae.Provider)
	assert.True(t, IsTimeout(err))
}

func fakeLLM(c completion) *LLM {
	return &LLM{provider: "fake", model: "test", complete: c, log: logger.Nop()}
}

func TestLLM_DecodesFencedReply(t *testing.T) {
	reply := "Here is your strategy:\n```json\n" + mockJSON(t) + "\n```"
	var gotUser string
	l := fakeLLM(func(_ context.Context, system, user string) (string, error) {
		assert.Contains(t, system, `"visual_prompts"`)
		gotUser = user
		return reply, nil
	})
	out, err := l.GenerateStrategy(context.Background(), sampleInput(t))
	require.NoError(t, err)
	assert.Equal(t, mockStrategy(), out)
	assert.Contains(t, gotUser, "Brand name: TechCorp")
	assert.Contains(t, gotUser, "Target audience: B2B decision makers")
}

func TestLLM_InvalidOutputIsValidationError(t *testing.T) {
	bad := mockStrategy()
	bad.VisualPrompts = append(bad.VisualPrompts, "one too many")
	b, err := json.Marshal(bad)
	require.NoError(t, err)

	l := fakeLLM(func(context.Context, string, string) (string, error) { return string(b), nil })
	_, err = l.GenerateStrategy(context.Background(), sampleInput(t))
	ve, ok := domain.AsValidationError(err)
	require.True(t, ok, "got %v", err)
	assert.True(t, ve.Has("visual_prompts"))
}

func TestLLM_NonJSONIsAgentError(t *testing.T) {
	l := fakeLLM(func(context.Context, string, string) (string, error) { return "I cannot help with that.", nil })
	_, err := l.GenerateStrategy(context.Background(), sampleInput(t))
	var ae *Error
	require.True(t, errors.As(err, &ae))
	assert.ErrorIs(t, err, domain.ErrMalformedJSON)
}

func TestLLM_UpstreamErrors(t *testing.T) {
	l := fakeLLM(func(context.Context, string, string) (string, error) { return "", errors.New("503 overloaded") })
	_, err := l.GenerateStrategy(context.Background(), sampleInput(t))
	var ae *Error
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "fake", ae.Provider)
	assert.False(t, IsTimeout(err))

	slow := fakeLLM(func(ctx context.Context, _, _ string) (string, error) {
		<-ctx.Done()
		return "", errors.New("request aborted")
	})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = slow.GenerateStrategy(ctx, sampleInput(t))
	assert.True(t, IsTimeout(err))
}

func TestExtractJSON(t *testing.T) {
	assert.Equal(t, `{"a":1}`, extractJSON("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, extractJSON("  {\"a\":1}  "))
	assert.Equal(t, `{"a":{"b":2}}`, extractJSON("Sure! {\"a\":{\"b\":2}} Hope it helps."))
	assert.Equal(t, "no json", extractJSON("no json"))
}

func TestOpenAI_ChatCompletion(t *testing.T) {
	content := mockJSON(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		var req map[string]any
		require.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, "gpt-test", req["model"])
		assert.Equal(t, "json_object", req["response_format"].(map[string]any)["type"])

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "gpt-test",
			"choices": []any{map[string]any{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			}},
		})
	}))
	defer srv.Close()

	s, err := NewOpenAI(config.Agent{APIKey: "sk-test", BaseURL: srv.URL + "/v1", Model: "gpt-test", MaxTokens: 1024}, nil)
	require.NoError(t, err)
	out, err := s.GenerateStrategy(context.Background(), sampleInput(t))
	require.NoError(t, err)
	assert.Equal(t, mockStrategy(), out)
}

func TestAnthropic_Messages(t *testing.T) {
	content := mockJSON(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "ak-test", r.Header.Get("X-Api-Key"))
		body, _ := io.ReadAll(r.Body)
		assert.True(t, strings.Contains(string(body), "expert social media strategist"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":          "msg_1",
			"type":        "message",
			"role":        "assistant",
			"model":       "claude-test",
			"content":     []any{map[string]any{"type": "text", "text": content}},
			"stop_reason": "end_turn",
			"usage":       map[string]any{"input_tokens": 10, "output_tokens": 20},
		})
	}))
	defer srv.Close()

	s, err := NewAnthropic(config.Agent{APIKey: "ak-test", BaseURL: srv.URL + "/v1", Model: "claude-test", MaxTokens: 1024}, nil)
	require.NoError(t, err)
	out, err := s.GenerateStrategy(context.Background(), sampleInput(t))
	require.NoError(t, err)
	assert.Equal(t, mockStrategy(), out)
}

func TestNew(t *testing.T) {
	s, err := New(config.Agent{Provider: "mock"}, logger.Nop())
	require.NoError(t, err)
	assert.IsType(t, &Mock{}, s)

	s, err = New(config.Agent{Provider: "openai", APIKey: "k"}, logger.Nop())
	require.NoError(t, err)
	assert.Equal(t, "openai", s.(*LLM).Provider())

	_, err = New(config.Agent{Provider: "anthropic"}, logger.Nop())
	assert.Error(t, err)

	_, err = New(config.Agent{Provider: "bedrock"}, logger.Nop())
	assert.Error(t, err)
}
