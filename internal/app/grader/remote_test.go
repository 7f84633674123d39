package grader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"data_quest/internal/common"
	"data_quest/internal/domain/model"

	"go.uber.org/zap"
)

const goodVerdict = `{"correct":true,"correctnessScore":95,"qualityScore":25,"performanceScore":40,` +
	`"feedback":{"correctness":"Solves it","quality":"Clean","performance":"Fine"},` +
	`"hints":[],"encouragement":"Nice"}`

func generateBody(text string) string {
	payload := map[string]interface{}{
		"candidates": []interface{}{
			map[string]interface{}{
				"content": map[string]interface{}{
					"parts": []interface{}{map[string]interface{}{"text": text}},
				},
			},
		},
	}
	raw, _ := json.Marshal(payload)
	return string(raw)
}

func sqlChallenge() *model.Challenge {
	return &model.Challenge{
		ID:          "select-crew",
		IslandID:    model.IslandSQLShore,
		Title:       "Select the crew",
		Description: "List every crew member's name.",
		Difficulty:  1,
	}
}

func noSleepPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		Backoff:     Exponential(time.Second),
		Sleep:       func(context.Context, time.Duration) error { return nil },
	}
}

func newTestRemote(url string) *Remote {
	return NewRemote(RemoteConfig{APIKey: "test-key", BaseURL: url, Model: "test-model", Timeout: 2 * time.Second}, nil)
}

func TestRemoteGradeSendsPromptAndParsesFencedJSON(t *testing.T) {
	var gotPath, gotKey string
	var gotReq generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotReq)
		fmt.Fprint(w, generateBody("```json\n"+goodVerdict+"\n```"))
	}))
	defer srv.Close()

	v, err := newTestRemote(srv.URL).Grade(context.Background(), Submission{
		Challenge: sqlChallenge(),
		Code:      "SELECT name FROM crew",
		Output:    json.RawMessage(`[{"name":"Ada"}]`),
	})
	if err != nil {
		t.Fatalf("Grade: %v", err)
	}
	if !v.Correct || v.CorrectnessScore != 95 || v.QualityScore != 25 || v.PerformanceScore != 40 {
		t.Errorf("verdict = %+v", v)
	}
	if gotPath != "/models/test-model:generateContent" {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "test-key" {
		t.Errorf("key = %q", gotKey)
	}
	if gotReq.GenerationConfig.Temperature != gradingTemperature || gotReq.GenerationConfig.ResponseMimeType != "application/json" {
		t.Errorf("generation config = %+v", gotReq.GenerationConfig)
	}
	prompt := gotReq.Contents[0].Parts[0].Text
	for _, want := range []string{"SELECT name FROM crew", "Select the crew", `[{"name":"Ada"}]`, "```sql"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestRemoteUsesPythonPromptOutsideSQLShore(t *testing.T) {
	var prompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		prompt = req.Contents[0].Parts[0].Text
		fmt.Fprint(w, generateBody(goodVerdict))
	}))
	defer srv.Close()

	ch := &model.Challenge{ID: "df-1", IslandID: model.IslandPythonPeninsula, Title: "Make a DataFrame"}
	if _, err := newTestRemote(srv.URL).Grade(context.Background(), Submission{Challenge: ch, Code: "df = spark.range(3)"}); err != nil {
		t.Fatalf("Grade: %v", err)
	}
	if !strings.Contains(prompt, "```python") || !strings.Contains(prompt, "PySpark") {
		t.Errorf("expected the python prompt, got:\n%s", prompt)
	}
}

func TestRemoteRejectsOutOfRangeScores(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, generateBody(`{"correct":true,"correctnessScore":100,"qualityScore":99,"performanceScore":10}`))
	}))
	defer srv.Close()

	if _, err := newTestRemote(srv.URL).Grade(context.Background(), Submission{Challenge: sqlChallenge()}); err == nil {
		t.Fatal("expected out-of-range quality score to be rejected")
	}
}

func TestRetryingRecoversFromTransientFailures(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch atomic.AddInt32(&calls, 1) {
		case 1:
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
		case 2:
			fmt.Fprint(w, generateBody("this is not json"))
		default:
			fmt.Fprint(w, generateBody(goodVerdict))
		}
	}))
	defer srv.Close()

	g := NewRetrying(newTestRemote(srv.URL), noSleepPolicy(), zap.NewNop())
	v, err := g.Grade(context.Background(), Submission{Challenge: sqlChallenge(), Code: "SELECT 1"})
	if err != nil {
		t.Fatalf("Grade: %v", err)
	}
	if !v.Correct {
		t.Errorf("verdict = %+v", v)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("remote calls = %d, want 3", got)
	}
}

func TestRetryingSurfacesGradingErrorWhenExhausted(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	g := NewRetrying(newTestRemote(srv.URL), noSleepPolicy(), zap.NewNop())
	_, err := g.Grade(context.Background(), Submission{Challenge: sqlChallenge(), Code: "SELECT 1"})
	if !errors.Is(err, common.ErrGrading) {
		t.Fatalf("err = %v, want ErrGrading", err)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("remote calls = %d, want 3", got)
	}
}

func TestRemoteAttemptTimesOut(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	remote := NewRemote(RemoteConfig{APIKey: "k", BaseURL: srv.URL, Model: "m", Timeout: 50 * time.Millisecond}, nil)
	start := time.Now()
	if _, err := remote.Grade(context.Background(), Submission{Challenge: sqlChallenge()}); err == nil {
		t.Fatal("expected timeout error")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("attempt took %v, timeout not enforced", elapsed)
	}
}

func TestCachedChainCallsRemoteOnce(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		fmt.Fprint(w, generateBody(goodVerdict))
	}))
	defer srv.Close()

	strategy := New(Options{
		APIKey:   "test-key",
		BaseURL:  srv.URL,
		Model:    "test-model",
		Timeout:  time.Second,
		CacheTTL: 24 * time.Hour,
	}, NewMemoryVerdictCache(), srv.Client(), zap.NewNop())
	if !strategy.Remote {
		t.Fatal("expected the remote strategy when an API key is set")
	}

	sub := Submission{Challenge: sqlChallenge(), Code: "SELECT name FROM crew", Output: json.RawMessage(`[{"name":"Ada"}]`)}
	first, err := strategy.Grader.Grade(context.Background(), sub)
	if err != nil {
		t.Fatalf("first Grade: %v", err)
	}
	second, err := strategy.Grader.Grade(context.Background(), sub)
	if err != nil {
		t.Fatalf("second Grade: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("remote calls = %d, want 1", got)
	}
	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if string(a) != string(b) {
		t.Errorf("cached verdict differs:\n%s\n%s", a, b)
	}
}

func TestNewWithoutKeyUsesFallback(t *testing.T) {
	strategy := New(Options{}, NewMemoryVerdictCache(), nil, zap.NewNop())
	if strategy.Remote {
		t.Fatal("expected fallback strategy")
	}
	if _, ok := strategy.Grader.(Fallback); !ok {
		t.Errorf("Grader = %T, want Fallback", strategy.Grader)
	}
	if strategy.Budget != 0 {
		t.Errorf("fallback Budget = %v, want 0", strategy.Budget)
	}
}

func TestNewRemoteBudgetCoversRetries(t *testing.T) {
	strategy := New(Options{APIKey: "k", Timeout: 30 * time.Second, MaxAttempts: 3}, NewMemoryVerdictCache(), nil, zap.NewNop())
	// Three 30s attempts plus the 1s and 2s waits between them.
	if want := 93 * time.Second; strategy.Budget != want {
		t.Errorf("Budget = %v, want %v", strategy.Budget, want)
	}
}

func TestRemoteHint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.GenerationConfig.Temperature != hintTemperature {
			t.Errorf("temperature = %v, want %v", req.GenerationConfig.Temperature, hintTemperature)
		}
		fmt.Fprint(w, generateBody(`{"hint":"Try GROUP BY","level":2}`))
	}))
	defer srv.Close()

	ch := sqlChallenge()
	ch.Hints = []model.Hint{{Level: 2, Text: "seeded", Cost: 15}}
	h, err := newTestRemote(srv.URL).Hint(context.Background(), ch, "SELECT", 2)
	if err != nil {
		t.Fatalf("Hint: %v", err)
	}
	if h.Text != "Try GROUP BY" || h.Level != 2 || h.Cost != 15 {
		t.Errorf("hint = %+v", h)
	}
}

func TestTruncateOutput(t *testing.T) {
	if got := truncateOutput(nil); got != "{}" {
		t.Errorf("truncateOutput(nil) = %q", got)
	}
	if got := truncateOutput(json.RawMessage("[ 1, 2 ]")); got != "[1,2]" {
		t.Errorf("truncateOutput compacts JSON, got %q", got)
	}
	long := json.RawMessage(`"` + strings.Repeat("x", 2000) + `"`)
	got := truncateOutput(long)
	if !strings.HasPrefix(got, `"`+strings.Repeat("x", maxOutputChars-1)) || !strings.HasSuffix(got, "(truncated)") {
		t.Errorf("unexpected truncation: %d chars", len(got))
	}
}

func TestStripFences(t *testing.T) {
	tests := map[string]string{
		"```json\n{\"a\":1}\n```": `{"a":1}`,
		"{\"a\":1}":               `{"a":1}`,
		"```json{\"a\":1}```":     `{"a":1}`,
	}
	for in, want := range tests {
		if got := stripFences(in); got != want {
			t.Errorf("stripFences(%q) = %q, want %q", in, got, want)
		}
	}
}
