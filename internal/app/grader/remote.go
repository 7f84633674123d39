package grader

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"data_quest/internal/domain/model"
)

const (
	gradingTemperature = 0.1
	hintTemperature    = 0.4
)

var fencePattern = regexp.MustCompile("```json\\n?|\\n?```")

type RemoteConfig struct {
	APIKey  string
	BaseURL string // e.g. https://generativelanguage.googleapis.com/v1beta
	Model   string
	Timeout time.Duration // per attempt
}

// Remote talks to a generateContent-style text generation API. Each call is
// a single attempt bounded by the configured timeout.
type Remote struct {
	cfg    RemoteConfig
	client *http.Client
}

func NewRemote(cfg RemoteConfig, client *http.Client) *Remote {
	if client == nil {
		client = &http.Client{}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Remote{cfg: cfg, client: client}
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature      float64 `json:"temperature"`
	ResponseMimeType string  `json:"responseMimeType"`
}

// remoteVerdict accepts fractional scores; they are rounded on conversion.
type remoteVerdict struct {
	Correct          bool           `json:"correct"`
	CorrectnessScore float64        `json:"correctnessScore"`
	QualityScore     float64        `json:"qualityScore"`
	PerformanceScore float64        `json:"performanceScore"`
	Feedback         model.Feedback `json:"feedback"`
	Hints            []string       `json:"hints"`
	Encouragement    string         `json:"encouragement"`
}

func (r remoteVerdict) toVerdict() model.Verdict {
	return model.Verdict{
		Correct:          r.Correct,
		CorrectnessScore: int(math.Round(r.CorrectnessScore)),
		QualityScore:     int(math.Round(r.QualityScore)),
		PerformanceScore: int(math.Round(r.PerformanceScore)),
		Feedback:         r.Feedback,
		Hints:            r.Hints,
		Encouragement:    r.Encouragement,
	}
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

func (r *Remote) Grade(ctx context.Context, sub Submission) (*model.Verdict, error) {
	prompt, err := renderVerdictPrompt(sub)
	if err != nil {
		return nil, err
	}
	text, err := r.generate(ctx, prompt, gradingTemperature)
	if err != nil {
		return nil, err
	}

	var raw remoteVerdict
	if err := json.Unmarshal([]byte(stripFences(text)), &raw); err != nil {
		return nil, fmt.Errorf("malformed verdict JSON: %w", err)
	}
	v := raw.toVerdict()
	if err := v.Validate(); err != nil {
		return nil, fmt.Errorf("malformed verdict: %w", err)
	}
	if v.Hints == nil {
		v.Hints = []string{}
	}
	return &v, nil
}

func (r *Remote) Hint(ctx context.Context, challenge *model.Challenge, code string, level int) (*model.Hint, error) {
	prompt, err := renderHintPrompt(challenge, code, level)
	if err != nil {
		return nil, err
	}
	text, err := r.generate(ctx, prompt, hintTemperature)
	if err != nil {
		return nil, err
	}
	var h model.Hint
	if err := json.Unmarshal([]byte(stripFences(text)), &h); err != nil {
		return nil, fmt.Errorf("malformed hint JSON: %w", err)
	}
	if strings.TrimSpace(h.Text) == "" {
		return nil, errors.New("empty hint")
	}
	h.Level = level
	if seeded, ok := challenge.HintForLevel(level); ok {
		h.Cost = seeded.Cost
	}
	return &h, nil
}

func (r *Remote) generate(ctx context.Context, prompt string, temperature float64) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			Temperature:      temperature,
			ResponseMimeType: "application/json",
		},
	})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint(), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call text generation service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("text generation service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("response has no candidates")
	}
	return out.Candidates[0].Content.Parts[0].Text, nil
}

func (r *Remote) endpoint() string {
	base := strings.TrimRight(r.cfg.BaseURL, "/")
	return fmt.Sprintf("%s/models/%s:generateContent?key=%s", base, url.PathEscape(r.cfg.Model), url.QueryEscape(r.cfg.APIKey))
}

func stripFences(text string) string {
	return strings.TrimSpace(fencePattern.ReplaceAllString(text, ""))
}
