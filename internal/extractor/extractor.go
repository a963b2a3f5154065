// Package extractor turns raw posting content into structured skill data via
// the Gemini generative-language REST API.
package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"job-skill-pipeline/internal/models"
)

// ErrEmptyResponse is returned when the service answers without any content.
var ErrEmptyResponse = errors.New("extraction service returned no candidates")

// maxContentChars truncates very long descriptions to stay inside the
// model's token limits.
const maxContentChars = 8000

const prompt = `You are an expert tech recruiter extracting specific technical skills from a job posting.

Only extract concrete, specific skills. Split combined skills ("C/C++" becomes ["C", "C++"]). Use standard names ("Python", "AWS"). Do not include vague terms like "problem solving" or "teamwork". Limit concepts to the 5 most important methodologies.

Return ONLY a JSON object with this exact schema:
{
  "job_title": "the likely job title",
  "company": "the company name if present, else null",
  "skills": {
    "languages": [],
    "frameworks": [],
    "databases": [],
    "tools": [],
    "concepts": []
  }
}

JOB DESCRIPTION:
`

// Client calls the Gemini generateContent endpoint. Calls are paced by a
// shared rate limiter because the service is quota-limited.
type Client struct {
	baseURL    string
	model      string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *zap.Logger
}

// Options configures a Client.
type Options struct {
	BaseURL   string
	Model     string
	APIKey    string
	PerSecond float64
	Burst     int
	Timeout   time.Duration
}

// New constructs a Client.
func New(opts Options, log *zap.Logger) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.PerSecond == 0 {
		opts.PerSecond = 1
	}
	if opts.Burst == 0 {
		opts.Burst = 1
	}
	return &Client{
		baseURL:    strings.TrimSuffix(opts.BaseURL, "/"),
		model:      opts.Model,
		apiKey:     opts.APIKey,
		httpClient: &http.Client{Timeout: opts.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(opts.PerSecond), opts.Burst),
		log:        log,
	}
}

// generateRequest mirrors the generateContent request body.
type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

// generateResponse mirrors the fields of the response we consume.
type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Extract sends the posting content to the model and decodes the structured
// skill data from its reply.
func (c *Client) Extract(ctx context.Context, pageContent string) (*models.ExtractionResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("wait for extraction slot: %w", err)
	}

	pageContent = truncateContent(pageContent, maxContentChars)

	reqBody, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt + pageContent}}}},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal extraction request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("build extraction request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call extraction service: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read extraction response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("extraction service returned %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var gen generateResponse
	if err := json.Unmarshal(body, &gen); err != nil {
		return nil, fmt.Errorf("decode extraction envelope: %w", err)
	}
	if len(gen.Candidates) == 0 || len(gen.Candidates[0].Content.Parts) == 0 {
		return nil, ErrEmptyResponse
	}

	text := stripFences(gen.Candidates[0].Content.Parts[0].Text)

	var result models.ExtractionResult
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return nil, fmt.Errorf("decode extraction payload: %w", err)
	}
	return &result, nil
}

// stripFences removes the markdown code fences the model sometimes wraps
// around its JSON reply.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// truncateContent clips s to at most n bytes, backing off to the previous
// rune boundary so a multi-byte UTF-8 sequence is never split.
func truncateContent(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
