// Package ai generates cover letters through a configurable LLM provider:
// hosted APIs (anthropic, openai) or local inference servers (ollama,
// lmstudio).
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/applypilot/applypilot/internal/config"
	"github.com/applypilot/applypilot/pkg/models"
)

// HTTPClient lets tests substitute the transport.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to whichever provider the config selects.
type Client struct {
	cfg  *config.Config
	http HTTPClient
}

func NewClient(cfg *config.Config, httpClient HTTPClient) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{cfg: cfg, http: httpClient}
}

// GenerateCoverLetter writes a cover letter for one listing from the
// candidate's profile. Failures here never block an application; the caller
// applies without a letter.
func (c *Client) GenerateCoverLetter(ctx context.Context, profile *models.CandidateProfile, job models.NormalizedJob) (string, error) {
	prompt := buildPrompt(profile, job)

	switch c.cfg.AIProvider {
	case "openai":
		return c.generateWithOpenAI(ctx, prompt)
	case "anthropic":
		return c.generateWithAnthropic(ctx, prompt)
	case "ollama":
		return c.generateWithOllama(ctx, prompt)
	case "lmstudio":
		return c.generateWithLMStudio(ctx, prompt)
	default:
		return "", errors.Errorf("unsupported AI provider: %s", c.cfg.AIProvider)
	}
}

func buildPrompt(profile *models.CandidateProfile, job models.NormalizedJob) string {
	var expList []string
	for _, exp := range profile.Experiences {
		expList = append(expList, fmt.Sprintf("%s at %s", exp.Title, exp.Company))
	}

	return fmt.Sprintf(`Generate a professional cover letter for the following job application.

Job Details:
- Title: %s
- Company: %s
- Location: %s
- Description: %s

Applicant Details:
- Name: %s
- Email: %s
- Location: %s
- Skills: %s
- Experience: %s

Write a compelling, personalized cover letter that:
1. Demonstrates enthusiasm for the role and company
2. Highlights relevant skills and experience from the applicant's background
3. Shows understanding of the job requirements
4. Is professional yet engaging
5. Is 3-4 paragraphs long
6. Does not include placeholders like [Your Name] or [Date]

Return only the cover letter text, no additional commentary.`,
		job.Title,
		job.Company,
		job.Location,
		job.Description,
		profile.User.Name,
		profile.User.Email,
		profile.User.Location,
		strings.Join(profile.SkillNames(), ", "),
		strings.Join(expList, "; "),
	)
}

func (c *Client) post(ctx context.Context, url string, headers map[string]string, reqBody interface{}) ([]byte, error) {
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("provider returned %d: %s", resp.StatusCode, body)
	}
	return body, nil
}

// chatCompletion covers the OpenAI-compatible response shape that openai,
// ollama, and lmstudio all speak.
type chatCompletion struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *Client) openAICompatible(ctx context.Context, url, model string, headers map[string]string, prompt string) (string, error) {
	body, err := c.post(ctx, url, headers, map[string]interface{}{
		"model": model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"temperature": 0.7,
		"max_tokens":  1000,
	})
	if err != nil {
		return "", err
	}

	var result chatCompletion
	if err := json.Unmarshal(body, &result); err != nil {
		return "", err
	}
	if len(result.Choices) == 0 {
		return "", errors.New("empty completion response")
	}
	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}

func (c *Client) generateWithOpenAI(ctx context.Context, prompt string) (string, error) {
	if c.cfg.OpenAIKey == "" {
		return "", errors.New("OpenAI API key not configured. Run: applypilot config set --key openai_key --value YOUR_KEY")
	}
	model := c.cfg.DefaultModel
	if model == "" {
		model = "gpt-4"
	}
	return c.openAICompatible(ctx, "https://api.openai.com/v1/chat/completions", model,
		map[string]string{"Authorization": "Bearer " + c.cfg.OpenAIKey}, prompt)
}

func (c *Client) generateWithAnthropic(ctx context.Context, prompt string) (string, error) {
	if c.cfg.AnthropicKey == "" {
		return "", errors.New("Anthropic API key not configured. Run: applypilot config set --key anthropic_key --value YOUR_KEY")
	}
	model := c.cfg.DefaultModel
	if model == "" {
		model = "claude-3-5-sonnet-20241022"
	}

	body, err := c.post(ctx, "https://api.anthropic.com/v1/messages", map[string]string{
		"x-api-key":         c.cfg.AnthropicKey,
		"anthropic-version": "2023-06-01",
	}, map[string]interface{}{
		"model":      model,
		"max_tokens": 1024,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	})
	if err != nil {
		return "", err
	}

	var result struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", err
	}
	if len(result.Content) == 0 {
		return "", errors.New("empty completion response")
	}
	return strings.TrimSpace(result.Content[0].Text), nil
}

func (c *Client) generateWithOllama(ctx context.Context, prompt string) (string, error) {
	base := c.cfg.OllamaURL
	if base == "" {
		base = "http://localhost:11434"
	}
	model := c.cfg.DefaultModel
	if model == "" {
		model = "llama3"
	}
	return c.openAICompatible(ctx, strings.TrimRight(base, "/")+"/v1/chat/completions", model, nil, prompt)
}

func (c *Client) generateWithLMStudio(ctx context.Context, prompt string) (string, error) {
	base := c.cfg.LMStudioURL
	if base == "" {
		base = "http://localhost:1234"
	}
	model := c.cfg.DefaultModel
	if model == "" {
		model = "local-model"
	}
	return c.openAICompatible(ctx, strings.TrimRight(base, "/")+"/v1/chat/completions", model, nil, prompt)
}
