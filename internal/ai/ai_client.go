package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"replypilot/internal/logger"
	"replypilot/internal/model"
)

// Client calls a chat-completion style LLM API to draft reply suggestions
// and to extract meeting proposals from message content.
type Client struct {
	provider   string
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *logger.Logger
}

const (
	ProviderOpenAI   = "openai"
	ProviderDeepSeek = "deepseek"
	ProviderGemini   = "gemini"
)

func NewClient(provider, apiKey string, logger *logger.Logger) *Client {
	return &Client{
		provider:   provider,
		apiKey:     apiKey,
		baseURL:    getBaseURL(provider),
		httpClient: &http.Client{},
		logger:     logger,
	}
}

// getBaseURL returns the appropriate API base URL based on the provider
func getBaseURL(provider string) string {
	switch provider {
	case ProviderDeepSeek:
		return "https://api.deepseek.com"
	case ProviderGemini:
		return "https://generativelanguage.googleapis.com/v1beta"
	default:
		return "https://api.openai.com/v1"
	}
}

// getModel returns the appropriate model based on the provider
func getModel(provider string) string {
	switch provider {
	case ProviderDeepSeek:
		return "deepseek-chat"
	case ProviderGemini:
		return "gemini-2.0-flash-lite"
	default:
		return "gpt-4o"
	}
}

// OpenAI/DeepSeek API request/response structures
type chatCompletionRequest struct {
	Model     string    `json:"model"`
	Messages  []message `json:"messages"`
	MaxTokens int       `json:"max_tokens,omitempty"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []choice `json:"choices"`
}

type choice struct {
	Index        int     `json:"index"`
	Message      message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// Gemini API request/response structures
type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
}

type geminiCandidate struct {
	Content      geminiResponseContent `json:"content"`
	FinishReason string                `json:"finishReason"`
}

type geminiResponseContent struct {
	Parts []geminiPart `json:"parts"`
}

// SuggestReply drafts a reply to the given message body. When a meeting
// decision is known it is folded into the prompt so the reply confirms or
// proposes an alternative slot.
func (a *Client) SuggestReply(ctx context.Context, emailBody, threadID string, status model.MeetingStatus, meeting *model.Meeting) (string, error) {
	prompt := buildReplyPrompt(emailBody, status, meeting)

	suggestion, err := a.complete(ctx, prompt, 400)
	if err != nil {
		return "", fmt.Errorf("failed to generate reply suggestion: %w", err)
	}

	a.logger.Info("Generated reply suggestion for thread:", threadID)
	return strings.TrimSpace(suggestion), nil
}

// ExtractMeeting asks the model whether the message proposes a meeting.
// It returns nil when no meeting is detected.
func (a *Client) ExtractMeeting(ctx context.Context, subject, emailBody string) (*model.Meeting, error) {
	prompt := fmt.Sprintf(`Decide whether the following email proposes a meeting.

Subject: %s

Email content:
%s

If it does, respond with only a JSON object of the form
{"title": string, "startTime": RFC3339 string, "endTime": RFC3339 string, "location": string, "attendees": [string]}.
If it does not propose a meeting, respond with only the word null.`, subject, emailBody)

	raw, err := a.complete(ctx, prompt, 300)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze meeting: %w", err)
	}

	return parseMeeting(raw)
}

func buildReplyPrompt(emailBody string, status model.MeetingStatus, meeting *model.Meeting) string {
	var b strings.Builder
	b.WriteString("Write a short, polite reply to the following email. Respond with only the reply body.\n")

	if meeting != nil {
		switch status {
		case model.MeetingStatusAvailable:
			fmt.Fprintf(&b, "The proposed meeting %q at %s fits the recipient's calendar; the reply should accept it.\n", meeting.Title, meeting.StartTime)
		case model.MeetingStatusConflict:
			fmt.Fprintf(&b, "The proposed meeting %q at %s conflicts with an existing event; the reply should ask to reschedule.\n", meeting.Title, meeting.StartTime)
		}
	}

	b.WriteString("\nEmail content:\n")
	b.WriteString(emailBody)
	return b.String()
}

func parseMeeting(raw string) (*model.Meeting, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	if cleaned == "" || strings.EqualFold(cleaned, "null") {
		return nil, nil
	}

	var meeting model.Meeting
	if err := json.Unmarshal([]byte(cleaned), &meeting); err != nil {
		return nil, fmt.Errorf("failed to parse meeting response: %w", err)
	}
	if meeting.StartTime == "" {
		return nil, nil
	}
	return &meeting, nil
}

func (a *Client) complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if a.provider == ProviderGemini {
		return a.completeWithGemini(ctx, prompt)
	}
	return a.completeWithOpenAIStyle(ctx, prompt, maxTokens)
}

// completeWithOpenAIStyle runs one prompt through an OpenAI/DeepSeek style API
func (a *Client) completeWithOpenAIStyle(ctx context.Context, prompt string, maxTokens int) (string, error) {
	request := chatCompletionRequest{
		Model: getModel(a.provider),
		Messages: []message{
			{
				Role:    "user",
				Content: prompt,
			},
		},
		MaxTokens: maxTokens,
	}

	jsonData, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := a.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var chatResp chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned from AI")
	}
	return chatResp.Choices[0].Message.Content, nil
}

// completeWithGemini runs one prompt through the Google Gemini API
func (a *Client) completeWithGemini(ctx context.Context, prompt string) (string, error) {
	request := geminiRequest{
		Contents: []geminiContent{
			{
				Role: "user",
				Parts: []geminiPart{
					{
						Text: prompt,
					},
				},
			},
		},
	}

	jsonData, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", a.baseURL, getModel(a.provider), a.apiKey)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("Gemini API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var geminiResp geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&geminiResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if len(geminiResp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates returned from Gemini")
	}
	if len(geminiResp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no content parts in Gemini response")
	}
	return geminiResp.Candidates[0].Content.Parts[0].Text, nil
}
