package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"net/http"
	"strings"
	"sync"
	"time"

	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"replypilot/internal/logger"
	"replypilot/internal/model"
)

// Client talks to the Gmail API on behalf of one user. Gmail paginates with
// opaque tokens; the client memoizes the token for each page as pages are
// visited in order, which is how monotonic next/prev paging maps onto it.
type Client struct {
	client   *gmail.Service
	logger   *logger.Logger
	pageSize int64

	mu         sync.Mutex
	pageTokens map[int]string
}

func NewClient(accessToken string, pageSize int64, logger *logger.Logger) (*Client, error) {
	httpClient := &http.Client{
		Transport: &oauth2Transport{token: accessToken},
	}

	gmailService, err := gmail.NewService(context.Background(), option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	return &Client{
		client:     gmailService,
		logger:     logger,
		pageSize:   pageSize,
		pageTokens: map[int]string{1: ""},
	}, nil
}

type oauth2Transport struct {
	token string
}

func (t *oauth2Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("Authorization", "Bearer "+t.token)
	return http.DefaultTransport.RoundTrip(req)
}

const me = "me"

// ListMessages returns one page of inbox messages with headers and snippet
// only; bodies are fetched on demand by GetMessage.
func (g *Client) ListMessages(ctx context.Context, page int) ([]*model.Message, error) {
	token, known := g.tokenFor(page)
	if !known {
		// Paging is sequential, so an unknown page is past the end.
		return []*model.Message{}, nil
	}

	call := g.client.Users.Messages.List(me).MaxResults(g.pageSize).LabelIds("INBOX").Context(ctx)
	if token != "" {
		call = call.PageToken(token)
	}
	list, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	g.rememberToken(page+1, list.NextPageToken)

	var messages []*model.Message
	for _, m := range list.Messages {
		full, err := g.client.Users.Messages.Get(me, m.Id).
			Format("metadata").
			MetadataHeaders("Subject", "From", "To", "Date").
			Context(ctx).Do()
		if err != nil {
			g.logger.Error("Failed to get message:", m.Id, err)
			continue
		}
		messages = append(messages, g.toModel(full, false))
	}

	g.logger.Info("Fetched", len(messages), "messages for page", page)
	return messages, nil
}

// GetMessage fetches the full message including its body. For drafts the
// matching draft id is resolved so the caller can edit it in place.
func (g *Client) GetMessage(ctx context.Context, id string) (*model.Message, error) {
	full, err := g.client.Users.Messages.Get(me, id).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}

	msg := g.toModel(full, true)
	if msg.IsDraft {
		draftID, err := g.findDraftID(ctx, id)
		if err != nil {
			g.logger.Error("Failed to resolve draft id for message:", id, err)
		} else {
			msg.DraftID = draftID
		}
	}
	return msg, nil
}

func (g *Client) CreateDraft(ctx context.Context, threadID, body, to, subject string) (string, error) {
	draft := &gmail.Draft{
		Message: &gmail.Message{
			ThreadId: threadID,
			Raw:      encodeRawMessage(to, subject, body),
		},
	}
	created, err := g.client.Users.Drafts.Create(me, draft).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to create draft: %w", err)
	}

	g.logger.Info("Created draft:", created.Id)
	return created.Id, nil
}

func (g *Client) UpdateDraft(ctx context.Context, draftID, body, to, subject string) error {
	draft := &gmail.Draft{
		Message: &gmail.Message{
			Raw: encodeRawMessage(to, subject, body),
		},
	}
	if _, err := g.client.Users.Drafts.Update(me, draftID, draft).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to update draft: %w", err)
	}

	g.logger.Info("Updated draft:", draftID)
	return nil
}

func (g *Client) DeleteDraft(ctx context.Context, draftID string) error {
	if err := g.client.Users.Drafts.Delete(me, draftID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}

	g.logger.Info("Deleted draft:", draftID)
	return nil
}

// SendDraft sends an existing draft, updating its content first so the last
// edit wins. With an empty draftID the message is created and sent in one
// step.
func (g *Client) SendDraft(ctx context.Context, draftID, threadID, body, to, subject string) error {
	if draftID == "" {
		message := &gmail.Message{
			ThreadId: threadID,
			Raw:      encodeRawMessage(to, subject, body),
		}
		if _, err := g.client.Users.Messages.Send(me, message).Context(ctx).Do(); err != nil {
			return fmt.Errorf("failed to send message: %w", err)
		}
		g.logger.Info("Sent message on thread:", threadID)
		return nil
	}

	if err := g.UpdateDraft(ctx, draftID, body, to, subject); err != nil {
		return err
	}
	if _, err := g.client.Users.Drafts.Send(me, &gmail.Draft{Id: draftID}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to send draft: %w", err)
	}

	g.logger.Info("Sent draft:", draftID)
	return nil
}

func (g *Client) MarkAsRead(ctx context.Context, messageID string) error {
	modifyRequest := &gmail.ModifyMessageRequest{
		RemoveLabelIds: []string{"UNREAD"},
		AddLabelIds:    []string{},
	}

	if _, err := g.client.Users.Messages.Modify(me, messageID, modifyRequest).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to mark message as read: %w", err)
	}

	g.logger.Info("Marked message as read:", messageID)
	return nil
}

func (g *Client) tokenFor(page int) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	token, ok := g.pageTokens[page]
	return token, ok
}

func (g *Client) rememberToken(page int, token string) {
	if token == "" {
		return
	}
	g.mu.Lock()
	g.pageTokens[page] = token
	g.mu.Unlock()
}

func (g *Client) findDraftID(ctx context.Context, messageID string) (string, error) {
	list, err := g.client.Users.Drafts.List(me).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to list drafts: %w", err)
	}
	for _, d := range list.Drafts {
		if d.Message != nil && d.Message.Id == messageID {
			return d.Id, nil
		}
	}
	return "", fmt.Errorf("no draft found for message %s", messageID)
}

func (g *Client) toModel(m *gmail.Message, withBody bool) *model.Message {
	msg := &model.Message{
		ID:       m.Id,
		ThreadID: m.ThreadId,
		Snippet:  m.Snippet,
		Date:     time.Unix(m.InternalDate/1000, 0),
		IsRead:   true,
	}

	for _, label := range m.LabelIds {
		switch label {
		case "DRAFT":
			msg.IsDraft = true
		case "UNREAD":
			msg.IsRead = false
		}
	}

	if m.Payload != nil {
		for _, header := range m.Payload.Headers {
			switch header.Name {
			case "Subject":
				msg.Subject = header.Value
			case "From":
				msg.From = header.Value
			case "To":
				msg.To = header.Value
			}
		}
		if withBody {
			msg.Body = g.extractBody(m.Payload)
		}
	}

	msg.AISuggestionApplicable = !msg.IsDraft && msg.ThreadID != "" && msg.From != ""
	return msg
}

// extractBody pulls the displayable body out of a message payload,
// preferring HTML over plain text.
func (g *Client) extractBody(payload *gmail.MessagePart) string {
	if len(payload.Parts) > 0 {
		return g.extractMultipartBody(payload.Parts)
	}
	if payload.Body != nil && payload.Body.Data != "" {
		return g.decodePart(payload.Body.Data)
	}
	return ""
}

func (g *Client) extractMultipartBody(parts []*gmail.MessagePart) string {
	var htmlBody string
	var textBody string

	for _, part := range parts {
		mediaType := part.MimeType
		if t, _, err := mime.ParseMediaType(part.MimeType); err == nil {
			mediaType = t
		}
		switch {
		case mediaType == "text/html" && part.Body != nil && part.Body.Data != "":
			htmlBody = g.decodePart(part.Body.Data)
		case mediaType == "text/plain" && part.Body != nil && part.Body.Data != "":
			textBody = g.decodePart(part.Body.Data)
		case len(part.Parts) > 0:
			if nested := g.extractMultipartBody(part.Parts); nested != "" && htmlBody == "" {
				htmlBody = nested
			}
		}
	}

	if htmlBody != "" {
		return htmlBody
	}
	return textBody
}

func (g *Client) decodePart(data string) string {
	decoded, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		g.logger.Error("Failed to decode message body:", err)
		return ""
	}
	return string(decoded)
}

// encodeRawMessage builds the RFC 822 payload Gmail expects in Raw fields.
func encodeRawMessage(to, subject, body string) string {
	var b strings.Builder
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString(`Content-Type: text/plain; charset="UTF-8"` + "\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return base64.URLEncoding.EncodeToString([]byte(b.String()))
}
