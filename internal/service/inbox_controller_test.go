package service

import (
	"context"
	"sync"
	"testing"

	"replypilot/internal/ai"
	"replypilot/internal/calendar"
	"replypilot/internal/gmail"
	"replypilot/internal/logger"
	"replypilot/internal/model"

	"github.com/stretchr/testify/assert"
)

// recordingNotifier captures published events per user.
type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) Publish(userID, event string, data interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) recorded() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.events...)
}

func newTestShell(mail *gmail.MockClient) (*InboxShell, *recordingNotifier) {
	notifier := &recordingNotifier{}
	shell := NewInboxShell("user-1", mail, ai.NewMockClient(), calendar.NewMockClient(), logger.New(), notifier)
	return shell, notifier
}

func TestPagingFloorsAtPageOne(t *testing.T) {
	var pages []int
	mailClient := gmail.NewMockClient()
	mailClient.ListMessagesFunc = func(ctx context.Context, page int) ([]*model.Message, error) {
		pages = append(pages, page)
		return []*model.Message{}, nil
	}

	shell, _ := newTestShell(mailClient)

	// Going back from the first page stays on the first page
	assert.NoError(t, shell.PrevPage(context.Background()))
	assert.Equal(t, 1, shell.View().Page)

	assert.NoError(t, shell.NextPage(context.Background()))
	assert.Equal(t, 2, shell.View().Page)

	assert.NoError(t, shell.PrevPage(context.Background()))
	assert.Equal(t, 1, shell.View().Page)

	assert.Equal(t, []int{1, 2, 1}, pages)
}

func TestRefreshReplacesList(t *testing.T) {
	mailClient := gmail.NewMockClient()
	mailClient.ListMessagesFunc = func(ctx context.Context, page int) ([]*model.Message, error) {
		return []*model.Message{{ID: "msg-1", Subject: "Hello"}}, nil
	}

	shell, _ := newTestShell(mailClient)
	assert.NoError(t, shell.Refresh(context.Background()))

	view := shell.View()
	assert.Len(t, view.Emails, 1)
	assert.Equal(t, "msg-1", view.Emails[0].ID)
	assert.False(t, view.Loading)
}

func TestClosingDetailRefetchesList(t *testing.T) {
	var lists int
	mailClient := gmail.NewMockClient()
	mailClient.ListMessagesFunc = func(ctx context.Context, page int) ([]*model.Message, error) {
		lists++
		return []*model.Message{}, nil
	}
	mailClient.GetMessageFunc = func(ctx context.Context, id string) (*model.Message, error) {
		return &model.Message{ID: id, Subject: "Hello", Body: "body", To: "bob@example.com", IsRead: true}, nil
	}

	shell, notifier := newTestShell(mailClient)
	assert.NoError(t, shell.Refresh(context.Background()))
	assert.Equal(t, 1, lists)

	detail, err := shell.Open(context.Background(), "msg-1")
	assert.NoError(t, err)
	assert.Same(t, detail, shell.Detail())
	detail.waitPending()

	// Closing the view clears it and refetches the list
	assert.NoError(t, detail.Back(context.Background()))
	assert.Nil(t, shell.Detail())
	assert.Equal(t, 2, lists)
	assert.Contains(t, notifier.recorded(), "list_changed")
}

func TestOpeningSupersedesPreviousDetail(t *testing.T) {
	mailClient := gmail.NewMockClient()
	mailClient.GetMessageFunc = func(ctx context.Context, id string) (*model.Message, error) {
		return &model.Message{ID: id, Subject: "Hello", Body: "body", To: "bob@example.com", IsRead: true}, nil
	}

	shell, _ := newTestShell(mailClient)

	first, err := shell.Open(context.Background(), "msg-1")
	assert.NoError(t, err)
	second, err := shell.Open(context.Background(), "msg-2")
	assert.NoError(t, err)

	assert.NotSame(t, first, second)
	assert.Same(t, second, shell.Detail())
	first.waitPending()
	second.waitPending()

	// The superseded view is dead: closing it must not clear the live one
	assert.NoError(t, first.Back(context.Background()))
	assert.Same(t, second, shell.Detail())
}
