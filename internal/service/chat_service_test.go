package service

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/knowtix/billing-service/internal/domain"
	"github.com/knowtix/billing-service/internal/models"
	"github.com/knowtix/billing-service/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memMessages struct {
	saved []models.Message
	err   error
}

func (m *memMessages) SaveExchange(_ context.Context, prompt, reply *models.Message) error {
	if m.err != nil {
		return m.err
	}
	for _, msg := range []*models.Message{prompt, reply} {
		msg.ID = "msg-" + strconv.Itoa(len(m.saved)+1)
		m.saved = append(m.saved, *msg)
	}
	return nil
}

func TestChatSend(t *testing.T) {
	messages := &memMessages{}
	svc := NewChatService(messages, logger.NewNop())

	reply, err := svc.Send(context.Background(), domain.Identity{UserID: "u1"}, ChatRequest{Message: "hello", UserID: "u1"})
	require.NoError(t, err)

	assert.Equal(t, &ChatReply{Message: "Echo: hello", MessageID: "msg-1", ResponseID: "msg-2"}, reply)
	require.Len(t, messages.saved, 2)
	assert.Equal(t, models.RoleUser, messages.saved[0].Role)
	assert.Equal(t, models.RoleAssistant, messages.saved[1].Role)
}

func TestChatSendAsAnotherUser(t *testing.T) {
	messages := &memMessages{}
	svc := NewChatService(messages, logger.NewNop())

	_, err := svc.Send(context.Background(), domain.Identity{UserID: "u2"}, ChatRequest{Message: "hello", UserID: "u1"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Empty(t, messages.saved)
}

func TestChatSendStoreFailure(t *testing.T) {
	svc := NewChatService(&memMessages{err: errors.New("db down")}, logger.NewNop())

	_, err := svc.Send(context.Background(), domain.Identity{UserID: "u1"}, ChatRequest{Message: "hello", UserID: "u1"})
	assert.Error(t, err)
}
