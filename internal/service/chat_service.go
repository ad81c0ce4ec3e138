package service

import (
	"context"
	"fmt"

	"github.com/knowtix/billing-service/internal/domain"
	"github.com/knowtix/billing-service/internal/models"
	"github.com/knowtix/billing-service/internal/repository"
	"github.com/knowtix/billing-service/pkg/logger"
)

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Message string `json:"message" validate:"required"`
	UserID  string `json:"userId" validate:"required"`
}

// ChatReply is returned for every stored exchange.
type ChatReply struct {
	Message    string `json:"message"`
	MessageID  string `json:"messageId"`
	ResponseID string `json:"responseId"`
}

// ChatService stores a user message and the assistant reply.
type ChatService interface {
	Send(ctx context.Context, id domain.Identity, req ChatRequest) (*ChatReply, error)
}

type chatService struct {
	messages repository.MessageRepository
	log      *logger.Logger
}

func NewChatService(messages repository.MessageRepository, log *logger.Logger) ChatService {
	return &chatService{messages: messages, log: log}
}

func (s *chatService) Send(ctx context.Context, id domain.Identity, req ChatRequest) (*ChatReply, error) {
	if !id.Owns(req.UserID) {
		return nil, fmt.Errorf("%w: chat as another user", domain.ErrUnauthorized)
	}

	// Replies echo the prompt until a model backend is connected.
	reply := "Echo: " + req.Message

	prompt := &models.Message{UserID: req.UserID, Role: models.RoleUser, Content: req.Message}
	answer := &models.Message{UserID: req.UserID, Role: models.RoleAssistant, Content: reply}
	if err := s.messages.SaveExchange(ctx, prompt, answer); err != nil {
		return nil, err
	}

	return &ChatReply{Message: reply, MessageID: prompt.ID, ResponseID: answer.ID}, nil
}
