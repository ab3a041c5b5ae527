package services

import (
	"context"
	"fmt"
	"time"

	"moonchat/contract"
	"moonchat/domain/chat"
	"moonchat/domain/event"
	apperrors "moonchat/errors"
	"moonchat/observability"
	"moonchat/repositories"
	"moonchat/runtime"
)

type IChatService interface {
	Append(ctx context.Context, authorID, body string) (chat.Message, error)
	Recent(limit int) ([]chat.Message, error)
	JoinRoom(userID string, sink contract.EventSink)
	LeaveRoom(userID string, sink contract.EventSink)
	EnsureProfile(profile chat.Profile) error
}

// ChatService owns the append-then-publish sequence: a message becomes
// canonical the moment the store accepts it, and only then is it fanned
// out. It implements the send gate's MessageAppender, so by the time
// Append runs the body has already passed moderation.
type ChatService struct {
	messages     repositories.IMessageRepository
	profileStore repositories.IProfileRepository
	orchestrator *runtime.Orchestrator
	stats        *observability.PipelineStats
	maxBodyChars int
}

func NewChatService(messages repositories.IMessageRepository,
	profileStore repositories.IProfileRepository,
	orchestrator *runtime.Orchestrator,
	stats *observability.PipelineStats, maxBodyChars int) *ChatService {
	return &ChatService{
		messages:     messages,
		profileStore: profileStore,
		orchestrator: orchestrator,
		stats:        stats,
		maxBodyChars: maxBodyChars,
	}
}

func (s *ChatService) Append(ctx context.Context, authorID, body string) (chat.Message, error) {
	if s.maxBodyChars > 0 && len([]rune(body)) > s.maxBodyChars {
		return chat.Message{}, fmt.Errorf("%w: %d chars", apperrors.ErrContentTooLong, len([]rune(body)))
	}

	message, err := s.messages.Append(ctx, authorID, body)
	if err != nil {
		return chat.Message{}, err
	}

	s.stats.IncrStored()
	s.orchestrator.Publish(event.MessageStored{Message: message, At: time.Now().UTC()})
	return message, nil
}

func (s *ChatService) Recent(limit int) ([]chat.Message, error) {
	return s.messages.LoadRecent(chat.DefaultRoom, limit)
}

func (s *ChatService) JoinRoom(userID string, sink contract.EventSink) {
	s.orchestrator.JoinRoom(userID, chat.DefaultRoom, sink)
}

func (s *ChatService) LeaveRoom(userID string, sink contract.EventSink) {
	s.orchestrator.LeaveRoom(userID, chat.DefaultRoom, sink)
}

// EnsureProfile mirrors the token claims into the profile store so the
// cache can resolve this author for other viewers.
func (s *ChatService) EnsureProfile(profile chat.Profile) error {
	return s.profileStore.UpsertProfile(profile.WithDefaults())
}
