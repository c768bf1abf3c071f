// Package chat orchestrates conversations and their single message thread.
package chat

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"uconnect/api/internal/apperr"
	"uconnect/api/internal/metrics"
	"uconnect/api/internal/model"
)

const (
	defaultTitle  = "Chat"
	untitledLabel = "Sem título"
)

type Store interface {
	GetUsersByIDs(ctx context.Context, ids []string) ([]model.User, error)
	CreateConversation(ctx context.Context, conversation model.Conversation, participantIDs []string) (model.Thread, error)
	GetConversation(ctx context.Context, id string) (model.Conversation, error)
	IsParticipant(ctx context.Context, conversationID, userID string) (bool, error)
	ListParticipants(ctx context.Context, conversationID string) ([]model.Participant, error)
	ListConversations(ctx context.Context, userID string) ([]model.ConversationSummary, error)
	ListMessages(ctx context.Context, conversationID string) ([]model.Message, error)
	MarkRead(ctx context.Context, conversationID, readerID string) (int64, error)
	AppendMessage(ctx context.Context, conversationID string, msg model.Message) (model.Message, error)
	DeleteConversation(ctx context.Context, id string) error
}

//go:generate mockgen -destination=mocks/mock_notifier.go -package=mocks uconnect/api/internal/chat Notifier

// Notifier receives new-message events after they are committed. It must not block.
type Notifier interface {
	NotifyNewMessage(ctx context.Context, event model.MessageEvent)
}

type Service struct {
	store    Store
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(store Store, notifier Notifier, logger *slog.Logger) *Service {
	return &Service{store: store, notifier: notifier, logger: logger, now: time.Now}
}

// DisplayTitle is what clients show for a conversation.
func DisplayTitle(conversation model.Conversation) string {
	if conversation.Title == nil || *conversation.Title == "" {
		return untitledLabel
	}
	return *conversation.Title
}

func (s *Service) CreateConversation(ctx context.Context, participantIDs []string, requester model.User, title *string) (model.ConversationSummary, error) {
	ids := dedupe(participantIDs)
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			return model.ConversationSummary{}, apperr.NotFound("participants_not_found", "one or more participants do not exist")
		}
	}
	found, err := s.store.GetUsersByIDs(ctx, ids)
	if err != nil {
		return model.ConversationSummary{}, apperr.Internal(err)
	}
	if len(found) != len(ids) {
		return model.ConversationSummary{}, apperr.NotFound("participants_not_found", "one or more participants do not exist")
	}

	byID := make(map[string]model.User, len(found)+1)
	for _, user := range found {
		byID[user.ID] = user
	}
	if _, ok := byID[requester.ID]; !ok {
		ids = append(ids, requester.ID)
		byID[requester.ID] = requester
	}

	participants := make([]model.Participant, 0, len(ids))
	var others []string
	for _, id := range ids {
		participants = append(participants, model.Participant{ID: id, Name: byID[id].Name})
		if id != requester.ID {
			others = append(others, byID[id].Name)
		}
	}

	convType := model.ConversationGroup
	if len(ids) == 2 {
		convType = model.ConversationDirect
	}
	resolved := defaultTitle
	if len(others) > 0 {
		resolved = "Chat com " + strings.Join(others, ", ")
	}
	if title != nil && strings.TrimSpace(*title) != "" {
		resolved = strings.TrimSpace(*title)
	}

	now := s.now().UTC()
	conversation := model.Conversation{
		ID:        uuid.NewString(),
		Title:     &resolved,
		Type:      convType,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.store.CreateConversation(ctx, conversation, ids); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.ConversationSummary{}, apperr.NotFound("participants_not_found", "one or more participants do not exist")
		}
		return model.ConversationSummary{}, apperr.Internal(err)
	}
	s.logger.InfoContext(ctx, "conversation created", "conversation_id", conversation.ID, "type", convType, "participants", len(ids))
	return model.ConversationSummary{Conversation: conversation, Participants: participants}, nil
}

func (s *Service) ListByParticipant(ctx context.Context, userID string) ([]model.ConversationSummary, error) {
	list, err := s.store.ListConversations(ctx, userID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return list, nil
}

// authorize resolves the conversation and checks that requester takes part in it.
func (s *Service) authorize(ctx context.Context, conversationID string, requester model.User) (model.Conversation, error) {
	conversation, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.Conversation{}, apperr.NotFound("conversation_not_found", "conversation not found")
		}
		return model.Conversation{}, apperr.Internal(err)
	}
	ok, err := s.store.IsParticipant(ctx, conversationID, requester.ID)
	if err != nil {
		return model.Conversation{}, apperr.Internal(err)
	}
	if !ok {
		return model.Conversation{}, apperr.Forbidden("not_participant", "you are not a participant of this conversation")
	}
	return conversation, nil
}

// GetMessages returns the thread oldest first, then marks what the requester did not write as read.
func (s *Service) GetMessages(ctx context.Context, conversationID string, requester model.User) ([]model.Message, error) {
	if _, err := s.authorize(ctx, conversationID, requester); err != nil {
		return nil, err
	}
	messages, err := s.store.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if _, err := s.store.MarkRead(ctx, conversationID, requester.ID); err != nil {
		return nil, apperr.Internal(err)
	}
	return messages, nil
}

func (s *Service) SendMessage(ctx context.Context, conversationID, content string, requester model.User) (model.Message, error) {
	if strings.TrimSpace(content) == "" {
		return model.Message{}, apperr.BadRequest("empty_message", "message content is required")
	}
	if _, err := s.authorize(ctx, conversationID, requester); err != nil {
		return model.Message{}, err
	}

	authorID := requester.ID
	msg, err := s.store.AppendMessage(ctx, conversationID, model.Message{
		ID:        uuid.NewString(),
		Content:   content,
		AuthorID:  &authorID,
		Timestamp: s.now().UTC(),
		IsRead:    false,
	})
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.Message{}, apperr.NotFound("conversation_not_found", "conversation not found")
		}
		return model.Message{}, apperr.Internal(err)
	}
	authorName := requester.Name
	msg.AuthorName = &authorName
	metrics.MessagesSent.Inc()

	s.notify(ctx, conversationID, msg, requester)
	return msg, nil
}

func (s *Service) notify(ctx context.Context, conversationID string, msg model.Message, sender model.User) {
	if s.notifier == nil {
		return
	}
	participants, err := s.store.ListParticipants(ctx, conversationID)
	if err != nil {
		s.logger.WarnContext(ctx, "notification skipped", "conversation_id", conversationID, "err", err)
		return
	}
	var recipients []string
	for _, p := range participants {
		if p.ID != sender.ID {
			recipients = append(recipients, p.ID)
		}
	}
	if len(recipients) == 0 {
		return
	}
	s.notifier.NotifyNewMessage(ctx, model.MessageEvent{
		ConversationID: conversationID,
		MessageID:      msg.ID,
		SenderID:       sender.ID,
		SenderName:     sender.Name,
		Content:        msg.Content,
		Timestamp:      msg.Timestamp,
		Recipients:     recipients,
	})
}

func (s *Service) MarkRead(ctx context.Context, conversationID string, requester model.User) error {
	if _, err := s.authorize(ctx, conversationID, requester); err != nil {
		return err
	}
	if _, err := s.store.MarkRead(ctx, conversationID, requester.ID); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

func (s *Service) DeleteConversation(ctx context.Context, conversationID string, requester model.User) error {
	if _, err := s.authorize(ctx, conversationID, requester); err != nil {
		return err
	}
	if err := s.store.DeleteConversation(ctx, conversationID); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return apperr.NotFound("conversation_not_found", "conversation not found")
		}
		return apperr.Internal(err)
	}
	s.logger.InfoContext(ctx, "conversation deleted", "conversation_id", conversationID, "by", requester.ID)
	return nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
