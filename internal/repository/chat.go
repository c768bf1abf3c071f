package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"uconnect/api/internal/model"
)

const defaultSubchannelName = "Geral"

func channelName(conversationID string) string {
	return "Channel-" + conversationID
}

// CreateConversation stores the conversation, its participants and its thread in one transaction.
func (s *Store) CreateConversation(ctx context.Context, conversation model.Conversation, participantIDs []string) (model.Thread, error) {
	var thread model.Thread
	err := s.WithTx(ctx, func(tx *Store) error {
		if _, err := tx.q.Exec(ctx, `
			INSERT INTO conversations (id, title, type, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5)
		`, conversation.ID, conversation.Title, conversation.Type, conversation.CreatedAt, conversation.UpdatedAt); err != nil {
			return translate(err, "create conversation")
		}
		for _, userID := range participantIDs {
			if _, err := tx.q.Exec(ctx, `
				INSERT INTO conversation_participants (conversation_id, user_id, joined_at)
				VALUES ($1, $2, $3)
				ON CONFLICT DO NOTHING
			`, conversation.ID, userID, conversation.CreatedAt); err != nil {
				return translate(err, "add participant")
			}
		}
		var err error
		thread, err = tx.ensureThread(ctx, conversation.ID)
		return err
	})
	return thread, err
}

// ensureThread returns the conversation's channel and default subchannel, creating whichever is missing.
func (s *Store) ensureThread(ctx context.Context, conversationID string) (model.Thread, error) {
	thread := model.Thread{ConversationID: conversationID}
	if _, err := s.q.Exec(ctx, `
		INSERT INTO channels (id, name, conversation_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (conversation_id) DO NOTHING
	`, uuid.NewString(), channelName(conversationID), conversationID); err != nil {
		return thread, translate(err, "ensure channel")
	}
	if err := s.q.QueryRow(ctx, `SELECT id FROM channels WHERE conversation_id = $1`, conversationID).Scan(&thread.ChannelID); err != nil {
		return thread, translate(err, "load channel")
	}
	if _, err := s.q.Exec(ctx, `
		INSERT INTO subchannels (id, name, channel_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (channel_id, name) DO NOTHING
	`, uuid.NewString(), defaultSubchannelName, thread.ChannelID); err != nil {
		return thread, translate(err, "ensure subchannel")
	}
	if err := s.q.QueryRow(ctx, `
		SELECT id FROM subchannels WHERE channel_id = $1 AND name = $2
	`, thread.ChannelID, defaultSubchannelName).Scan(&thread.SubchannelID); err != nil {
		return thread, translate(err, "load subchannel")
	}
	return thread, nil
}

// GetThread is not part of any service port; tests use it to inspect thread provisioning.
func (s *Store) GetThread(ctx context.Context, conversationID string) (model.Thread, error) {
	thread := model.Thread{ConversationID: conversationID}
	err := s.q.QueryRow(ctx, `
		SELECT ch.id, sc.id
		FROM channels ch
		JOIN subchannels sc ON sc.channel_id = ch.id AND sc.name = $2
		WHERE ch.conversation_id = $1
	`, conversationID, defaultSubchannelName).Scan(&thread.ChannelID, &thread.SubchannelID)
	return thread, translate(err, "get thread")
}

func (s *Store) GetConversation(ctx context.Context, id string) (model.Conversation, error) {
	var conversation model.Conversation
	err := s.q.QueryRow(ctx, `
		SELECT id, title, type, created_at, updated_at
		FROM conversations
		WHERE id = $1
	`, id).Scan(&conversation.ID, &conversation.Title, &conversation.Type, &conversation.CreatedAt, &conversation.UpdatedAt)
	return conversation, translate(err, "get conversation")
}

func (s *Store) IsParticipant(ctx context.Context, conversationID, userID string) (bool, error) {
	var ok bool
	err := s.q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM conversation_participants WHERE conversation_id = $1 AND user_id = $2
		)
	`, conversationID, userID).Scan(&ok)
	return ok, translate(err, "check participant")
}

func (s *Store) ListParticipants(ctx context.Context, conversationID string) ([]model.Participant, error) {
	byConversation, err := s.participantsFor(ctx, []string{conversationID})
	if err != nil {
		return nil, err
	}
	return byConversation[conversationID], nil
}

func (s *Store) participantsFor(ctx context.Context, conversationIDs []string) (map[string][]model.Participant, error) {
	out := make(map[string][]model.Participant, len(conversationIDs))
	if len(conversationIDs) == 0 {
		return out, nil
	}
	rows, err := s.q.Query(ctx, `
		SELECT cp.conversation_id, u.id, u.name
		FROM conversation_participants cp
		JOIN users u ON u.id = cp.user_id
		WHERE cp.conversation_id = ANY($1::uuid[])
		ORDER BY cp.joined_at, u.name
	`, conversationIDs)
	if err != nil {
		return nil, translate(err, "list participants")
	}
	defer rows.Close()
	for rows.Next() {
		var conversationID string
		var participant model.Participant
		if err := rows.Scan(&conversationID, &participant.ID, &participant.Name); err != nil {
			return nil, translate(err, "list participants")
		}
		out[conversationID] = append(out[conversationID], participant)
	}
	return out, translate(rows.Err(), "list participants")
}

// ListConversations returns the user's conversations, most recently updated first.
func (s *Store) ListConversations(ctx context.Context, userID string) ([]model.ConversationSummary, error) {
	rows, err := s.q.Query(ctx, `
		SELECT c.id, c.title, c.type, c.created_at, c.updated_at,
		       m.id, m.content, m.subchannel_id, m.author_id, u.name, m.timestamp, m.is_read
		FROM conversations c
		JOIN conversation_participants cp ON cp.conversation_id = c.id AND cp.user_id = $1
		LEFT JOIN LATERAL (
			SELECT msg.id, msg.content, msg.subchannel_id, msg.author_id, msg.timestamp, msg.is_read
			FROM messages msg
			JOIN subchannels sc ON sc.id = msg.subchannel_id
			JOIN channels ch ON ch.id = sc.channel_id
			WHERE ch.conversation_id = c.id
			ORDER BY msg.timestamp DESC
			LIMIT 1
		) m ON true
		LEFT JOIN users u ON u.id = m.author_id
		ORDER BY c.updated_at DESC
	`, userID)
	if err != nil {
		return nil, translate(err, "list conversations")
	}
	defer rows.Close()

	var summaries []model.ConversationSummary
	var ids []string
	for rows.Next() {
		var summary model.ConversationSummary
		var (
			messageID    *string
			content      *string
			subchannelID *string
			authorID     *string
			authorName   *string
			timestamp    *time.Time
			isRead       *bool
		)
		if err := rows.Scan(
			&summary.ID, &summary.Title, &summary.Type, &summary.CreatedAt, &summary.UpdatedAt,
			&messageID, &content, &subchannelID, &authorID, &authorName, &timestamp, &isRead,
		); err != nil {
			return nil, translate(err, "list conversations")
		}
		if messageID != nil {
			summary.LastMessage = &model.Message{
				ID:           *messageID,
				Content:      *content,
				SubchannelID: *subchannelID,
				AuthorID:     authorID,
				AuthorName:   authorName,
				Timestamp:    *timestamp,
				IsRead:       *isRead,
			}
		}
		summaries = append(summaries, summary)
		ids = append(ids, summary.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err, "list conversations")
	}

	participants, err := s.participantsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range summaries {
		summaries[i].Participants = participants[summaries[i].ID]
	}
	return summaries, nil
}

func (s *Store) ListMessages(ctx context.Context, conversationID string) ([]model.Message, error) {
	rows, err := s.q.Query(ctx, `
		SELECT m.id, m.content, m.subchannel_id, m.author_id, u.name, m.timestamp, m.is_read
		FROM messages m
		JOIN subchannels sc ON sc.id = m.subchannel_id
		JOIN channels ch ON ch.id = sc.channel_id
		LEFT JOIN users u ON u.id = m.author_id
		WHERE ch.conversation_id = $1
		ORDER BY m.timestamp ASC, m.id ASC
	`, conversationID)
	if err != nil {
		return nil, translate(err, "list messages")
	}
	defer rows.Close()

	var messages []model.Message
	for rows.Next() {
		var msg model.Message
		if err := rows.Scan(&msg.ID, &msg.Content, &msg.SubchannelID, &msg.AuthorID, &msg.AuthorName, &msg.Timestamp, &msg.IsRead); err != nil {
			return nil, translate(err, "list messages")
		}
		messages = append(messages, msg)
	}
	return messages, translate(rows.Err(), "list messages")
}

// MarkRead flags every unread message not authored by readerID. Messages whose author was deleted count as foreign.
func (s *Store) MarkRead(ctx context.Context, conversationID, readerID string) (int64, error) {
	tag, err := s.q.Exec(ctx, `
		UPDATE messages m
		SET is_read = true
		FROM subchannels sc
		JOIN channels ch ON ch.id = sc.channel_id
		WHERE m.subchannel_id = sc.id
		  AND ch.conversation_id = $1
		  AND m.is_read = false
		  AND m.author_id IS DISTINCT FROM $2::uuid
	`, conversationID, readerID)
	if err != nil {
		return 0, translate(err, "mark read")
	}
	return tag.RowsAffected(), nil
}

// AppendMessage stores msg in the conversation's thread and bumps the conversation's updated_at.
func (s *Store) AppendMessage(ctx context.Context, conversationID string, msg model.Message) (model.Message, error) {
	err := s.WithTx(ctx, func(tx *Store) error {
		thread, err := tx.ensureThread(ctx, conversationID)
		if err != nil {
			return err
		}
		msg.SubchannelID = thread.SubchannelID
		if _, err := tx.q.Exec(ctx, `
			INSERT INTO messages (id, content, subchannel_id, author_id, timestamp, is_read)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, msg.ID, msg.Content, msg.SubchannelID, msg.AuthorID, msg.Timestamp, msg.IsRead); err != nil {
			return translate(err, "insert message")
		}
		tag, err := tx.q.Exec(ctx, `UPDATE conversations SET updated_at = $2 WHERE id = $1`, conversationID, msg.Timestamp)
		if err != nil {
			return translate(err, "touch conversation")
		}
		if tag.RowsAffected() == 0 {
			return errors.Wrap(model.ErrNotFound, "touch conversation")
		}
		return nil
	})
	return msg, err
}

func (s *Store) DeleteConversation(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "conversations", id, "delete conversation")
}
