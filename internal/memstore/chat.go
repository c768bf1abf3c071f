package memstore

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"uconnect/api/internal/model"
)

func (s *Store) CreateConversation(_ context.Context, conversation model.Conversation, participantIDs []string) (model.Thread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conversations[conversation.ID]; ok {
		return model.Thread{}, conflict("create conversation", "id")
	}
	for _, userID := range participantIDs {
		if _, ok := s.users[userID]; !ok {
			return model.Thread{}, notFound("add participant")
		}
	}
	s.conversations[conversation.ID] = conversation
	seen := make(map[string]struct{}, len(participantIDs))
	for _, userID := range participantIDs {
		if _, dup := seen[userID]; dup {
			continue
		}
		seen[userID] = struct{}{}
		s.participants[conversation.ID] = append(s.participants[conversation.ID], participation{userID: userID, joinedAt: conversation.CreatedAt})
	}
	return s.ensureThreadLocked(conversation.ID), nil
}

func (s *Store) ensureThreadLocked(conversationID string) model.Thread {
	channel, ok := s.channels[conversationID]
	if !ok {
		channel = model.Channel{ID: uuid.NewString(), Name: "Channel-" + conversationID, ConversationID: conversationID}
		s.channels[conversationID] = channel
	}
	sub, ok := s.subchannels[channel.ID]
	if !ok {
		sub = model.Subchannel{ID: uuid.NewString(), Name: defaultSubchannelName, ChannelID: channel.ID}
		s.subchannels[channel.ID] = sub
	}
	return model.Thread{ConversationID: conversationID, ChannelID: channel.ID, SubchannelID: sub.ID}
}

// GetThread is not part of any service port; tests use it to inspect thread provisioning.
func (s *Store) GetThread(_ context.Context, conversationID string) (model.Thread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	channel, ok := s.channels[conversationID]
	if !ok {
		return model.Thread{}, notFound("get thread")
	}
	sub, ok := s.subchannels[channel.ID]
	if !ok {
		return model.Thread{}, notFound("get thread")
	}
	return model.Thread{ConversationID: conversationID, ChannelID: channel.ID, SubchannelID: sub.ID}, nil
}

func (s *Store) GetConversation(_ context.Context, id string) (model.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conversation, ok := s.conversations[id]
	if !ok {
		return model.Conversation{}, notFound("get conversation")
	}
	return conversation, nil
}

func (s *Store) IsParticipant(_ context.Context, conversationID, userID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.participants[conversationID] {
		if p.userID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) participantsLocked(conversationID string) []model.Participant {
	members := append([]participation(nil), s.participants[conversationID]...)
	sort.SliceStable(members, func(i, j int) bool {
		return members[i].joinedAt.Before(members[j].joinedAt)
	})
	out := make([]model.Participant, 0, len(members))
	for _, member := range members {
		out = append(out, model.Participant{ID: member.userID, Name: s.users[member.userID].Name})
	}
	return out
}

func (s *Store) ListParticipants(_ context.Context, conversationID string) ([]model.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.participantsLocked(conversationID), nil
}

func (s *Store) withAuthorLocked(msg model.Message) model.Message {
	msg.AuthorName = nil
	if msg.AuthorID != nil {
		if author, ok := s.users[*msg.AuthorID]; ok {
			name := author.Name
			msg.AuthorName = &name
		}
	}
	return msg
}

func (s *Store) messagesLocked(conversationID string) []model.Message {
	channel, ok := s.channels[conversationID]
	if !ok {
		return nil
	}
	sub, ok := s.subchannels[channel.ID]
	if !ok {
		return nil
	}
	return s.messages[sub.ID]
}

func (s *Store) ListConversations(_ context.Context, userID string) ([]model.ConversationSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var summaries []model.ConversationSummary
	for id, conversation := range s.conversations {
		member := false
		for _, p := range s.participants[id] {
			if p.userID == userID {
				member = true
				break
			}
		}
		if !member {
			continue
		}
		summary := model.ConversationSummary{
			Conversation: conversation,
			Participants: s.participantsLocked(id),
		}
		if msgs := s.messagesLocked(id); len(msgs) > 0 {
			last := s.withAuthorLocked(msgs[len(msgs)-1])
			summary.LastMessage = &last
		}
		summaries = append(summaries, summary)
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
	})
	return summaries, nil
}

func (s *Store) ListMessages(_ context.Context, conversationID string) ([]model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := s.messagesLocked(conversationID)
	out := make([]model.Message, 0, len(msgs))
	for _, msg := range msgs {
		out = append(out, s.withAuthorLocked(msg))
	}
	return out, nil
}

func (s *Store) MarkRead(_ context.Context, conversationID, readerID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.messagesLocked(conversationID)
	var changed int64
	for i := range msgs {
		if msgs[i].IsRead {
			continue
		}
		if msgs[i].AuthorID != nil && *msgs[i].AuthorID == readerID {
			continue
		}
		msgs[i].IsRead = true
		changed++
	}
	return changed, nil
}

// AppendMessage keeps messages ordered by timestamp, matching the Postgres ordering.
func (s *Store) AppendMessage(_ context.Context, conversationID string, msg model.Message) (model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conversation, ok := s.conversations[conversationID]
	if !ok {
		return model.Message{}, notFound("touch conversation")
	}
	thread := s.ensureThreadLocked(conversationID)
	msg.SubchannelID = thread.SubchannelID
	msg.AuthorName = nil
	msgs := append(s.messages[thread.SubchannelID], msg)
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Timestamp.Before(msgs[j].Timestamp)
	})
	s.messages[thread.SubchannelID] = msgs
	conversation.UpdatedAt = msg.Timestamp
	s.conversations[conversationID] = conversation
	return msg, nil
}

func (s *Store) DeleteConversation(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conversations[id]; !ok {
		return notFound("delete conversation")
	}
	if channel, ok := s.channels[id]; ok {
		if sub, ok := s.subchannels[channel.ID]; ok {
			delete(s.messages, sub.ID)
		}
		delete(s.subchannels, channel.ID)
		delete(s.channels, id)
	}
	delete(s.participants, id)
	delete(s.conversations, id)
	return nil
}
