package http

import (
	"net/http"
)

type createConversationRequest struct {
	ParticipantIDs []string `json:"participantIds"`
	Title          *string  `json:"title"`
}

type sendMessageRequest struct {
	Content string `json:"content"`
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	list, err := s.chat.ListByParticipant(r.Context(), userFromContext(r.Context()).ID)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(list, mapConversation))
}

func (s *Server) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	var req createConversationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	summary, err := s.chat.CreateConversation(r.Context(), req.ParticipantIDs, userFromContext(r.Context()), req.Title)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, mapConversation(summary))
}

func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	id, ok := requireUUID(w, r, "id")
	if !ok {
		return
	}
	if err := s.chat.DeleteConversation(r.Context(), id, userFromContext(r.Context())); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetMessages(w http.ResponseWriter, r *http.Request) {
	id, ok := requireUUID(w, r, "id")
	if !ok {
		return
	}
	messages, err := s.chat.GetMessages(r.Context(), id, userFromContext(r.Context()))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(messages, mapMessage))
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := requireUUID(w, r, "id")
	if !ok {
		return
	}
	var req sendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	msg, err := s.chat.SendMessage(r.Context(), id, req.Content, userFromContext(r.Context()))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, mapMessage(msg))
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	id, ok := requireUUID(w, r, "id")
	if !ok {
		return
	}
	if err := s.chat.MarkRead(r.Context(), id, userFromContext(r.Context())); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
