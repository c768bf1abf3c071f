package http

import (
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleChatSocket streams new_message events to the caller. Browsers cannot
// set headers on a websocket handshake, so ?token= is accepted as well.
func (s *Server) handleChatSocket(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r.Header.Get("Authorization"))
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	user, err := s.resolveUser(r.Context(), token)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	if !user.Active() {
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "user_inactive", Message: "inactive user"})
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WarnContext(r.Context(), "websocket upgrade failed", "user_id", user.ID, "err", err)
		return
	}
	client := s.hub.Register(user.ID, conn)
	defer s.hub.Unregister(client)

	go client.WritePump()
	client.ReadPump()
}
