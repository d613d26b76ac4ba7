package http

import (
	"net/http"
	"time"

	"cantina/internal/log"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(ctx, w, err)
		return
	}

	user, err := s.authenticator.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		log.FromContext(ctx).WarnContext(ctx, "Login rejected",
			log.FieldUsername, req.Username, log.FieldClientIP, extractClientIP(r))
		respondError(ctx, w, err)
		return
	}

	token, err := s.tokens.Generate(user)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	log.FromContext(ctx).InfoContext(ctx, "Operator logged in",
		log.FieldUsername, user.Username, log.FieldOperation, log.OpLogin)
	respondJSON(ctx, w, http.StatusOK, loginResponse{
		Token:     token,
		Username:  user.Username,
		ExpiresAt: time.Now().Add(s.tokenTTL),
	})
}
