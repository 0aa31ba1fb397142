package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

type contextKey string

const claimsKey contextKey = "claims"

type server struct {
	world  *world
	tokens *tokenMinter
	hub    *hub
	logger *slog.Logger
}

func (s *server) router() http.Handler {
	r := chi.NewRouter()

	r.Post("/auth/session/login", s.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Delete("/auth/session/{id}", s.handleDeleteSession)
		r.Get("/users/dms", s.handleDirectChannels)
		r.Get("/channels/{id}/messages", s.handleListMessages)
		r.Get("/channel/{id}/messages/{messageID}", s.handleGetMessage)
		r.Post("/channels/{id}/messages", s.handleSendMessage)
	})

	r.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
		serveWS(s.hub, w, r)
	})

	return r
}

// authMiddleware validates the X-Session-Token header and stashes the
// claims in the request context.
func (s *server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("X-Session-Token")
		if token == "" {
			writeError(w, http.StatusUnauthorized, "MissingToken")
			return
		}
		claims, err := s.tokens.validate(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "InvalidSession")
			return
		}
		if !s.world.sessionExists(claims.ID) {
			writeError(w, http.StatusUnauthorized, "InvalidSession")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "InvalidBody")
		return
	}

	sessionID, userID, err := s.world.login(req.Email, req.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "InvalidCredentials")
		return
	}

	token, err := s.tokens.mint(userID, sessionID)
	if err != nil {
		s.logger.Error("minting token", "error", err)
		writeError(w, http.StatusInternalServerError, "InternalError")
		return
	}

	s.logger.Info("session created", "user_id", userID, "session_id", sessionID)
	writeJSON(w, http.StatusOK, map[string]string{
		"result":  "Success",
		"_id":     sessionID,
		"user_id": userID,
		"token":   token,
	})
}

func (s *server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	if err := s.world.deleteSession(sessionID); err != nil {
		writeError(w, http.StatusNotFound, "UnknownSession")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleDirectChannels(w http.ResponseWriter, r *http.Request) {
	claims := r.Context().Value(claimsKey).(*sessionClaims)
	writeJSON(w, http.StatusOK, s.world.directChannels(claims.UserID))
}

func (s *server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	channelID := chi.URLParam(r, "id")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	messages, err := s.world.listMessages(channelID, limit)
	if err != nil {
		writeError(w, http.StatusNotFound, "UnknownChannel")
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

func (s *server) handleGetMessage(w http.ResponseWriter, r *http.Request) {
	channelID := chi.URLParam(r, "id")
	messageID := chi.URLParam(r, "messageID")

	msg, err := s.world.getMessage(channelID, messageID)
	if err != nil {
		writeError(w, http.StatusNotFound, "UnknownMessage")
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

type sendMessageRequest struct {
	Content string `json:"content"`
	Nonce   string `json:"nonce"`
}

func (s *server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	claims := r.Context().Value(claimsKey).(*sessionClaims)
	channelID := chi.URLParam(r, "id")

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "InvalidBody")
		return
	}
	if req.Content == "" {
		writeError(w, http.StatusUnprocessableEntity, "EmptyMessage")
		return
	}

	msg, err := s.world.createMessage(channelID, claims.UserID, req.Content, req.Nonce)
	switch {
	case errors.Is(err, errDuplicateNonce):
		// Retried send: return the original message, no second event.
		writeJSON(w, http.StatusOK, msg)
		return
	case errors.Is(err, errUnknownChannel):
		writeError(w, http.StatusNotFound, "UnknownChannel")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "InternalError")
		return
	}

	s.hub.publishMessage(msg)
	writeJSON(w, http.StatusOK, msg)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"type": code})
}
