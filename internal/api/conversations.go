package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hackgods/conversational-appointment-booking/internal/conversation"
)

func startConversationHandler(svc *conversation.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := svc.Start(r.Context())
		if err != nil {
			handleConversationError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toConversationResponse(c))
	}
}

func getConversationHandler(svc *conversation.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := svc.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			handleConversationError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toConversationResponse(c))
	}
}

func sendMessageHandler(svc *conversation.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SendMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		c, err := svc.Send(r.Context(), chi.URLParam(r, "id"), req.Message)
		if err != nil {
			handleConversationError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toConversationResponse(c))
	}
}

func resetConversationHandler(svc *conversation.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := svc.Reset(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			handleConversationError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toConversationResponse(c))
	}
}

func deleteConversationHandler(svc *conversation.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
			handleConversationError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleConversationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, conversation.ErrConversationNotFound):
		writeError(w, http.StatusNotFound, "conversation_not_found", err.Error())
	case errors.Is(err, conversation.ErrEmptyMessage),
		errors.Is(err, conversation.ErrMessageTooLong):
		writeError(w, http.StatusBadRequest, "invalid_message", err.Error())
	case errors.Is(err, conversation.ErrConversationBusy):
		writeError(w, http.StatusConflict, "conversation_busy", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "could not process the conversation")
	}
}
