package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"

	"chat-relay/domain"
	chaterrors "chat-relay/errors"
	"chat-relay/services"
)

type ChatHandlers struct {
	log      *slog.Logger
	service  services.IChatService
	validate *validator.Validate
}

func NewChatHandlers(log *slog.Logger, service services.IChatService) *ChatHandlers {
	return &ChatHandlers{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

type UpsertMessageRequest struct {
	Content string `json:"content" validate:"required"`
	Owner   string `json:"owner" validate:"required"`
}

type ConversationResponse struct {
	ID            string    `json:"id"`
	Owner         string    `json:"owner"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	LastMessageID *string   `json:"last_message_id"`
}

type MessageResponse struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type MessagePageResponse struct {
	Messages   []MessageResponse `json:"messages"`
	NextCursor *string           `json:"next_cursor"`
	HasMore    bool              `json:"has_more"`
}

// HandleUpsertMessage creates or updates a message in a conversation.
func (h *ChatHandlers) HandleUpsertMessage(w http.ResponseWriter, r *http.Request) {
	var req UpsertMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	cmd := domain.UpsertMessageCommand{
		ConversationID: chi.URLParam(r, "conversationID"),
		MessageID:      chi.URLParam(r, "messageID"),
		Content:        req.Content,
		Owner:          req.Owner,
	}
	if err := h.service.UpsertMessage(r.Context(), cmd); err != nil {
		h.respondWithServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleGetConversation returns conversation metadata without touching
// its messages.
func (h *ChatHandlers) HandleGetConversation(w http.ResponseWriter, r *http.Request) {
	conversation, err := h.service.GetConversation(r.Context(), chi.URLParam(r, "conversationID"))
	if err != nil {
		h.respondWithServiceError(w, err)
		return
	}
	if conversation == nil {
		RespondWithError(w, http.StatusNotFound, "Conversation not found")
		return
	}
	RespondWithJSON(w, http.StatusOK, toConversationResponse(conversation))
}

// HandlePaginateMessages returns one page of live messages.
func (h *ChatHandlers) HandlePaginateMessages(w http.ResponseWriter, r *http.Request) {
	cmd := domain.PaginateMessagesCommand{
		ConversationID: chi.URLParam(r, "conversationID"),
	}
	if cursor := r.URL.Query().Get("cursor"); cursor != "" {
		cmd.Cursor = &cursor
	}
	if rawLimit := r.URL.Query().Get("limit"); rawLimit != "" {
		limit, err := strconv.Atoi(rawLimit)
		if err != nil || limit < 0 {
			RespondWithError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		cmd.Limit = limit
	}

	page, err := h.service.PaginateMessages(r.Context(), cmd)
	if err != nil {
		h.respondWithServiceError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, MessagePageResponse{
		Messages:   lo.Map(page.Messages, func(m *domain.Message, _ int) MessageResponse { return toMessageResponse(m) }),
		NextCursor: page.NextCursor,
		HasMore:    page.HasMore,
	})
}

func (h *ChatHandlers) respondWithServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chaterrors.ErrInvalidValue):
		RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, chaterrors.ErrIdentityConflict):
		RespondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, chaterrors.ErrBrokerUnavailable):
		RespondWithError(w, http.StatusBadGateway, err.Error())
	default:
		h.log.Error("Request failed", "error", err)
		RespondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func toConversationResponse(conversation *domain.Conversation) ConversationResponse {
	response := ConversationResponse{
		ID:        conversation.ID().String(),
		Owner:     conversation.Owner().String(),
		CreatedAt: conversation.CreatedAt(),
		UpdatedAt: conversation.UpdatedAt(),
	}
	if last := conversation.LastMessageID(); last != nil {
		response.LastMessageID = lo.ToPtr(last.String())
	}
	return response
}

func toMessageResponse(message *domain.Message) MessageResponse {
	return MessageResponse{
		ID:             message.ID().String(),
		ConversationID: message.ConversationID().String(),
		Content:        message.Content().String(),
		CreatedAt:      message.CreatedAt(),
		UpdatedAt:      message.UpdatedAt(),
	}
}
