package controllers

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"anonchat_server/services"
)

// ChatController struct
type ChatController struct {
	Log *services.ConversationLogService
}

// NewChatController initializes the chat controller
func NewChatController(logService *services.ConversationLogService) *ChatController {
	return &ChatController{Log: logService}
}

// HandleGetMessages - Fetch logged messages for a pairKey
func (c *ChatController) HandleGetMessages(w http.ResponseWriter, r *http.Request) {
	pairKey := r.URL.Query().Get("pairKey")
	limitStr := r.URL.Query().Get("limit")

	if pairKey == "" {
		http.Error(w, `{"error": "pairKey is required"}`, http.StatusBadRequest)
		return
	}

	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 {
		limit = 50 // Default to 50 messages
	}

	log.Printf("🔍 Fetching messages for pairKey: %s, Limit: %d", pairKey, limit)

	messages, err := c.Log.MessagesByPairKey(r.Context(), pairKey, limit)
	if err != nil {
		log.Printf("❌ Error fetching messages: %v", err)
		http.Error(w, `{"error": "Failed to fetch messages"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(messages)
}
