package routes

import (
	"anonchat_server/controllers"
	"anonchat_server/services"

	"github.com/gorilla/mux"
)

// RegisterChatRoutes sets up routes for conversation history under /api/chat
func RegisterChatRoutes(r *mux.Router, logService *services.ConversationLogService) {
	controller := controllers.NewChatController(logService)

	chatRouter := r.PathPrefix("/api/chat").Subrouter()
	chatRouter.HandleFunc("/messages", controller.HandleGetMessages).Methods("GET")
}
