package routes

import (
	"anonchat_server/controllers"
	"anonchat_server/services"

	"github.com/gorilla/mux"
)

// RegisterCommandRoutes sets up the inbound command webhook under /api/commands
func RegisterCommandRoutes(r *mux.Router, pairing *services.PairingService, directory *services.DirectoryService, sender services.Sender) {
	controller := controllers.NewCommandController(pairing, directory, sender)

	commandRouter := r.PathPrefix("/api/commands").Subrouter()
	commandRouter.HandleFunc("", controller.HandleCommand).Methods("POST")
}
