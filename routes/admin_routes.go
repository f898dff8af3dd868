package routes

import (
	"anonchat_server/controllers"
	"anonchat_server/services"

	"github.com/gorilla/mux"
)

// RegisterAdminRoutes sets up the reporting endpoints under /api/admin
func RegisterAdminRoutes(r *mux.Router, pairing *services.PairingService, directory *services.DirectoryService, archive *services.ArchiveService) {
	controller := controllers.NewAdminController(pairing, directory, archive)

	adminRouter := r.PathPrefix("/api/admin").Subrouter()
	adminRouter.HandleFunc("/users", controller.HandleListUsers).Methods("GET")
	adminRouter.HandleFunc("/pairs", controller.HandleListPairs).Methods("GET")
	adminRouter.HandleFunc("/archive", controller.HandleExportTranscript).Methods("POST")
}
