package controllers

import (
	"encoding/json"
	"log"
	"net/http"

	"anonchat_server/services"
)

// AdminController exposes the reporting surface: known users, the live
// pairing set and transcript export.
type AdminController struct {
	Pairing   *services.PairingService
	Directory *services.DirectoryService
	Archive   *services.ArchiveService
}

func NewAdminController(pairing *services.PairingService, directory *services.DirectoryService, archive *services.ArchiveService) *AdminController {
	return &AdminController{Pairing: pairing, Directory: directory, Archive: archive}
}

// HandleListUsers - known user ids with their persisted directory entries
func (c *AdminController) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	entries, err := c.Directory.ListEntries(r.Context())
	if err != nil {
		log.Printf("❌ Error listing directory entries: %v", err)
		http.Error(w, `{"error": "Failed to list users"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"knownUserIds": c.Pairing.KnownUserIDs(),
		"directory":    entries,
	})
}

// HandleListPairs - current active pairings
func (c *AdminController) HandleListPairs(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"activePairs": c.Pairing.ActivePairs(),
	})
}

// HandleExportTranscript - render a pairing's conversation log to S3
func (c *AdminController) HandleExportTranscript(w http.ResponseWriter, r *http.Request) {
	var request struct {
		PairKey string `json:"pairKey"`
		Limit   int    `json:"limit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, `{"error": "Invalid request body"}`, http.StatusBadRequest)
		return
	}
	if request.PairKey == "" {
		http.Error(w, `{"error": "pairKey is required"}`, http.StatusBadRequest)
		return
	}
	if request.Limit <= 0 {
		request.Limit = 500
	}

	key, url, err := c.Archive.ExportTranscript(r.Context(), request.PairKey, request.Limit)
	if err != nil {
		log.Printf("❌ Error exporting transcript: %v", err)
		http.Error(w, `{"error": "Failed to export transcript"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status": "success",
		"key":    key,
		"url":    url,
	})
}
