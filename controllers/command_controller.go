package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"anonchat_server/models"
	"anonchat_server/services"
)

// CommandController is the inbound dispatch boundary: it decodes one
// platform event into a state-machine transition and reports the outcome.
type CommandController struct {
	Pairing   *services.PairingService
	Directory *services.DirectoryService
	Sender    services.Sender
}

func NewCommandController(pairing *services.PairingService, directory *services.DirectoryService, sender services.Sender) *CommandController {
	return &CommandController{Pairing: pairing, Directory: directory, Sender: sender}
}

type commandRequest struct {
	UserID   string `json:"userId"`
	Command  string `json:"command"`
	Text     string `json:"text,omitempty"`
	Username string `json:"username,omitempty"`
}

type commandResponse struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	Delivered *bool  `json:"delivered,omitempty"`
}

// HandleCommand - decode and dispatch one inbound command
func (c *CommandController) HandleCommand(w http.ResponseWriter, r *http.Request) {
	var request commandRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, `{"error": "Invalid request body"}`, http.StatusBadRequest)
		return
	}
	if request.UserID == "" || request.Command == "" {
		http.Error(w, `{"error": "Missing required fields: userId, command"}`, http.StatusBadRequest)
		return
	}

	ctx := r.Context()

	// Directory upkeep is reporting plumbing; its failure never blocks the
	// transition.
	if err := c.Directory.Touch(ctx, request.UserID, request.Username); err != nil {
		log.Printf("⚠️ Failed to update directory for %s: %v", request.UserID, err)
	}

	response := commandResponse{Status: models.OutcomeOK}
	var err error

	switch request.Command {
	case models.CommandConnect:
		err = c.Pairing.Connect(ctx, request.UserID)
	case models.CommandStop:
		err = c.Pairing.Stop(ctx, request.UserID)
	case models.CommandSkip:
		err = c.Pairing.Skip(ctx, request.UserID)
	case models.CommandRematch:
		err = c.Pairing.RequestRematch(ctx, request.UserID)
	case models.CommandSend:
		if request.Text == "" {
			http.Error(w, `{"error": "Missing required field: text"}`, http.StatusBadRequest)
			return
		}
		var delivered bool
		delivered, err = c.Pairing.RelayMessage(ctx, request.UserID, request.Text)
		if err == nil {
			response.Delivered = &delivered
		}
	case models.CommandShareUsername:
		c.shareUsername(ctx, request.UserID)
	default:
		http.Error(w, `{"error": "Unknown command"}`, http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		if isRejection(err) {
			response.Status = models.OutcomeRejected
			response.Error = err.Error()
			w.WriteHeader(http.StatusConflict)
			json.NewEncoder(w).Encode(response)
			return
		}
		log.Printf("❌ Command %s failed for %s: %v", request.Command, request.UserID, err)
		http.Error(w, `{"error": "Failed to process command"}`, http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(response)
}

// shareUsername replies with the caller's stored username, mirroring the
// original bot's profile-sharing command.
func (c *CommandController) shareUsername(ctx context.Context, userID string) {
	username, err := c.Directory.Username(ctx, userID)
	text := "Unable to retrieve your username. Please try again later."
	if err == nil && username != "" {
		text = "Your username is @" + username
	}
	if err := c.Sender.SendToUser(userID, text); err != nil {
		log.Printf("⚠️ Failed to send username to %s: %v", userID, err)
	}
}

// isRejection reports whether err is one of the user-facing state-machine
// rejections rather than an infrastructure failure.
func isRejection(err error) bool {
	for _, rejection := range []error{
		services.ErrAlreadyInChat,
		services.ErrAlreadyWaiting,
		services.ErrNotInChat,
		services.ErrNoPriorPartner,
		services.ErrRequestAlreadyPending,
		services.ErrPartnerBusy,
	} {
		if errors.Is(err, rejection) {
			return true
		}
	}
	return false
}
