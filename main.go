package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"

	"anonchat_server/routes"
	"anonchat_server/services"
	"anonchat_server/socket"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

func main() {
	// Initialize DynamoDB client and service
	log.Println("Initializing DynamoDB client...")
	dynamoClient := services.InitializeDynamoDBClient()
	dynamoService := &services.DynamoService{Client: dynamoClient}
	log.Println("DynamoDB client initialized.")

	// Outbound transport: socket.io server with per-user rooms
	socketServer := socket.NewSocketServer()
	go func() {
		if err := socketServer.Serve(); err != nil {
			log.Fatalf("Socket server error: %v", err)
		}
	}()
	defer socketServer.Close()
	sender := socket.NewSender(socketServer)

	// Initialize Services
	directoryService := &services.DirectoryService{Dynamo: dynamoService}
	conversationLog := &services.ConversationLogService{Dynamo: dynamoService}
	snapshotService := &services.PairSnapshotService{Dynamo: dynamoService}
	archiveService := services.NewArchiveService(conversationLog)
	pairingService := services.NewPairingService(sender, conversationLog, snapshotService)

	// Reload persisted pairings before accepting traffic
	if err := pairingService.LoadSnapshot(context.Background()); err != nil {
		log.Printf("⚠️ Failed to reload pairing snapshot: %v", err)
	}

	// Set up the server port
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("Using server port: %s\n", port)

	// Initialize the router
	r := mux.NewRouter()

	// Register a welcome route
	r.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "Welcome to AnonChat")
	}).Methods("GET")

	// Register a health check endpoint
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		response := map[string]string{"status": "healthy"}
		json.NewEncoder(w).Encode(response)
	}).Methods("GET")

	// Socket.IO endpoint for outbound delivery
	r.Handle("/socket.io/", socketServer)

	// Register routes
	routes.RegisterCommandRoutes(r, pairingService, directoryService, sender)
	routes.RegisterChatRoutes(r, conversationLog)
	routes.RegisterAdminRoutes(r, pairingService, directoryService, archiveService)

	// Add CORS middleware
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"}, // Adjust for specific domains if needed
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}).Handler(r)

	// Start the HTTP server
	log.Printf("Starting server on port %s...\n", port)
	log.Fatal(http.ListenAndServe(":"+port, corsHandler))
}
