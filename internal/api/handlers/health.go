package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/dom/star-diary/internal/api/respond"
)

const apiVersion = "2.0.0"

type HealthResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

func Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(HealthResponse{
		Success:   true,
		Message:   "✨ Server is healthy!",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func Info(w http.ResponseWriter, r *http.Request) {
	respond.OK(w, "✨ Welcome to Shooting Star Diary API! ✨", map[string]string{
		"version": apiVersion,
		"health":  "/api/health",
	})
}

// NotFound answers unknown routes with the failure envelope.
func NotFound(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusNotFound, respond.Envelope{Message: "Endpoint not found"})
}
