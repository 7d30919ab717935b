package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/kalambet/solace/internal/profile"
)

type postUserRequest struct {
	Username string          `json:"username"`
	UserData json.RawMessage `json:"userData"`
}

type putUserRequest struct {
	Username string          `json:"username"`
	Updates  json.RawMessage `json:"updates"`
}

type successResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// present reports whether a raw JSON field was sent with a non-null value.
func present(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && !bytes.Equal(raw, []byte("null"))
}

func handleGetUser(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username := strings.TrimSpace(r.URL.Query().Get("username"))
		if username == "" {
			httpError(w, http.StatusBadRequest, "Username is required")
			return
		}

		rec, ok := deps.Profiles.Get(r.Context(), username)
		if !ok {
			httpError(w, http.StatusNotFound, "User not found")
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

// handlePostUser replaces the whole record when userData is sent and
// otherwise creates the default record.
func handlePostUser(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req postUserRequest
		if err := decodeBody(w, r, &req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid request body: %v", err)
			return
		}
		username := strings.TrimSpace(req.Username)
		if username == "" {
			httpError(w, http.StatusBadRequest, "Username is required")
			return
		}

		if present(req.UserData) {
			var rec profile.Record
			if err := json.Unmarshal(req.UserData, &rec); err != nil {
				httpError(w, http.StatusBadRequest, "invalid userData: %v", err)
				return
			}
			if !deps.Profiles.Put(r.Context(), username, rec) {
				httpError(w, http.StatusInternalServerError, "Failed to update user data")
				return
			}
		} else if !deps.Profiles.CreateUser(r.Context(), username) {
			httpError(w, http.StatusInternalServerError, "Failed to create user")
			return
		}

		writeJSON(w, http.StatusOK, successResponse{Success: true})
	}
}

func handlePutUser(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req putUserRequest
		if err := decodeBody(w, r, &req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid request body: %v", err)
			return
		}
		username := strings.TrimSpace(req.Username)
		if username == "" || !present(req.Updates) {
			httpError(w, http.StatusBadRequest, "Username and updates are required")
			return
		}

		var patch profile.Patch
		if err := json.Unmarshal(req.Updates, &patch); err != nil {
			httpError(w, http.StatusBadRequest, "invalid updates: %v", err)
			return
		}
		if !deps.Profiles.Patch(r.Context(), username, patch) {
			httpError(w, http.StatusInternalServerError, "Failed to update user data")
			return
		}

		writeJSON(w, http.StatusOK, successResponse{Success: true})
	}
}

func handleMigrate(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Action string `json:"action"`
		}
		if err := decodeBody(w, r, &req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid request body: %v", err)
			return
		}

		switch req.Action {
		case "migrate", "clear":
		default:
			httpError(w, http.StatusBadRequest, `Invalid action. Use "migrate" or "clear"`)
			return
		}
		if deps.Migrator == nil {
			httpError(w, http.StatusServiceUnavailable, "migration is not configured")
			return
		}

		if req.Action == "migrate" {
			writeJSON(w, http.StatusOK, deps.Migrator.Migrate(r.Context()))
			return
		}
		deps.Migrator.Clear(r.Context())
		writeJSON(w, http.StatusOK, successResponse{Success: true, Message: "Local user data cleared successfully"})
	}
}
