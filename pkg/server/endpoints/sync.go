package endpoints

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/doodlesbykumbi/directory-sync/pkg/scheduler"
	"github.com/doodlesbykumbi/directory-sync/pkg/server"
)

// SyncRequest is the optional body of POST /sync/{model}
type SyncRequest struct {
	Params map[string]any `json:"params"`
	DryRun bool           `json:"dry_run"`
}

// SyncResponse represents the response from POST /sync/{model}
type SyncResponse struct {
	Model      string `json:"model"`
	Found      int    `json:"found"`
	Created    int    `json:"created"`
	Updated    int    `json:"updated"`
	DryRun     bool   `json:"dry_run"`
	DurationMS int64  `json:"duration_ms"`
}

// RecordSyncResponse represents the response from POST /sync/{model}/{external_id}
type RecordSyncResponse struct {
	Model      string         `json:"model"`
	ExternalID string         `json:"external_id"`
	Created    bool           `json:"created"`
	Fields     map[string]any `json:"fields"`
}

// RegisterSyncEndpoints registers the reconciliation endpoints
func RegisterSyncEndpoints(s *server.Server) {
	s.Router.HandleFunc("/sync/{model}", handleSync(s)).Methods("POST")
	s.Router.HandleFunc("/sync/{model}/{external_id:.+}", handleSyncRecord(s)).Methods("POST")
}

func handleSync(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		model := mux.Vars(r)["model"]

		var body SyncRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			respondWithError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
		if dry := r.URL.Query().Get("dry_run"); dry != "" {
			v, err := strconv.ParseBool(dry)
			if err != nil {
				respondWithError(w, http.StatusBadRequest, "invalid dry_run value: "+dry)
				return
			}
			body.DryRun = v
		}

		res, err := s.Scheduler.Sync(r.Context(), scheduler.Request{
			Model:   model,
			Params:  body.Params,
			DryRun:  body.DryRun,
			Trigger: scheduler.TriggerAPI,
		})
		if err != nil {
			s.Logger.Error().Err(err).Str("model", model).Msg("sync failed")
			respondWithError(w, statusFor(err), err.Error())
			return
		}

		respondWithJSON(w, http.StatusOK, SyncResponse{
			Model:      res.Model,
			Found:      res.Found,
			Created:    res.Created,
			Updated:    res.Updated,
			DryRun:     res.DryRun,
			DurationMS: res.Duration.Milliseconds(),
		})
	}
}

func handleSyncRecord(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		model := vars["model"]
		externalID := vars["external_id"]

		res, err := s.Scheduler.SyncRecord(r.Context(), model, externalID, scheduler.TriggerAPI)
		if err != nil {
			s.Logger.Error().Err(err).Str("model", model).Str("external_id", externalID).Msg("record sync failed")
			respondWithError(w, statusFor(err), err.Error())
			return
		}
		if !res.Found {
			respondWithError(w, http.StatusNotFound, model+" "+externalID+" not found in directory")
			return
		}

		respondWithJSON(w, http.StatusOK, RecordSyncResponse{
			Model:      model,
			ExternalID: externalID,
			Created:    res.Created,
			Fields:     recordFields(s.Registry, res.Record),
		})
	}
}
