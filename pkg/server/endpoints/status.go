package endpoints

import (
	"net/http"

	"github.com/doodlesbykumbi/directory-sync/pkg/server"
	"github.com/doodlesbykumbi/directory-sync/pkg/store"
)

// StatusResponse represents the response from /status
type StatusResponse struct {
	Status    string          `json:"status"`
	Version   string          `json:"version"`
	Directory DirectoryStatus `json:"directory"`
	Database  string          `json:"database"`
	Models    []ModelStatus   `json:"models"`
}

// DirectoryStatus describes the directory session
type DirectoryStatus struct {
	Connected bool   `json:"connected"`
	URL       string `json:"url,omitempty"`
	Fixture   string `json:"fixture,omitempty"`
}

// ModelStatus describes one registered model
type ModelStatus struct {
	Name      string `json:"name"`
	Class     string `json:"class"`
	Records   *int64 `json:"records,omitempty"`
	Scheduled bool   `json:"scheduled"`
}

// RegisterStatusEndpoints registers the status and metrics endpoints
func RegisterStatusEndpoints(s *server.Server) {
	s.Router.HandleFunc("/status", handleStatus(s)).Methods("GET")
	s.Router.Handle("/metrics", s.Metrics.Handler()).Methods("GET")
}

func handleStatus(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		resp := StatusResponse{
			Status:  "ok",
			Version: server.Version,
			Directory: DirectoryStatus{
				Connected: s.Gateway.Connected(),
				URL:       s.Config.Directory.URL,
				Fixture:   s.Config.Directory.Fixture,
			},
			Database: "ok",
		}

		code := http.StatusOK
		if err := checkDatabase(r, s.HealthStore); err != nil {
			resp.Status = "error"
			resp.Database = "database connectivity check failed"
			code = http.StatusServiceUnavailable
		}

		scheduled := map[string]bool{}
		for _, name := range s.Scheduler.Models() {
			scheduled[name] = true
		}
		for _, name := range s.Registry.Models() {
			m, err := s.Registry.Model(name)
			if err != nil {
				continue
			}
			status := ModelStatus{Name: name, Class: m.DirectoryClass, Scheduled: scheduled[name]}
			if code == http.StatusOK {
				if st, ok := s.Stores[name]; ok {
					if n, err := st.Count(ctx); err == nil {
						status.Records = &n
					}
				}
			}
			resp.Models = append(resp.Models, status)
		}

		respondWithJSON(w, code, resp)
	}
}

func checkDatabase(r *http.Request, health store.HealthStore) error {
	if health == nil {
		return nil
	}
	return health.CheckConnectivity(r.Context())
}
