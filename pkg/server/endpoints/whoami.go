package endpoints

import (
	"net/http"

	"github.com/doodlesbykumbi/directory-sync/pkg/server"
	"github.com/doodlesbykumbi/directory-sync/pkg/server/middleware"
)

// WhoamiResponse represents the response from the /whoami endpoint
type WhoamiResponse struct {
	Subject       string `json:"subject"`
	Authenticated bool   `json:"authenticated"`
}

// RegisterWhoamiEndpoint registers the /whoami endpoint
func RegisterWhoamiEndpoint(s *server.Server) {
	s.Router.HandleFunc("/whoami", handleWhoami(s)).Methods("GET")
}

func handleWhoami(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subject := middleware.Subject(r.Context())
		respondWithJSON(w, http.StatusOK, WhoamiResponse{
			Subject:       subject,
			Authenticated: s.JWTMiddleware.Enabled() && subject != "",
		})
	}
}
