package endpoints

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/doodlesbykumbi/directory-sync/pkg/server"
)

// DirectoryObject is a directory entry with attributes in local field names
type DirectoryObject struct {
	ExternalID string         `json:"external_id"`
	DN         string         `json:"dn,omitempty"`
	Attributes map[string]any `json:"attributes"`
}

// RegisterDirectoryEndpoints registers the directory search endpoint
func RegisterDirectoryEndpoints(s *server.Server) {
	s.Router.HandleFunc("/directory/{model}", handleDirectorySearch(s)).Methods("GET")
}

func handleDirectorySearch(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		model := mux.Vars(r)["model"]

		runner, err := s.Runner(model, false)
		if err != nil {
			respondWithError(w, statusFor(err), err.Error())
			return
		}
		attrs, err := s.Registry.AttributeMap(model)
		if err != nil {
			respondWithError(w, statusFor(err), err.Error())
			return
		}

		objs, err := runner.FindInDirectory(r.Context(), queryParams(r))
		if err != nil {
			s.Logger.Error().Err(err).Str("model", model).Msg("directory search failed")
			respondWithError(w, statusFor(err), err.Error())
			return
		}

		out := make([]DirectoryObject, 0, len(objs))
		for _, obj := range objs {
			out = append(out, DirectoryObject{
				ExternalID: obj.ExternalID,
				DN:         obj.DN,
				Attributes: attrs.ToLocal(obj.Attributes),
			})
		}
		respondWithJSON(w, http.StatusOK, out)
	}
}
