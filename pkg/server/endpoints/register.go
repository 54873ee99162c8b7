package endpoints

import (
	"github.com/doodlesbykumbi/directory-sync/pkg/server"
)

// RegisterAll registers all API endpoints on the server
func RegisterAll(srv *server.Server) {
	RegisterStatusEndpoints(srv)
	RegisterWhoamiEndpoint(srv)
	RegisterSyncEndpoints(srv)
	RegisterDirectoryEndpoints(srv)
}
