// Package server provides the HTTP API of directory sync.
//
// The server uses gorilla/mux for routing, gorilla/handlers for access logs
// and panic recovery, and an HS256 bearer token middleware. Endpoints are
// registered by the endpoints subpackage:
//
//	srv := server.NewServer(app, "0.0.0.0", "8080")
//	endpoints.RegisterAll(srv)
//	if err := srv.Start(); err != nil {
//	    log.Fatal(err)
//	}
//
// Registered endpoints:
//
//   - GET /status - version, directory connection, database health, models
//   - GET /metrics - Prometheus metrics
//   - POST /sync/{model} - reconcile a model, optionally narrowed by params
//   - POST /sync/{model}/{external_id} - fully sync one record
//   - GET /directory/{model} - search the directory with local field names
//   - GET /whoami - subject of the bearer token
//
// Everything except /status and /metrics requires a bearer token when a
// token secret is configured.
package server
