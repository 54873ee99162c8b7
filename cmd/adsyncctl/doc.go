// Command adsyncctl runs and operates the directory sync service.
//
// adsyncctl keeps local user and group records in step with a directory
// service such as Active Directory. Records are correlated with directory
// objects through an immutable external identifier (objectGUID by default)
// and attribute names are translated through the configured attribute
// mapping.
//
// # Quick Start
//
//	# Create the schema
//	adsyncctl db migrate
//
//	# Reconcile every user named alice, resolving group memberships
//	adsyncctl sync run user --attr login=alice --memberships
//
//	# Refresh a single record by its external identifier
//	adsyncctl sync record user 5f1d7a3e-0b8c-4c8e-9d0e-5a1f3b2c4d6e
//
//	# Serve the HTTP API and the periodic scheduler
//	adsyncctl server
//
// # Environment Variables
//
//   - DATABASE_URL: PostgreSQL connection string
//   - ADSYNC_CONFIG_PATH: directory holding adsync.yml (default /etc/adsync/config)
//   - ADSYNC_DIRECTORY_URL, ADSYNC_BIND_DN, ADSYNC_BIND_PASSWORD, ADSYNC_BASE_DN
//   - ADSYNC_SYNC_INTERVAL: period of scheduled reconciliation, e.g. 15m
//   - ADSYNC_TOKEN_SECRET: HS256 secret required on API requests when set
//   - ADSYNC_LOG_LEVEL: log level (debug, info, warn, error)
//   - ADSYNC_LOG_FORMAT: console or json
//   - ADSYNC_AUDIT_ENABLED, ADSYNC_AUDIT_DATABASE_URL: audit trail settings
//   - PORT: server port (default: 8000)
package main
