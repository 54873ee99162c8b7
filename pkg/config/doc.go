// Package config provides configuration management for directory sync.
//
// Configuration is read from a YAML file and overridden by environment
// variables. Every attribute remembers where its value came from, which
// `adsyncctl configuration show` prints.
//
// # Configuration Sources
//
//   - $ADSYNC_CONFIG_PATH/adsync.yml (default /etc/adsync/config/adsync.yml)
//   - Environment variables, which win over the file
//   - Command line credentials, applied with WithCredentials
//
// # Example File
//
//	directory:
//	  url: ldaps://dc.example.com
//	  bind_dn: CN=sync,OU=Service,DC=example,DC=com
//	  base_dn: DC=example,DC=com
//	  caching: true
//	attribute_mapping:
//	  user:
//	    login: sAMAccountName
//	    email: mail
//	models:
//	  user:
//	    relationships:
//	      - {role: member_of, field: groups, target: group}
//	resolve_memberships_in_batch: true
//	sync_interval: 15m
//
// # Key Environment Variables
//
//   - ADSYNC_DIRECTORY_URL, ADSYNC_BIND_DN, ADSYNC_BIND_PASSWORD, ADSYNC_BASE_DN
//   - ADSYNC_DIRECTORY_CACHING, ADSYNC_DIRECTORY_FIXTURE
//   - ADSYNC_RESOLVE_MEMBERSHIPS_IN_BATCH, ADSYNC_SYNC_INTERVAL, ADSYNC_SYNC_MODELS
//   - ADSYNC_TOKEN_SECRET
//   - DATABASE_URL: Database connection
package config
