// Package audit records directory sync activity as RFC5424 syslog lines.
//
// Events describe batch reconciliation runs, single record syncs and
// directory binds:
//
//   - ReconcileEvent: a batch run of one model (created/updated counts)
//   - RecordSyncEvent: a full sync of one record, memberships included
//   - ConnectEvent: a bind against the directory
//
// # Usage
//
//	audit.Log(audit.ReconcileEvent{Model: "user", Trigger: "scheduler", Created: 2, Success: true})
//
// Lines go to stdout. When ADSYNC_AUDIT_DATABASE_URL is set, events are also
// stored in the messages table. ADSYNC_AUDIT_ENABLED=false turns auditing off.
package audit
