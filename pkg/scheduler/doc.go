// Package scheduler runs directory reconciliation for the configured models.
//
// A Scheduler owns one Job per model: the batch Runner and the RecordStore
// its records are saved to. Sync reconciles one model on demand, SyncRecord
// fully syncs one record, memberships included, and RunOnce reconciles
// every model in declaration order. Start runs RunOnce on a ticker until
// the context is cancelled or Stop is called.
//
// Every run is observed in Prometheus metrics and recorded as an audit event.
package scheduler
