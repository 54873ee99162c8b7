// Package gorm provides GORM-based implementations of the store interfaces
// defined in the parent store package.
//
// Lookups by external identifier run as a single IN query. Saves write the
// record columns with associations omitted, then replace only the join
// tables whose relationship was overwritten during reconciliation.
package gorm
