package audit

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

func result(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

func withError(msg, errMsg string) string {
	if errMsg != "" {
		return msg + ": " + errMsg
	}
	return msg
}

// ReconcileEvent represents a batch reconciliation run of one model
type ReconcileEvent struct {
	Model        string
	Trigger      string // "scheduler", "api", "cli", "watch"
	Params       map[string]any
	Found        int
	Created      int
	Updated      int
	DryRun       bool
	Success      bool
	ErrorMessage string
}

func (e ReconcileEvent) MessageID() string {
	return "reconcile"
}

func (e ReconcileEvent) Message() string {
	if !e.Success {
		return withError(fmt.Sprintf("%s reconciliation of %s failed", e.Trigger, e.Model), e.ErrorMessage)
	}
	msg := fmt.Sprintf("%s reconciled %d %s records (%d created, %d updated)",
		e.Trigger, e.Found, e.Model, e.Created, e.Updated)
	if e.DryRun {
		msg += " without saving"
	}
	return msg
}

func (e ReconcileEvent) Severity() Severity {
	if e.Success {
		return SeverityInfo
	}
	return SeverityError
}

func (e ReconcileEvent) Facility() int {
	return FacilityUser
}

func (e ReconcileEvent) StructuredData() map[string]map[string]string {
	sd := map[string]map[string]string{
		SDIDSync: {
			"model":   e.Model,
			"found":   strconv.Itoa(e.Found),
			"created": strconv.Itoa(e.Created),
			"updated": strconv.Itoa(e.Updated),
		},
		SDIDAction: {
			"operation": "reconcile",
			"trigger":   e.Trigger,
			"result":    result(e.Success),
		},
	}
	if len(e.Params) > 0 {
		sd[SDIDSync]["params"] = formatParams(e.Params)
	}
	if e.DryRun {
		sd[SDIDAction]["dry_run"] = "true"
	}
	return sd
}

// RecordSyncEvent represents a full sync of one record, memberships included
type RecordSyncEvent struct {
	Model        string
	ExternalID   string
	Trigger      string
	Created      bool
	Found        bool
	ClientIP     string
	Success      bool
	ErrorMessage string
}

func (e RecordSyncEvent) MessageID() string {
	return "record-sync"
}

func (e RecordSyncEvent) Message() string {
	switch {
	case !e.Success:
		return withError(fmt.Sprintf("%s sync of %s %s failed", e.Trigger, e.Model, e.ExternalID), e.ErrorMessage)
	case !e.Found:
		return fmt.Sprintf("%s %s not found in directory", e.Model, e.ExternalID)
	case e.Created:
		return fmt.Sprintf("%s created %s %s from directory", e.Trigger, e.Model, e.ExternalID)
	default:
		return fmt.Sprintf("%s updated %s %s from directory", e.Trigger, e.Model, e.ExternalID)
	}
}

func (e RecordSyncEvent) Severity() Severity {
	switch {
	case !e.Success:
		return SeverityError
	case !e.Found:
		return SeverityNotice
	default:
		return SeverityInfo
	}
}

func (e RecordSyncEvent) Facility() int {
	return FacilityUser
}

func (e RecordSyncEvent) StructuredData() map[string]map[string]string {
	sd := map[string]map[string]string{
		SDIDSync: {
			"model":       e.Model,
			"external_id": e.ExternalID,
		},
		SDIDAction: {
			"operation": "sync-record",
			"trigger":   e.Trigger,
			"result":    result(e.Success),
		},
	}
	if e.ClientIP != "" {
		sd[SDIDClient] = map[string]string{"ip": e.ClientIP}
	}
	return sd
}

// ConnectEvent represents a bind against the directory
type ConnectEvent struct {
	URL          string
	BindDN       string
	Success      bool
	ErrorMessage string
}

func (e ConnectEvent) MessageID() string {
	return "directory-bind"
}

func (e ConnectEvent) Message() string {
	if e.Success {
		return fmt.Sprintf("%s bound to %s", e.BindDN, e.URL)
	}
	return withError(fmt.Sprintf("%s failed to bind to %s", e.BindDN, e.URL), e.ErrorMessage)
}

func (e ConnectEvent) Severity() Severity {
	if e.Success {
		return SeverityInfo
	}
	return SeverityWarning
}

func (e ConnectEvent) Facility() int {
	return FacilityAuthPriv
}

func (e ConnectEvent) StructuredData() map[string]map[string]string {
	return map[string]map[string]string{
		SDIDDirectory: {
			"url":     e.URL,
			"bind_dn": e.BindDN,
		},
		SDIDAction: {
			"operation": "bind",
			"result":    result(e.Success),
		},
	}
}

func formatParams(params map[string]any) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, params[k]))
	}
	return strings.Join(parts, ",")
}
