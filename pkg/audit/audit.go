package audit

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const saveTimeout = 5 * time.Second

// SDID constants for structured data IDs (RFC5424).
// 32473 is the private enterprise number reserved for documentation (RFC5612).
const (
	PEN            = 32473
	SDIDSync       = "sync@32473"
	SDIDDirectory  = "directory@32473"
	SDIDAction     = "action@32473"
	SDIDClient     = "client@32473"
	DefaultAppName = "adsync"
)

// Syslog facility constants
const (
	FacilityUser     = 1  // LOG_USER - user-level messages
	FacilityAuthPriv = 10 // LOG_AUTHPRIV - security/authorization messages (private)
)

// Severity levels matching syslog (RFC5424)
type Severity int

const (
	SeverityEmergency Severity = iota // 0
	SeverityAlert                     // 1
	SeverityCritical                  // 2
	SeverityError                     // 3
	SeverityWarning                   // 4
	SeverityNotice                    // 5
	SeverityInfo                      // 6
	SeverityDebug                     // 7
)

// Event represents an audit event
type Event interface {
	MessageID() string
	Message() string
	Severity() Severity
	Facility() int
	StructuredData() map[string]map[string]string
}

// Message is one audit record as written to the log and the messages table.
type Message struct {
	Facility  int                          `json:"facility"`
	Severity  Severity                     `json:"severity"`
	Timestamp time.Time                    `json:"timestamp"`
	Hostname  string                       `json:"hostname"`
	AppName   string                       `json:"appname"`
	ProcID    string                       `json:"procid"`
	MsgID     string                       `json:"msgid"`
	SData     map[string]map[string]string `json:"sdata"`
	Text      string                       `json:"message"`
}

// Priority returns the RFC5424 PRI value.
func (m Message) Priority() int {
	return m.Facility*8 + int(m.Severity)
}

// String renders the message as one RFC5424 line without the trailing newline:
// <PRI>VERSION TIMESTAMP HOSTNAME APP-NAME PROCID MSGID SD MSG
func (m Message) String() string {
	sd := formatStructuredData(m.SData)
	if sd == "" {
		sd = "-"
	}
	return fmt.Sprintf("<%d>1 %s %s %s %s %s %s %s",
		m.Priority(),
		m.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z"),
		nilValue(m.Hostname),
		nilValue(m.AppName),
		nilValue(m.ProcID),
		nilValue(m.MsgID),
		sd,
		m.Text,
	)
}

func nilValue(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// Logger writes audit events as RFC5424 lines.
type Logger struct {
	mu       sync.Mutex
	writer   io.Writer
	hostname string
	appName  string
	pid      int
	now      func() time.Time
}

// NewLogger creates an audit logger writing to stdout.
func NewLogger() *Logger {
	hostname, _ := os.Hostname()
	return &Logger{
		writer:   os.Stdout,
		hostname: hostname,
		appName:  DefaultAppName,
		pid:      os.Getpid(),
		now:      time.Now,
	}
}

// SetWriter sets the output writer for the logger
func (l *Logger) SetWriter(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.writer = w
}

// Message stamps event with the time, host and process of the logger.
func (l *Logger) Message(event Event) Message {
	return Message{
		Facility:  event.Facility(),
		Severity:  event.Severity(),
		Timestamp: l.now().UTC(),
		Hostname:  l.hostname,
		AppName:   l.appName,
		ProcID:    strconv.Itoa(l.pid),
		MsgID:     event.MessageID(),
		SData:     event.StructuredData(),
		Text:      event.Message(),
	}
}

// Log writes event and returns the message written.
func (l *Logger) Log(event Event) Message {
	msg := l.Message(event)
	line := msg.String() + "\n"

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = io.WriteString(l.writer, line)
	return msg
}

// formatStructuredData formats the structured data according to RFC5424
// Format: [sdid param1="value1" param2="value2"][sdid2 ...]
// Elements and params are sorted so lines are stable.
func formatStructuredData(sd map[string]map[string]string) string {
	if len(sd) == 0 {
		return ""
	}

	ids := make([]string, 0, len(sd))
	for sdid := range sd {
		ids = append(ids, sdid)
	}
	sort.Strings(ids)

	var b strings.Builder
	for _, sdid := range ids {
		params := sd[sdid]
		keys := make([]string, 0, len(params))
		for key := range params {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		b.WriteString("[" + sdid)
		for _, key := range keys {
			b.WriteString(" " + key + "=" + escapeSDValue(params[key]))
		}
		b.WriteString("]")
	}
	return b.String()
}

// escapeSDValue escapes special characters in structured data values per RFC5424
func escapeSDValue(value string) string {
	value = strings.ReplaceAll(value, "\\", "\\\\")
	value = strings.ReplaceAll(value, "\"", "\\\"")
	value = strings.ReplaceAll(value, "]", "\\]")
	return "\"" + value + "\""
}

// DefaultLogger receives every event passed to Log.
var DefaultLogger = NewLogger()

// DefaultStore persists events passed to Log; nil unless ADSYNC_AUDIT_DATABASE_URL is set.
var DefaultStore *Store

var (
	enabledMu        sync.RWMutex
	auditEnabled     = true
	auditEnabledOnce sync.Once
	storeInitOnce    sync.Once

	errLoggerMu sync.RWMutex
	errLogger   = zerolog.New(os.Stderr).With().Timestamp().Str("component", "audit").Logger()
)

// SetErrorLogger sets where failures to persist events are reported.
func SetErrorLogger(logger zerolog.Logger) {
	errLoggerMu.Lock()
	defer errLoggerMu.Unlock()
	errLogger = logger.With().Str("component", "audit").Logger()
}

func errorLogger() *zerolog.Logger {
	errLoggerMu.RLock()
	defer errLoggerMu.RUnlock()
	l := errLogger
	return &l
}

// IsEnabled reports whether audit logging is on. ADSYNC_AUDIT_ENABLED=false
// switches it off.
func IsEnabled() bool {
	auditEnabledOnce.Do(func() {
		if env := os.Getenv("ADSYNC_AUDIT_ENABLED"); env != "" {
			enabledMu.Lock()
			auditEnabled = env != "false" && env != "0" && env != "no"
			enabledMu.Unlock()
		}
	})
	enabledMu.RLock()
	defer enabledMu.RUnlock()
	return auditEnabled
}

// SetEnabled overrides ADSYNC_AUDIT_ENABLED.
func SetEnabled(enabled bool) {
	auditEnabledOnce.Do(func() {})
	enabledMu.Lock()
	defer enabledMu.Unlock()
	auditEnabled = enabled
}

// Log writes event to the default logger and, when configured, the audit database.
func Log(event Event) {
	if !IsEnabled() {
		return
	}
	msg := DefaultLogger.Log(event)

	storeInitOnce.Do(func() {
		var err error
		DefaultStore, err = NewStore()
		if err != nil {
			errorLogger().Error().Err(err).Msg("failed to connect to audit database")
		}
	})

	if DefaultStore != nil {
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()
		if err := DefaultStore.Save(ctx, msg); err != nil {
			errorLogger().Error().Err(err).Str("msgid", msg.MsgID).Msg("failed to save audit event")
		}
	}
}
