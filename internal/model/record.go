package model

import (
	"sort"
	"time"
)

// Record status constants. The set is open: callbacks may report other
// values and they are stored verbatim.
const (
	StatusCreating     = "creating"
	StatusProvisioning = "provisioning"
	StatusReady        = "ready"
	StatusError        = "error"

	// StatusLog marks a progress ping. It appends to the log without
	// changing the lifecycle status.
	StatusLog = "log"
)

// MaxLogEntries bounds Record.Logs; older entries are evicted first.
const MaxLogEntries = 40

// LogEntry is a single progress message reported by a worker.
type LogEntry struct {
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Record is the observed lifecycle state of one worker, keyed by its
// repository full name.
type Record struct {
	Repo        string     `json:"repo"`
	Status      string     `json:"status"`
	RemoteLink  string     `json:"remote_link,omitempty"`
	TokenHint   string     `json:"token_hint,omitempty"`
	RequestedAt *time.Time `json:"requested_at,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
	Logs        []LogEntry `json:"logs,omitempty"`
	Error       string     `json:"error,omitempty"`

	// CallbackSecret is only present in stores written by older releases
	// that persisted the secret. It is never used for verification and is
	// stripped from every read projection.
	CallbackSecret string `json:"callback_secret,omitempty"`
}

// PublicRecord is the operator-visible projection of a Record.
type PublicRecord struct {
	Repo        string     `json:"repo"`
	Status      string     `json:"status"`
	RemoteLink  string     `json:"remote_link,omitempty"`
	TokenHint   string     `json:"token_hint,omitempty"`
	RequestedAt *time.Time `json:"requested_at,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
	Logs        []LogEntry `json:"logs"`
	Error       string     `json:"error,omitempty"`
}

// NewRecord returns an empty record for repo.
func NewRecord(repo string) *Record {
	return &Record{Repo: repo}
}

// AppendLog appends message to the record log and trims it to the most
// recent MaxLogEntries entries. Empty messages are ignored.
func (r *Record) AppendLog(message string, at time.Time) {
	if message == "" {
		return
	}
	r.Logs = append(r.Logs, LogEntry{Message: message, At: at})
	if n := len(r.Logs); n > MaxLogEntries {
		trimmed := make([]LogEntry, MaxLogEntries)
		copy(trimmed, r.Logs[n-MaxLogEntries:])
		r.Logs = trimmed
	}
}

// Fail moves the record into the error state. A failed worker must not
// advertise its old endpoint, so the remote link is cleared.
func (r *Record) Fail(message string) {
	r.Status = StatusError
	r.Error = message
	r.RemoteLink = ""
}

// Public returns the sanitized projection of r.
func (r *Record) Public() PublicRecord {
	logs := make([]LogEntry, len(r.Logs))
	copy(logs, r.Logs)
	return PublicRecord{
		Repo:        r.Repo,
		Status:      r.Status,
		RemoteLink:  r.RemoteLink,
		TokenHint:   r.TokenHint,
		RequestedAt: r.RequestedAt,
		UpdatedAt:   r.UpdatedAt,
		Logs:        logs,
		Error:       r.Error,
	}
}

// InferStatus resolves the status a callback leaves the record in. A log
// ping keeps the prior status (creating for a new record). Otherwise an
// explicit status wins, then a published link means ready, then the prior
// status is kept, then creating.
func InferStatus(prior, supplied string, hasLink bool) string {
	switch {
	case supplied == StatusLog && prior != "":
		return prior
	case supplied == StatusLog:
		return StatusCreating
	case supplied != "":
		return supplied
	case hasLink:
		return StatusReady
	case prior != "":
		return prior
	default:
		return StatusCreating
	}
}

// SortByUpdated orders records most recently updated first, then by repo.
// Records without an update time sort last.
func SortByUpdated(records []PublicRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i].UpdatedAt, records[j].UpdatedAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		case a.Equal(*b):
			return records[i].Repo < records[j].Repo
		default:
			return a.After(*b)
		}
	})
}
