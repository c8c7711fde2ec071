package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/seantiz/capsule/internal/model"
	"github.com/seantiz/capsule/internal/secret"
	"github.com/seantiz/capsule/internal/store"
)

const (
	// defaultErrorMessage is recorded when a worker reports an error
	// without saying what went wrong.
	defaultErrorMessage = "worker reported an error"

	dispatchedMessage = "Workflow dispatched"
)

// tokenPrefixes lists the accepted provisioning credential formats.
var tokenPrefixes = []string{"ghp_", "github_pat_"}

// Callback is an inbound status report from a worker. Empty fields are
// treated as absent.
type Callback struct {
	Repo        string
	Secret      string
	Status      string
	RemoteLink  string
	TokenHint   string
	RequestedAt string
	LogEntry    string
}

// Registration describes a provisioning request about to be dispatched.
type Registration struct {
	Owner string
	Token string
}

// Registered is what the provisioning trigger embeds into the new worker.
type Registered struct {
	Repo           string
	CallbackSecret string
	TokenHint      string
	RequestedAt    time.Time
}

// Service implements the ingest and query operations over a record store.
type Service struct {
	store   *store.BestEffort
	deriver *secret.Deriver
	broker  *Broker
	logger  *slog.Logger
	now     func() time.Time
}

// NewService creates a Service over s, authenticating callbacks with d.
func NewService(s *store.BestEffort, d *secret.Deriver, logger *slog.Logger) *Service {
	return &Service{
		store:   s,
		deriver: d,
		broker:  NewBroker(),
		logger:  logger,
		now:     time.Now,
	}
}

// Broker returns the live log broker for stream subscriptions.
func (s *Service) Broker() *Broker {
	return s.broker
}

// Ingest authenticates cb and applies it to the worker's record, creating
// the record if this is the first callback seen for it.
func (s *Service) Ingest(ctx context.Context, cb Callback) error {
	if cb.Repo == "" || cb.Secret == "" {
		return s.reject(outcomeBadRequest, fmt.Errorf("%w: missing repo or callback_secret", ErrBadRequest))
	}
	if !s.deriver.Verify(cb.Repo, cb.Secret) {
		s.logger.Warn("callback rejected", "repo", cb.Repo, "reason", "secret mismatch")
		return s.reject(outcomeForbidden, ErrForbidden)
	}

	var requestedAt *time.Time
	if cb.RequestedAt != "" {
		t, err := time.Parse(time.RFC3339, cb.RequestedAt)
		if err != nil {
			return s.reject(outcomeBadRequest, fmt.Errorf("%w: invalid requested_at", ErrBadRequest))
		}
		t = t.UTC()
		requestedAt = &t
	}
	if cb.RemoteLink != "" && !validRemoteLink(cb.RemoteLink) {
		return s.reject(outcomeBadRequest, fmt.Errorf("%w: invalid remote_link", ErrBadRequest))
	}

	records := s.store.Load(ctx)
	rec, ok := records[cb.Repo]
	if !ok {
		rec = model.NewRecord(cb.Repo)
		records[cb.Repo] = rec
	}

	now := s.now().UTC()
	if cb.RemoteLink != "" {
		rec.RemoteLink = cb.RemoteLink
	}
	rec.Status = model.InferStatus(rec.Status, cb.Status, rec.RemoteLink != "")
	rec.UpdatedAt = &now
	if cb.TokenHint != "" && rec.TokenHint == "" {
		rec.TokenHint = cb.TokenHint
	}
	if requestedAt != nil && rec.RequestedAt == nil {
		rec.RequestedAt = requestedAt
	}
	rec.AppendLog(cb.LogEntry, now)

	if rec.Status == model.StatusError {
		msg := rec.Error
		if cb.Status == model.StatusError && cb.LogEntry != "" {
			msg = cb.LogEntry
		}
		if msg == "" {
			msg = defaultErrorMessage
		}
		rec.Fail(msg)
	} else {
		rec.Error = ""
	}

	s.store.Save(ctx, records)
	callbacksTotal.WithLabelValues(outcomeAccepted).Inc()
	s.logger.Info("callback accepted",
		"repo", rec.Repo,
		"status", rec.Status,
		"created", !ok,
		"has_link", rec.RemoteLink != "",
	)

	if cb.LogEntry != "" {
		s.broker.Publish(rec.Repo, cb.LogEntry)
	}
	if rec.Status == model.StatusError {
		s.broker.Close(rec.Repo)
	}
	return nil
}

// List returns every record, sanitized, most recently updated first.
func (s *Service) List(ctx context.Context) []model.PublicRecord {
	records := s.store.Load(ctx)
	recordsGauge.Set(float64(len(records)))

	out := make([]model.PublicRecord, 0, len(records))
	for _, r := range records {
		out = append(out, r.Public())
	}
	model.SortByUpdated(out)
	return out
}

// Get returns the sanitized record for repo.
func (s *Service) Get(ctx context.Context, repo string) (model.PublicRecord, error) {
	rec, ok := s.store.Load(ctx)[repo]
	if !ok {
		return model.PublicRecord{}, fmt.Errorf("%w: %s", ErrNotFound, repo)
	}
	return rec.Public(), nil
}

// Remove deletes the record for repo.
func (s *Service) Remove(ctx context.Context, repo string) error {
	records := s.store.Load(ctx)
	if _, ok := records[repo]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, repo)
	}
	delete(records, repo)
	s.store.Save(ctx, records)
	s.broker.Close(repo)

	s.logger.Info("record removed", "repo", repo)
	return nil
}

// Reset deletes every record unconditionally and returns how many there were.
func (s *Service) Reset(ctx context.Context) int {
	n := len(s.store.Load(ctx))
	s.store.Save(ctx, store.Records{})
	s.broker.CloseAll()

	s.logger.Warn("record store reset", "removed", n)
	return n
}

// Register records a pending worker for a provisioning request and returns
// the identity and secret the worker needs for its callbacks. The worker
// name is generated here so a caller cannot obtain the secret of an
// existing worker.
func (s *Service) Register(ctx context.Context, reg Registration) (Registered, error) {
	owner := strings.TrimSpace(reg.Owner)
	if owner == "" || strings.ContainsAny(owner, "/ \t\r\n") {
		return Registered{}, fmt.Errorf("%w: invalid owner", ErrBadRequest)
	}
	if reg.Token == "" {
		return Registered{}, fmt.Errorf("%w: missing github_token", ErrBadRequest)
	}
	if !hasTokenPrefix(reg.Token) {
		return Registered{}, fmt.Errorf("%w: invalid GitHub token format", ErrBadRequest)
	}

	now := s.now().UTC()
	repo := owner + "/" + model.NewWorkerName()
	rec := &model.Record{
		Repo:        repo,
		Status:      model.StatusCreating,
		TokenHint:   secret.MaskToken(reg.Token),
		RequestedAt: &now,
		UpdatedAt:   &now,
	}
	rec.AppendLog(dispatchedMessage, now)

	records := s.store.Load(ctx)
	records[repo] = rec
	s.store.Save(ctx, records)

	s.logger.Info("worker registered", "repo", repo, "token_hint", rec.TokenHint)
	return Registered{
		Repo:           repo,
		CallbackSecret: s.deriver.Derive(repo),
		TokenHint:      rec.TokenHint,
		RequestedAt:    now,
	}, nil
}

// MarkError moves an existing record into the error state, for failures the
// worker cannot report itself, such as a dispatch that never started.
func (s *Service) MarkError(ctx context.Context, repo, message string) error {
	if message == "" {
		message = defaultErrorMessage
	}
	records := s.store.Load(ctx)
	rec, ok := records[repo]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, repo)
	}

	now := s.now().UTC()
	rec.Fail(message)
	rec.UpdatedAt = &now
	rec.AppendLog("❌ "+message, now)
	s.store.Save(ctx, records)
	s.broker.Close(repo)

	s.logger.Warn("record marked failed", "repo", repo, "error", message)
	return nil
}

// Secret returns the callback secret for repo.
func (s *Service) Secret(repo string) string {
	return s.deriver.Derive(repo)
}

func (s *Service) reject(outcome string, err error) error {
	callbacksTotal.WithLabelValues(outcome).Inc()
	return err
}

// validRemoteLink reports whether link is an absolute http or https URL.
func validRemoteLink(link string) bool {
	u, err := url.Parse(link)
	if err != nil || u.Host == "" {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return true
	default:
		return false
	}
}

func hasTokenPrefix(token string) bool {
	for _, p := range tokenPrefixes {
		if strings.HasPrefix(token, p) {
			return true
		}
	}
	return false
}
