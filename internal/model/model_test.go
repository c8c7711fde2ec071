package model

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"testing"
	"time"
)

// workerName matches vps-project-<lowercase ULID>.
var workerName = regexp.MustCompile(`^vps-project-[0123456789abcdefghjkmnpqrstvwxyz]{26}$`)

func TestNewWorkerNameFormat(t *testing.T) {
	name := NewWorkerName()
	if !workerName.MatchString(name) {
		t.Errorf("NewWorkerName() = %q, does not match %s", name, workerName)
	}
}

func TestNewWorkerNameUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		name := NewWorkerName()
		if seen[name] {
			t.Fatalf("NewWorkerName() produced duplicate: %s", name)
		}
		seen[name] = true
	}
}

func TestStatusConstants(t *testing.T) {
	statuses := []struct {
		constant string
		expected string
	}{
		{StatusCreating, "creating"},
		{StatusProvisioning, "provisioning"},
		{StatusReady, "ready"},
		{StatusError, "error"},
		{StatusLog, "log"},
	}
	for _, s := range statuses {
		if s.constant != s.expected {
			t.Errorf("status constant = %q, want %q", s.constant, s.expected)
		}
	}
}

func TestInferStatus(t *testing.T) {
	tests := []struct {
		name     string
		prior    string
		supplied string
		hasLink  bool
		want     string
	}{
		{"supplied wins", StatusCreating, StatusProvisioning, false, StatusProvisioning},
		{"supplied wins over link", StatusReady, StatusError, true, StatusError},
		{"custom status kept verbatim", StatusReady, "stopped", false, "stopped"},
		{"link implies ready", StatusProvisioning, "", true, StatusReady},
		{"prior kept", StatusProvisioning, "", false, StatusProvisioning},
		{"default creating", "", "", false, StatusCreating},
		{"log ping keeps prior", StatusProvisioning, StatusLog, false, StatusProvisioning},
		{"log ping with link", StatusReady, StatusLog, true, StatusReady},
		{"log ping on fresh record", "", StatusLog, false, StatusCreating},
		{"log ping does not promote to ready", StatusProvisioning, StatusLog, true, StatusProvisioning},
		{"log ping keeps error", StatusError, StatusLog, true, StatusError},
		{"log ping with link on fresh record", "", StatusLog, true, StatusCreating},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := InferStatus(tt.prior, tt.supplied, tt.hasLink)
			if got != tt.want {
				t.Errorf("InferStatus(%q, %q, %v) = %q, want %q", tt.prior, tt.supplied, tt.hasLink, got, tt.want)
			}
		})
	}
}

func TestAppendLogBounded(t *testing.T) {
	r := NewRecord("acme/vps-1")
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 100; i++ {
		r.AppendLog(fmt.Sprintf("step %d", i), base.Add(time.Duration(i)*time.Second))
		if len(r.Logs) > MaxLogEntries {
			t.Fatalf("after %d appends len(Logs) = %d, want <= %d", i+1, len(r.Logs), MaxLogEntries)
		}
	}

	if len(r.Logs) != MaxLogEntries {
		t.Fatalf("len(Logs) = %d, want %d", len(r.Logs), MaxLogEntries)
	}
	if r.Logs[0].Message != "step 60" {
		t.Errorf("oldest retained = %q, want %q", r.Logs[0].Message, "step 60")
	}
	if r.Logs[MaxLogEntries-1].Message != "step 99" {
		t.Errorf("newest = %q, want %q", r.Logs[MaxLogEntries-1].Message, "step 99")
	}
	for i := 1; i < len(r.Logs); i++ {
		if !r.Logs[i].At.After(r.Logs[i-1].At) {
			t.Fatalf("log order broken at %d", i)
		}
	}
}

func TestAppendLogIgnoresEmpty(t *testing.T) {
	r := NewRecord("acme/vps-1")
	r.AppendLog("", time.Now())
	if len(r.Logs) != 0 {
		t.Errorf("len(Logs) = %d, want 0", len(r.Logs))
	}
}

func TestFailClearsRemoteLink(t *testing.T) {
	r := &Record{Repo: "acme/vps-1", Status: StatusReady, RemoteLink: "https://x.trycloudflare.com/vnc.html"}
	r.Fail("tunnel died")

	if r.Status != StatusError {
		t.Errorf("Status = %q, want %q", r.Status, StatusError)
	}
	if r.RemoteLink != "" {
		t.Errorf("RemoteLink = %q, want empty", r.RemoteLink)
	}
	if r.Error != "tunnel died" {
		t.Errorf("Error = %q, want %q", r.Error, "tunnel died")
	}
}

func TestPublicOmitsSecret(t *testing.T) {
	now := time.Now().UTC()
	r := &Record{
		Repo:           "acme/vps-1",
		Status:         StatusReady,
		RemoteLink:     "https://x.trycloudflare.com/vnc.html",
		UpdatedAt:      &now,
		CallbackSecret: "deadbeef",
	}
	data, err := json.Marshal(r.Public())
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if strings.Contains(string(data), "callback_secret") || strings.Contains(string(data), "deadbeef") {
		t.Errorf("public projection leaked secret: %s", data)
	}
	if !strings.Contains(string(data), `"logs":[]`) {
		t.Errorf("public projection should always carry logs: %s", data)
	}
}

func TestPublicCopiesLogs(t *testing.T) {
	r := NewRecord("acme/vps-1")
	r.AppendLog("one", time.Now())
	p := r.Public()
	p.Logs[0].Message = "changed"
	if r.Logs[0].Message != "one" {
		t.Error("mutating the projection changed the record")
	}
}

func TestSortByUpdated(t *testing.T) {
	t1 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	t3 := t2.Add(time.Hour)

	records := []PublicRecord{
		{Repo: "none-a"},
		{Repo: "old", UpdatedAt: &t1},
		{Repo: "newest", UpdatedAt: &t3},
		{Repo: "none-b"},
		{Repo: "mid", UpdatedAt: &t2},
	}
	SortByUpdated(records)

	want := []string{"newest", "mid", "old", "none-a", "none-b"}
	for i, r := range records {
		if r.Repo != want[i] {
			t.Errorf("records[%d] = %q, want %q", i, r.Repo, want[i])
		}
	}
}

func TestSortByUpdatedTieBreaksOnRepo(t *testing.T) {
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	same := at
	records := []PublicRecord{
		{Repo: "acme/c", UpdatedAt: &at},
		{Repo: "acme/a", UpdatedAt: &same},
		{Repo: "acme/b", UpdatedAt: &at},
	}
	SortByUpdated(records)

	want := []string{"acme/a", "acme/b", "acme/c"}
	for i, r := range records {
		if r.Repo != want[i] {
			t.Errorf("records[%d] = %q, want %q", i, r.Repo, want[i])
		}
	}
}
