package model

import (
	"strings"

	"github.com/oklog/ulid/v2"
)

// workerNamePrefix matches the repository names the provisioning trigger creates.
const workerNamePrefix = "vps-project-"

// NewWorkerName generates a unique, lowercase repository name for a new worker.
func NewWorkerName() string {
	return workerNamePrefix + strings.ToLower(ulid.Make().String())
}
