// Package file provides file-based persistence for flows and sessions.
// It stores each record as a JSON document and is intended for development
// and tests rather than production traffic.
package file

import (
	"context"
	"os"
	"strings"

	"github.com/relayhq/chatflow/pkg/persistence"
)

// Persistence implements the persistence.Persistence interface on the file system.
type Persistence struct {
	root        string
	flowRepo    *FlowRepository
	sessionRepo *SessionRepository
}

// NewPersistence creates a file persistence rooted at the given directory.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:        cleanRoot,
		flowRepo:    NewFlowRepository(cleanRoot),
		sessionRepo: NewSessionRepository(cleanRoot),
	}
}

// FlowRepository returns the flow repository implementation.
func (fp *Persistence) FlowRepository() persistence.FlowRepository {
	return fp.flowRepo
}

// SessionRepository returns the session repository implementation.
func (fp *Persistence) SessionRepository() persistence.SessionRepository {
	return fp.sessionRepo
}

// HealthCheck verifies the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// Close performs any necessary cleanup; nothing to do for files.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}
