package orchestrator

import (
	"sync"

	"github.com/sprintlabs/orchestrator/internal/config"
)

// ModeOverride is a per-project decision-mode configuration set by
// POST /orchestrate/intelligence/project/{project_id}/decision-mode
// (spec §6.1). It takes effect on the next orchestration for that
// project_id only; it never touches the process-wide Config.
type ModeOverride struct {
	Mode                           config.IntelligenceMode
	ConfidenceThreshold            float64
	EnableTaskCountAdjustment      bool
	EnableSprintDurationAdjustment bool
}

// modeOverrideStore holds at most one override per project_id.
type modeOverrideStore struct {
	mu        sync.RWMutex
	overrides map[string]ModeOverride
}

func newModeOverrideStore() *modeOverrideStore {
	return &modeOverrideStore{overrides: make(map[string]ModeOverride)}
}

// Set installs or replaces projectID's override.
func (s *modeOverrideStore) Set(projectID string, o ModeOverride) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides[projectID] = o
}

// Get returns projectID's override, if any.
func (s *modeOverrideStore) Get(projectID string) (ModeOverride, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.overrides[projectID]
	return o, ok
}
