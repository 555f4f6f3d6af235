package model

import (
	"testing"
	"time"
)

func TestProjectSnapshotValid(t *testing.T) {
	tests := []struct {
		name string
		snap ProjectSnapshot
		want bool
	}{
		{
			name: "negative unassigned tasks invalid",
			snap: ProjectSnapshot{UnassignedTasks: -1},
			want: false,
		},
		{
			name: "active sprint present with zero count invalid",
			snap: ProjectSnapshot{CurrentActiveSprint: &ActiveSprint{SprintID: "S1"}, ActiveSprintsCount: 0},
			want: false,
		},
		{
			name: "active sprint present with positive count is valid",
			snap: ProjectSnapshot{CurrentActiveSprint: &ActiveSprint{SprintID: "S1"}, ActiveSprintsCount: 1},
			want: true,
		},
		{
			name: "no active sprint is valid",
			snap: ProjectSnapshot{UnassignedTasks: 0},
			want: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.snap.Valid(); got != tt.want {
				t.Fatalf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStrategySuccessRate(t *testing.T) {
	tests := []struct {
		name         string
		strategy     Strategy
		wantRate     float64
		wantOK       bool
	}{
		{name: "zero applications", strategy: Strategy{TimesApplied: 0, SuccessCount: 0}, wantRate: 0, wantOK: false},
		{name: "all successes", strategy: Strategy{TimesApplied: 4, SuccessCount: 4}, wantRate: 1, wantOK: true},
		{name: "half successes", strategy: Strategy{TimesApplied: 4, SuccessCount: 2}, wantRate: 0.5, wantOK: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rate, ok := tt.strategy.SuccessRate()
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && rate != tt.wantRate {
				t.Fatalf("rate = %v, want %v", rate, tt.wantRate)
			}
		})
	}
}

func TestEpisodeEligibleForBackfill(t *testing.T) {
	sprintID := "S1"
	tests := []struct {
		name string
		ep   Episode
		want bool
	}{
		{name: "no sprint id", ep: Episode{}, want: false},
		{name: "sprint id, no outcome", ep: Episode{SprintID: &sprintID}, want: true},
		{name: "sprint id, with outcome", ep: Episode{SprintID: &sprintID, Outcome: &Outcome{SprintCompleted: true}}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ep.EligibleForBackfill(); got != tt.want {
				t.Fatalf("EligibleForBackfill() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIntelligenceAdjustmentsEmptyAndCount(t *testing.T) {
	empty := IntelligenceAdjustments{}
	if !empty.Empty() {
		t.Fatal("expected empty adjustments to report Empty()")
	}
	if empty.Count() != 0 {
		t.Fatalf("expected count 0, got %d", empty.Count())
	}

	withTaskMod := IntelligenceAdjustments{TaskCountModification: &Adjustment[int]{Applied: 6}}
	if withTaskMod.Empty() {
		t.Fatal("expected non-empty adjustments")
	}
	if withTaskMod.Count() != 1 {
		t.Fatalf("expected count 1, got %d", withTaskMod.Count())
	}
}

func TestWorkingMemorySessionExpired(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	session := WorkingMemorySession{CreatedAt: now.Add(-time.Hour), ExpiresAt: now.Add(-time.Minute)}
	if !session.Expired(now) {
		t.Fatal("expected session to be expired")
	}
	session.ExpiresAt = now.Add(time.Minute)
	if session.Expired(now) {
		t.Fatal("expected session to not be expired")
	}
}
