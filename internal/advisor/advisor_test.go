package advisor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sprintlabs/orchestrator/internal/model"
)

func TestAdviseSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("The sprint is on track.\n\nRecommendations:\n- keep velocity steady\n- watch holiday conflicts\n\nRisk: Low\n"))
	}))
	defer srv.Close()

	a := New(srv.URL, "test-model", time.Second)
	advisory := a.Advise(context.Background(), model.ProjectSnapshot{ProjectID: "test-001"}, model.Decision{})

	if !advisory.Enabled {
		t.Fatalf("expected advisory to be enabled, got error %q", advisory.Error)
	}
	if advisory.RiskAssessment != RiskLow {
		t.Fatalf("risk_assessment = %q, want Low", advisory.RiskAssessment)
	}
	if len(advisory.Recommendations) != 2 {
		t.Fatalf("expected 2 recommendations, got %d: %v", len(advisory.Recommendations), advisory.Recommendations)
	}
}

func TestAdviseDegradesOnUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	a := New(srv.URL, "test-model", time.Second)
	advisory := a.Advise(context.Background(), model.ProjectSnapshot{}, model.Decision{})

	if advisory.Enabled {
		t.Fatalf("expected disabled advisory on upstream error")
	}
	if advisory.Error == "" {
		t.Fatalf("expected an error message recorded")
	}
}

func TestAdviseDegradesOnTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a := New(srv.URL, "test-model", 5*time.Millisecond)
	advisory := a.Advise(context.Background(), model.ProjectSnapshot{}, model.Decision{})

	if advisory.Enabled {
		t.Fatalf("expected disabled advisory on timeout")
	}
	if advisory.Error == "" {
		t.Fatalf("expected an error message recorded")
	}
}

func TestParseResponseHighRisk(t *testing.T) {
	advisory := parseResponse("Team velocity dropped sharply.\nRecommendations:\n- reduce scope\nRisk: High\n")

	if advisory.RiskAssessment != RiskHigh {
		t.Fatalf("risk_assessment = %q, want High", advisory.RiskAssessment)
	}
	if len(advisory.Recommendations) != 1 || advisory.Recommendations[0] != "reduce scope" {
		t.Fatalf("recommendations = %v, want [reduce scope]", advisory.Recommendations)
	}
}

func TestParseResponseDefaultsToLowRiskWithoutRiskLine(t *testing.T) {
	advisory := parseResponse("Everything looks fine.\n")

	if advisory.RiskAssessment != RiskLow {
		t.Fatalf("risk_assessment = %q, want Low by default", advisory.RiskAssessment)
	}
	if advisory.Summary != "Everything looks fine." {
		t.Fatalf("summary = %q", advisory.Summary)
	}
}
