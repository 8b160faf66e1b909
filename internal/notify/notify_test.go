package notify

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"

	"github.com/wisbric/shiftroster/internal/engine"
)

func TestCoverageEmoji(t *testing.T) {
	tests := []struct {
		coverage float64
		want     string
	}{
		{1.0, "🟢"},
		{0.999, "🟢"},
		{0.95, "🟡"},
		{0.9, "🟡"},
		{0.5, "🔴"},
	}
	for _, tt := range tests {
		if got := coverageEmoji(tt.coverage); got != tt.want {
			t.Errorf("coverageEmoji(%v) = %q, want %q", tt.coverage, got, tt.want)
		}
	}
}

func TestRunSummaryBlocksIncludesWarningsOnlyWhenPresent(t *testing.T) {
	runID := uuid.New()
	stats := engine.Statistics{Coverage: 1.0, BalanceScore: 0.8, Violations: map[string]int{}}

	withoutWarnings := RunSummaryBlocks(runID, stats, nil)
	if len(withoutWarnings) != 2 {
		t.Fatalf("blocks without warnings = %d, want 2 (header + fields)", len(withoutWarnings))
	}

	withWarnings := RunSummaryBlocks(runID, stats, []string{"restart 1 of 3 exhausted before reaching zero violations"})
	if len(withWarnings) != 3 {
		t.Fatalf("blocks with warnings = %d, want 3 (header + fields + warnings section)", len(withWarnings))
	}
}

func TestDisabledNotifierIsNoop(t *testing.T) {
	n := NewNotifier("", "", slog.Default())
	if n.IsEnabled() {
		t.Fatal("notifier with no bot token should be disabled")
	}

	ctx := t.Context()
	if err := n.PostRunSummary(ctx, uuid.New(), &engine.Result{Statistics: engine.Statistics{}}); err != nil {
		t.Fatalf("PostRunSummary on disabled notifier: %v", err)
	}
	if err := n.PostFailure(ctx, uuid.New(), errors.New("generation failed")); err != nil {
		t.Fatalf("PostFailure on disabled notifier: %v", err)
	}
}
