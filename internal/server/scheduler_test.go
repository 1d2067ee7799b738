package server

import (
	"testing"
	"time"

	"github.com/bricksage/bricksage/internal/ingest"
	"github.com/bricksage/bricksage/internal/source"
	"github.com/bricksage/bricksage/internal/store"
)

func TestIsDue(t *testing.T) {
	hourAgo := time.Now().Add(-time.Hour)
	twoDaysAgo := time.Now().Add(-48 * time.Hour)
	cases := []struct {
		name string
		cron string
		last *time.Time
		want bool
	}{
		{"daily never ran", "@daily", nil, true},
		{"daily ran recently", "@daily", &hourAgo, false},
		{"daily ran two days ago", "@daily", &twoDaysAgo, true},
		{"hourly ran an hour ago", "@hourly", &hourAgo, true},
		{"cron expression due", "0 3 * * *", &twoDaysAgo, true},
		{"invalid cron falls back to daily", "not-a-cron", &hourAgo, false},
		{"invalid cron never ran", "not-a-cron", nil, true},
	}
	for _, tc := range cases {
		if got := isDue(tc.cron, tc.last); got != tc.want {
			t.Errorf("%s: isDue(%q) = %v, want %v", tc.name, tc.cron, got, tc.want)
		}
	}
}

func TestSchedulerTickRunsIngest(t *testing.T) {
	st := newFakeIngestStore()
	runner, err := ingest.NewRunner(ingest.Config{},
		[]source.Adapter{source.NewCurated("curated_test", curatedItems("S1"))},
		st, nil, quiet)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	s := &Scheduler{Runner: runner, Cron: "@daily", Logger: quiet}

	s.tick()

	st.mu.Lock()
	defer st.mu.Unlock()
	if len(st.records) != 1 {
		t.Fatalf("expected 1 record after tick, got %d", len(st.records))
	}
	var finished bool
	for _, run := range st.runs {
		if run.Status == store.RunStatusSucceeded {
			finished = true
		}
	}
	if !finished {
		t.Fatal("expected a finished run row")
	}
}
