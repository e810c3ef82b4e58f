package models

import (
	"encoding/json"
	"testing"
)

func TestParsePriority(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		want    Priority
		wantErr bool
	}{
		{"High", PriorityHigh, false},
		{"medium", PriorityMedium, false},
		{" LOW ", PriorityLow, false},
		{"urgent", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			got, err := ParsePriority(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error for %q", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestPriority_Values(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value Priority
		valid bool
		rank  int
	}{
		{"high", PriorityHigh, true, 3},
		{"medium", PriorityMedium, true, 2},
		{"low", PriorityLow, true, 1},
		{"lowercase is not canonical", Priority("high"), false, 0},
		{"invalid", Priority("invalid"), false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.value.Valid(); got != tt.valid {
				t.Errorf("Expected Valid() %v for %s, got %v", tt.valid, tt.value, got)
			}
			if got := tt.value.Rank(); got != tt.rank {
				t.Errorf("Expected Rank() %d for %s, got %d", tt.rank, tt.value, got)
			}
		})
	}
}

func TestCyclePlan_Totals(t *testing.T) {
	t.Parallel()

	p := CyclePlan{Mode: PlanModeAuto, FocusMinutes: 25, BreakMinutes: 5, SessionCount: 4}
	if got := p.CycleMinutes(); got != 30 {
		t.Errorf("Expected cycle of 30 minutes, got %d", got)
	}
	if got := p.TotalMinutes(); got != 120 {
		t.Errorf("Expected total of 120 minutes, got %d", got)
	}
}

func TestConflictReport_NoConflictJSON(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(NoConflict())
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}
	want := `{"has_conflict":false,"conflict_type":"none","conflicting_tasks":[],"recommendation":""}`
	if string(data) != want {
		t.Errorf("Expected %s, got %s", want, data)
	}
}
