package calendar

import (
	"encoding/json"
	"testing"
)

func TestParseTimeOfDay(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    TimeOfDay
		wantErr bool
	}{
		{"midnight", "00:00", TimeOfDay{0, 0}, false},
		{"afternoon", "14:00", TimeOfDay{14, 0}, false},
		{"single digit hour", "7:05", TimeOfDay{7, 5}, false},
		{"last minute", "23:59", TimeOfDay{23, 59}, false},
		{"hour out of range", "24:00", TimeOfDay{}, true},
		{"minute out of range", "12:60", TimeOfDay{}, true},
		{"short minute", "12:5", TimeOfDay{}, true},
		{"signed hour", "+1:00", TimeOfDay{}, true},
		{"seconds", "12:00:00", TimeOfDay{}, true},
		{"twelve hour form", "2:00 PM", TimeOfDay{}, true},
		{"empty", "", TimeOfDay{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseTimeOfDay(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error for %q, got %v", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestFormatDisplay(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  string
	}{
		{"00:00", "12:00 AM"},
		{"00:30", "12:30 AM"},
		{"09:05", "9:05 AM"},
		{"11:59", "11:59 AM"},
		{"12:00", "12:00 PM"},
		{"12:30", "12:30 PM"},
		{"14:00", "2:00 PM"},
		{"23:59", "11:59 PM"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			got, err := FormatDisplay(tt.input)
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}

	if _, err := FormatDisplay("25:00"); err == nil {
		t.Error("Expected error for invalid time")
	}
}

func TestTimeOfDay_Minutes(t *testing.T) {
	t.Parallel()

	if got := MustParseTimeOfDay("01:30").Minutes(); got != 90 {
		t.Errorf("Expected 90, got %d", got)
	}
	if got := MustParseTimeOfDay("23:59").Minutes(); got != MinutesPerDay-1 {
		t.Errorf("Expected %d, got %d", MinutesPerDay-1, got)
	}
}

func TestTimeOfDay_JSONAndScan(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(MustParseTimeOfDay("7:05"))
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}
	if string(data) != `"07:05"` {
		t.Errorf("Expected zero-padded time, got %s", data)
	}

	var tod TimeOfDay
	if err := json.Unmarshal([]byte(`"18:45"`), &tod); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}
	if tod != (TimeOfDay{18, 45}) {
		t.Errorf("Expected 18:45, got %v", tod)
	}

	if err := tod.Scan("08:15:00"); err != nil {
		t.Fatalf("Expected HH:mm:ss to scan, got %v", err)
	}
	if tod.String() != "08:15" {
		t.Errorf("Expected 08:15, got %s", tod)
	}
	if err := tod.Scan(nil); err == nil {
		t.Error("Expected error scanning nil into non-pointer time")
	}
}

func TestParseOptionalTime(t *testing.T) {
	t.Parallel()

	got, err := ParseOptionalTime("  ")
	if err != nil || got != nil {
		t.Errorf("Expected nil, nil for blank input, got %v, %v", got, err)
	}

	got, err = ParseOptionalTime("16:00")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got == nil || got.String() != "16:00" {
		t.Errorf("Expected 16:00, got %v", got)
	}

	if _, err := ParseOptionalTime("4pm"); err == nil {
		t.Error("Expected error for 4pm")
	}
}
