package models

import (
	"testing"
	"time"
)

func TestNormalizeCityKey(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "already normalized", input: "berlin", want: "berlin"},
		{name: "mixed case", input: "Berlin", want: "berlin"},
		{name: "upper case", input: "MIAMI", want: "miami"},
		{name: "surrounding whitespace", input: "  miami ", want: "miami"},
		{name: "inner whitespace preserved", input: " New York ", want: "new york"},
		{name: "empty", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeCityKey(tt.input); got != tt.want {
				t.Errorf("NormalizeCityKey(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestFloorHour(t *testing.T) {
	tests := []struct {
		name  string
		input time.Time
		want  time.Time
	}{
		{
			name:  "sub-hour precision discarded",
			input: time.Date(2022, 7, 1, 8, 15, 42, 999, time.UTC),
			want:  time.Date(2022, 7, 1, 8, 0, 0, 0, time.UTC),
		},
		{
			name:  "already on the hour",
			input: time.Date(2022, 7, 1, 8, 0, 0, 0, time.UTC),
			want:  time.Date(2022, 7, 1, 8, 0, 0, 0, time.UTC),
		},
		{
			name:  "last minute of the hour",
			input: time.Date(2022, 7, 1, 23, 59, 59, 0, time.UTC),
			want:  time.Date(2022, 7, 1, 23, 0, 0, 0, time.UTC),
		},
		{
			// A half-hour UTC offset must floor to the wall-clock hour,
			// not to the absolute hour boundary 30 minutes away.
			name:  "half-hour offset zone",
			input: time.Date(2022, 7, 1, 8, 45, 0, 0, time.FixedZone("IST", 5*3600+1800)),
			want:  time.Date(2022, 7, 1, 8, 0, 0, 0, time.FixedZone("IST", 5*3600+1800)),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FloorHour(tt.input); !got.Equal(tt.want) {
				t.Errorf("FloorHour(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestFactRecord_Validate(t *testing.T) {
	valid := FactRecord{
		ShipmentID: 1,
		Timestamp:  time.Date(2022, 7, 1, 8, 15, 0, 0, time.UTC),
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("Validate() on valid record = %v, want nil", err)
	}

	missingID := FactRecord{Timestamp: time.Date(2022, 7, 1, 8, 15, 0, 0, time.UTC)}
	if err := missingID.Validate(); err == nil {
		t.Error("Validate() with zero shipment_id should fail")
	}

	missingTS := FactRecord{ShipmentID: 1}
	if err := missingTS.Validate(); err == nil {
		t.Error("Validate() with zero timestamp should fail")
	}
}
