package rules

import (
	"testing"
	"time"
)

func at(hour, minute int) time.Time {
	return time.Date(2025, time.March, 10, hour, minute, 0, 0, time.UTC)
}

func TestQuietWindowContains(t *testing.T) {
	tests := []struct {
		name  string
		start string
		end   string
		t     time.Time
		want  bool
	}{
		{name: "inside plain window", start: "13:00", end: "15:00", t: at(14, 0), want: true},
		{name: "start inclusive", start: "13:00", end: "15:00", t: at(13, 0), want: true},
		{name: "end exclusive", start: "13:00", end: "15:00", t: at(15, 0), want: false},
		{name: "before window", start: "13:00", end: "15:00", t: at(12, 59), want: false},
		{name: "wrap evening side", start: "23:00", end: "07:00", t: at(23, 30), want: true},
		{name: "wrap morning side", start: "23:00", end: "07:00", t: at(6, 59), want: true},
		{name: "wrap outside", start: "23:00", end: "07:00", t: at(12, 0), want: false},
		{name: "wrap end exclusive", start: "23:00", end: "07:00", t: at(7, 0), want: false},
		{name: "degenerate window disabled", start: "08:00", end: "08:00", t: at(8, 0), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := ParseQuietWindow(tt.start, tt.end)
			if err != nil {
				t.Fatalf("parse quiet window: %v", err)
			}
			if got := w.Contains(tt.t); got != tt.want {
				t.Fatalf("Contains(%v) = %v, want %v", tt.t, got, tt.want)
			}
		})
	}
}

func TestParseQuietWindowEmptyDisables(t *testing.T) {
	w, err := ParseQuietWindow("", "")
	if err != nil {
		t.Fatalf("parse empty window: %v", err)
	}
	if w.Contains(at(3, 0)) {
		t.Fatalf("empty window should never suppress")
	}
}

func TestParseQuietWindowRejectsGarbage(t *testing.T) {
	if _, err := ParseQuietWindow("25:00", "07:00"); err == nil {
		t.Fatalf("expected error for invalid clock value")
	}
}
