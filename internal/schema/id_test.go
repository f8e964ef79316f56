package schema

import (
	"encoding/json"
	"testing"
)

func TestNormalizeID(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"int", 5, "5"},
		{"int64", int64(5), "5"},
		{"string", "5", "5"},
		{"string with fraction", "5.0", "5"},
		{"float64", float64(5), "5"},
		{"float64 with fraction", 5.0, "5"},
		{"json.Number", json.Number("42"), "42"},
		{"json.Number with fraction", json.Number("42.0"), "42"},
		{"nil", nil, ""},
		{"uuid-style string", "a1b2c3", "a1b2c3"},
		{"only first dot truncates", "12.34.56", "12"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeID(tt.in); got != tt.want {
				t.Errorf("NormalizeID(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestRemoteSongValidate(t *testing.T) {
	song := &RemoteSong{ID: 7, Title: "Night Drive"}
	if err := song.Validate(); err != nil {
		t.Errorf("valid song rejected: %v", err)
	}

	song = &RemoteSong{Title: "No ID"}
	if err := song.Validate(); err == nil {
		t.Error("expected error for missing id")
	}

	song = &RemoteSong{ID: "9"}
	if err := song.Validate(); err == nil {
		t.Error("expected error for missing title")
	}
}

func TestRemoteSongSetDefaults(t *testing.T) {
	song := &RemoteSong{ID: 1, Title: "Untagged"}
	song.SetDefaults()
	if song.Author != "Unknown" {
		t.Errorf("expected default author, got %q", song.Author)
	}

	song = &RemoteSong{ID: 2, Title: "Tagged", Author: "Mori"}
	song.SetDefaults()
	if song.Author != "Mori" {
		t.Errorf("default overwrote author: %q", song.Author)
	}
}

func TestLinkID(t *testing.T) {
	if got := LinkID("10", "42"); got != "10_42" {
		t.Errorf("LinkID = %q, want 10_42", got)
	}
}
