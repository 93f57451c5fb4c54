package pathutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestMonthFilePath(t *testing.T) {
	p := New("/archive")

	tests := []struct {
		input    string
		expected string
		wantErr  bool
	}{
		{"2024-07", filepath.Join("/archive", "2024", "2024-07.beancount"), false},
		{"2024-12", filepath.Join("/archive", "2024", "2024-12.beancount"), false},
		{"2024-7", "", true},
		{"2024-13", "", true},
		{"202407", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := p.MonthFilePath(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("MonthFilePath(%q) expected error, got %q", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("MonthFilePath(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.expected {
				t.Errorf("MonthFilePath(%q) = %q, expected %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestMonthFilePathFor(t *testing.T) {
	p := New("/archive")
	got := p.MonthFilePathFor(time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC))
	expected := filepath.Join("/archive", "2024", "2024-01.beancount")
	if got != expected {
		t.Errorf("MonthFilePathFor() = %q, expected %q", got, expected)
	}
}

func TestEnsureParentDirAndFileExists(t *testing.T) {
	p := New(t.TempDir())
	path, err := p.MonthFilePath("2024-07")
	if err != nil {
		t.Fatal(err)
	}

	if p.FileExists(path) {
		t.Fatal("file should not exist yet")
	}
	if err := p.EnsureParentDir(path); err != nil {
		t.Fatalf("EnsureParentDir() error: %v", err)
	}
	if !p.FileExists(p.YearDir("2024")) {
		t.Error("year directory should exist")
	}
	if err := os.WriteFile(path, []byte("; test\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if !p.FileExists(path) {
		t.Error("FileExists() = false after write")
	}
}
