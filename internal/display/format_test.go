package display

import (
	"testing"
	"time"
)

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		name  string
		bytes int64
		want  string
	}{
		{"zero", 0, "0 B"},
		{"small bytes", 512, "512 B"},
		{"exactly 1 KiB", 1024, "1.0 KiB"},
		{"1.5 KiB", 1536, "1.5 KiB"},
		{"1 MiB", 1024 * 1024, "1.0 MiB"},
		{"typical preview 48 KiB", 49152, "48.0 KiB"},
		{"1 GiB", 1024 * 1024 * 1024, "1.0 GiB"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatBytes(tt.bytes)
			if got != tt.want {
				t.Errorf("FormatBytes(%d) = %q, want %q", tt.bytes, got, tt.want)
			}
		})
	}
}

func TestFormatElapsed(t *testing.T) {
	tests := []struct {
		name string
		d    time.Duration
		want string
	}{
		{"milliseconds", 250 * time.Millisecond, "250ms"},
		{"seconds", 2500 * time.Millisecond, "2.5s"},
		{"minutes", 125 * time.Second, "2m05s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatElapsed(tt.d); got != tt.want {
				t.Errorf("FormatElapsed(%v) = %q, want %q", tt.d, got, tt.want)
			}
		})
	}
}

func TestFormatRatio(t *testing.T) {
	tests := []struct {
		done, total int
		want        string
	}{
		{3, 4, "3/4 (75%)"},
		{0, 0, "0/0 (100%)"},
		{5, 5, "5/5 (100%)"},
	}
	for _, tt := range tests {
		if got := FormatRatio(tt.done, tt.total); got != tt.want {
			t.Errorf("FormatRatio(%d, %d) = %q, want %q", tt.done, tt.total, got, tt.want)
		}
	}
}
