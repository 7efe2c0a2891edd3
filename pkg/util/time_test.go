package util

import (
	"testing"
	"time"
)

func TestParseScheduleTime(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      string
		want    time.Time
		wantErr bool
	}{
		{
			name: "minute precision gets zero seconds",
			in:   "2026-03-01T14:30",
			want: time.Date(2026, 3, 1, 14, 30, 0, 0, time.UTC),
		},
		{
			name: "second precision",
			in:   "2026-03-01T14:30:45",
			want: time.Date(2026, 3, 1, 14, 30, 45, 0, time.UTC),
		},
		{
			name: "rfc3339 with offset normalized to utc",
			in:   "2026-03-01T14:30:00+02:00",
			want: time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC),
		},
		{
			name: "surrounding whitespace",
			in:   "  2026-03-01T14:30  ",
			want: time.Date(2026, 3, 1, 14, 30, 0, 0, time.UTC),
		},
		{name: "empty", in: "", wantErr: true},
		{name: "date only", in: "2026-03-01", wantErr: true},
		{name: "garbage", in: "next tuesday", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseScheduleTime(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseScheduleTime(%q) = %v, want error", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseScheduleTime(%q) error: %v", tt.in, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseScheduleTime(%q) = %v, want %v", tt.in, got, tt.want)
			}
			if got.Location() != time.UTC {
				t.Errorf("ParseScheduleTime(%q) location = %v, want UTC", tt.in, got.Location())
			}
		})
	}
}
