package phone

import "testing"

func TestParseE164(t *testing.T) {
	n, err := ParseE164("+4790000000")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 4790000000 {
		t.Errorf("expected 4790000000, got %d", n)
	}

	for _, bad := range []string{"4790000000", "+4", "+47 900 00 000", "", "+1234567890123456"} {
		if _, err := ParseE164(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestE164(t *testing.T) {
	if got := E164(4790000000); got != "+4790000000" {
		t.Errorf("expected +4790000000, got %q", got)
	}
	if got := E164(0); got != "" {
		t.Errorf("expected empty string for zero, got %q", got)
	}
}

func TestPretty(t *testing.T) {
	tests := []struct {
		number int64
		sep    string
		want   string
	}{
		{4790000000, " ", "+47 900 00 000"},
		{46700000000, "_", "+46_70_000_00_00"},
		{4722334455, " ", "+47 22 33 44 55"},
		{447700900123, " ", "+44 7700 900 123"},
		{4512345678, " ", "+45 12 34 56 78"},
		{4790000, " ", "+4790000"},
	}
	for _, tt := range tests {
		if got := Pretty(tt.number, tt.sep); got != tt.want {
			t.Errorf("Pretty(%d) = %q, want %q", tt.number, got, tt.want)
		}
	}
}

func TestPrettyDefaultSeparator(t *testing.T) {
	if got := Pretty(4790000000, NoBreakSpace); got != "+47\u00a0900\u00a000\u00a0000" {
		t.Errorf("unexpected default grouping %q", got)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{12, "12 seconds"},
		{1, "1 second"},
		{63, "1 minute and 3 seconds"},
		{120, "2 minutes and 0 seconds"},
		{119.6, "2 minutes and 0 seconds"},
		{59.5, "1 minute and 0 seconds"},
		{0.4, "0 seconds"},
		{181, "3 minutes and 1 second"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.seconds); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}
