package scraper

import "testing"

func TestParseNumber(t *testing.T) {
	cases := []struct {
		in   string
		want *float64
	}{
		{"1,234,567", f(1234567)},
		{" 99.5 ", f(99.5)},
		{"-123.45", f(-123.45)},
		{"--", nil},
		{"---", nil},
		{"N/A", nil},
		{"", nil},
		{"abc", nil},
	}
	for _, c := range cases {
		got := parseNumber(c.in)
		if (got == nil) != (c.want == nil) {
			t.Errorf("parseNumber(%q): got %v, want %v", c.in, got, c.want)
			continue
		}
		if got != nil && *got != *c.want {
			t.Errorf("parseNumber(%q): got %v, want %v", c.in, *got, *c.want)
		}
	}
}

func TestDateConversions(t *testing.T) {
	if got := rocToISO("113/10/01"); got != "2024-10-01" {
		t.Errorf("rocToISO: got %q", got)
	}
	if got := rocToISO("114/1/2"); got != "2025-01-02" {
		t.Errorf("rocToISO single digit: got %q", got)
	}
	if got := rocToISO("bad"); got != "" {
		t.Errorf("rocToISO invalid: got %q", got)
	}
	if got := isoToCompact("2024-10-01"); got != "20241001" {
		t.Errorf("isoToCompact: got %q", got)
	}
	if got := isoToROC("2024-10-01"); got != "113/10/01" {
		t.Errorf("isoToROC: got %q", got)
	}
	if got := isoToSlash("2024-10-01"); got != "2024/10/01" {
		t.Errorf("isoToSlash: got %q", got)
	}
}

func TestRocOrIsoDate(t *testing.T) {
	if got := rocOrIsoDate("2024/10/01"); got != "2024-10-01" {
		t.Errorf("western: got %q", got)
	}
	if got := rocOrIsoDate("113/10/01"); got != "2024-10-01" {
		t.Errorf("roc: got %q", got)
	}
	if got := rocOrIsoDate("20241001"); got != "20241001" {
		t.Errorf("passthrough: got %q", got)
	}
}

func TestSumDiffNumbers(t *testing.T) {
	if got := sumNumbers(f(3), f(4)); got == nil || *got != 7 {
		t.Errorf("sum: got %v", got)
	}
	if got := sumNumbers(nil, f(4)); got == nil || *got != 4 {
		t.Errorf("sum nil lhs: got %v", got)
	}
	if got := sumNumbers(nil, nil); got != nil {
		t.Errorf("sum both nil: got %v", *got)
	}
	if got := diffNumbers(f(10), f(4)); got == nil || *got != 6 {
		t.Errorf("diff: got %v", got)
	}
	if got := diffNumbers(f(10), nil); got != nil {
		t.Errorf("diff nil rhs: got %v", *got)
	}
}

func f(v float64) *float64 {
	return &v
}
