package media

import "testing"

func TestParseRange(t *testing.T) {
	cases := []struct {
		name       string
		header     string
		total      int64
		start, end int64
		ok         bool
	}{
		{"bounded", "bytes=0-3", 50, 0, 3, true},
		{"open ended", "bytes=10-", 50, 10, 49, true},
		{"suffix", "bytes=-5", 50, 45, 49, true},
		{"suffix larger than object", "bytes=-100", 50, 0, 49, true},
		{"end clamped to last byte", "bytes=10-100", 50, 10, 49, true},
		{"start past the object", "bytes=100-", 50, 0, 0, false},
		{"bounded past the object", "bytes=60-70", 50, 0, 0, false},
		{"no header", "", 50, 0, 0, false},
		{"wrong unit", "lines=0-3", 50, 0, 0, false},
		{"reversed", "bytes=9-3", 50, 0, 0, false},
		{"garbage", "bytes=a-b", 50, 0, 0, false},
		{"empty object", "bytes=0-0", 0, 0, 0, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			start, end, ok := parseRange(tc.header, tc.total)
			if ok != tc.ok {
				t.Fatalf("Expected ok=%v, got %v", tc.ok, ok)
			}
			if !ok {
				return
			}
			if start != tc.start || end != tc.end {
				t.Errorf("Expected [%d, %d], got [%d, %d]", tc.start, tc.end, start, end)
			}
		})
	}
}
