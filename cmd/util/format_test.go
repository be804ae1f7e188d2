package util

import (
	"testing"

	"github.com/ValentinKolb/dCDT/lib/cdt"
)

func TestFormatValue(t *testing.T) {
	testCases := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, "null"},
		{"int", int64(-3), "-3"},
		{"float", 1.5, "1.5"},
		{"bool", true, "true"},
		{"string", `a"b`, `"a\"b"`},
		{"bytes", []byte{1, 2}, `b"AQI="`},
		{"list", []any{int64(1), "x", nil}, `[1, "x", null]`},
		{"ordered list", cdt.OrderedList{int64(1), int64(2)}, "[1, 2]"},
		{"map", cdt.Map{{Key: "a", Value: []any{int64(1)}}, {Key: int64(2), Value: "b"}}, `{"a": [1], 2: "b"}`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := FormatValue(tc.in); got != tc.want {
				t.Errorf("FormatValue() = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestWrapString(t *testing.T) {
	got := WrapString("one two three four five six seven eight nine ten eleven twelve")
	for _, line := range splitLines(got) {
		if len(line) > Wrap {
			t.Errorf("line %q longer than %d", line, Wrap)
		}
	}
	if WrapString("") != "" {
		t.Errorf("WrapString(\"\") = %q, want empty", WrapString(""))
	}
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := range s {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	return append(lines, s[start:])
}
