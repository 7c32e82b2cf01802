package intent

import (
	"math"
	"testing"
)

func TestRatio_Identical(t *testing.T) {
	if got := Ratio("天气", "天气"); got != 1.0 {
		t.Errorf("Ratio() = %v, want 1.0", got)
	}
}

func TestRatio_BothEmpty(t *testing.T) {
	if got := Ratio("", ""); got != 1.0 {
		t.Errorf("Ratio() = %v, want 1.0", got)
	}
}

func TestRatio_NoOverlap(t *testing.T) {
	if got := Ratio("xyz123", "天气"); got != 0 {
		t.Errorf("Ratio() = %v, want 0", got)
	}
}

func TestRatio_PartialOverlap(t *testing.T) {
	// "群分析" is fully contained in "群分析 7": M=3, T=3+5.
	got := Ratio("群分析", "群分析 7")
	want := 0.75
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("Ratio() = %v, want %v", got, want)
	}
}

func TestRatio_Range(t *testing.T) {
	pairs := [][2]string{
		{"abc", "abd"},
		{"设置提醒", "设置"},
		{"a", ""},
		{"weather", "天气"},
		{"help", "helper"},
	}
	for _, p := range pairs {
		got := Ratio(p[0], p[1])
		if got < 0 || got > 1 {
			t.Errorf("Ratio(%q, %q) = %v, out of [0,1]", p[0], p[1], got)
		}
	}
}

func TestRatio_Symmetric(t *testing.T) {
	a, b := "设置提醒", "设置"
	if Ratio(a, b) != Ratio(b, a) {
		t.Errorf("Ratio(%q,%q) != Ratio(%q,%q)", a, b, b, a)
	}
}

func TestBestMatch_FirstTokenOnly(t *testing.T) {
	// Only "天气" is scored; the rest of the message is ignored.
	match, ok := BestMatch("天气 北京 明天", []string{"天气", "新闻"})
	if !ok {
		t.Fatal("BestMatch() ok = false, want true")
	}
	if match.Command != "天气" {
		t.Errorf("BestMatch() command = %q, want 天气", match.Command)
	}
	if match.Ratio != 1.0 {
		t.Errorf("BestMatch() ratio = %v, want 1.0", match.Ratio)
	}
}

func TestBestMatch_GroupedCommandName(t *testing.T) {
	commands := []string{"help", "群分析 7", "echo"}

	match, ok := BestMatch("群分析 帮我分析一下", commands)
	if !ok {
		t.Fatal("BestMatch() ok = false, want true")
	}
	if match.Command != "群分析 7" {
		t.Errorf("BestMatch() command = %q, want 群分析 7", match.Command)
	}
	if match.Ratio <= 0.5 {
		t.Errorf("BestMatch() ratio = %v, want > 0.5", match.Ratio)
	}
}

func TestBestMatch_GibberishScoresLow(t *testing.T) {
	match, ok := BestMatch("xyz123", []string{"天气", "帮助", "设置"})
	if !ok {
		t.Fatal("BestMatch() ok = false, want true")
	}
	if match.Ratio >= 0.5 {
		t.Errorf("BestMatch() ratio = %v, want < 0.5", match.Ratio)
	}
}

func TestBestMatch_TieKeepsFirst(t *testing.T) {
	// "abc" and "abd" both score 2/3 against "abx"; input order wins.
	match, ok := BestMatch("abx", []string{"abc", "abd"})
	if !ok {
		t.Fatal("BestMatch() ok = false, want true")
	}
	if match.Command != "abc" {
		t.Errorf("BestMatch() command = %q, want abc (first in input order)", match.Command)
	}
}

func TestBestMatch_EmptyInputs(t *testing.T) {
	cases := []struct {
		name     string
		message  string
		commands []string
	}{
		{"empty message", "", []string{"天气"}},
		{"whitespace message", "   \t ", []string{"天气"}},
		{"empty command list", "天气", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, ok := BestMatch(tc.message, tc.commands); ok {
				t.Error("BestMatch() ok = true, want false")
			}
		})
	}
}
