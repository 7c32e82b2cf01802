package discord

import (
	"context"
	"strings"
	"testing"
)

func TestSplitMessage_Short(t *testing.T) {
	chunks := splitMessage("hello", 2000)
	if len(chunks) != 1 || chunks[0] != "hello" {
		t.Errorf("splitMessage() = %v, want [hello]", chunks)
	}
}

func TestSplitMessage_RespectsLimit(t *testing.T) {
	text := strings.Repeat("a", 4500)
	chunks := splitMessage(text, 2000)

	if len(chunks) != 3 {
		t.Fatalf("splitMessage() = %d chunks, want 3", len(chunks))
	}
	total := 0
	for i, c := range chunks {
		if len(c) > 2000 {
			t.Errorf("chunk %d length = %d, want <= 2000", i, len(c))
		}
		total += len(c)
	}
	if total != 4500 {
		t.Errorf("total length = %d, want 4500 (no content lost)", total)
	}
}

func TestSplitMessage_PrefersNewlines(t *testing.T) {
	text := strings.Repeat("x", 1500) + "\n" + strings.Repeat("y", 1000)
	chunks := splitMessage(text, 2000)

	if len(chunks) != 2 {
		t.Fatalf("splitMessage() = %d chunks, want 2", len(chunks))
	}
	if !strings.HasSuffix(chunks[0], "\n") {
		t.Error("first chunk does not end at the newline boundary")
	}
	if chunks[1] != strings.Repeat("y", 1000) {
		t.Error("second chunk does not start after the newline")
	}
}

func TestContains(t *testing.T) {
	if !contains([]string{"a", "b"}, "b") {
		t.Error("contains() = false, want true")
	}
	if contains(nil, "a") {
		t.Error("contains() = true for empty list, want false")
	}
}

func TestConnect_RequiresToken(t *testing.T) {
	d := New(Config{}, nil)
	if err := d.Connect(context.Background()); err == nil {
		t.Error("Connect() error = nil without token, want error")
	}
}
