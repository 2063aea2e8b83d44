package supervisor

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestParseChoice(t *testing.T) {
	choices := []Choice{{Key: "1", Label: "one"}, {Key: "2", Label: "two"}}

	idx, err := ParseChoice("1", choices)
	if err != nil || idx != 0 {
		t.Fatalf("expected index 0, got %d (%v)", idx, err)
	}
	idx, err = ParseChoice("  2  \n", choices)
	if err != nil || idx != 1 {
		t.Fatalf("whitespace should be ignored, got %d (%v)", idx, err)
	}
	if _, err := ParseChoice("3", choices); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := ParseChoice("", choices); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty input, got %v", err)
	}
}

func TestParseChoiceCaseInsensitive(t *testing.T) {
	choices := []Choice{{Key: "k", Label: "kill"}, {Key: "a", Label: "abort"}}
	idx, err := ParseChoice("K", choices)
	if err != nil || idx != 0 {
		t.Fatalf("expected case-insensitive match, got %d (%v)", idx, err)
	}
}

func TestPromptModeMapsChoices(t *testing.T) {
	cases := []struct {
		input string
		want  Mode
	}{
		{"1\n", ModeMonitorOnly},
		{"2\n", ModeWorkerOnly},
		{"3\n", ModeBoth},
	}
	for _, tc := range cases {
		var out bytes.Buffer
		mode, err := PromptMode(strings.NewReader(tc.input), &out)
		if err != nil {
			t.Fatalf("input %q: %v", tc.input, err)
		}
		if mode != tc.want {
			t.Fatalf("input %q: expected %s, got %s", tc.input, tc.want, mode)
		}
		if !strings.Contains(out.String(), "launch mode") {
			t.Fatalf("prompt text missing: %s", out.String())
		}
	}
}

func TestPromptModeInvalidIsFatal(t *testing.T) {
	if _, err := PromptMode(strings.NewReader("4\n"), new(bytes.Buffer)); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestPromptStaleInstance(t *testing.T) {
	terminate, err := PromptStaleInstance(strings.NewReader("k\n"), new(bytes.Buffer), 99)
	if err != nil || !terminate {
		t.Fatalf("expected terminate=true, got %v (%v)", terminate, err)
	}
	terminate, err = PromptStaleInstance(strings.NewReader("a\n"), new(bytes.Buffer), 99)
	if err != nil || terminate {
		t.Fatalf("expected terminate=false, got %v (%v)", terminate, err)
	}
	if _, err := PromptStaleInstance(strings.NewReader("yes please\n"), new(bytes.Buffer), 99); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
