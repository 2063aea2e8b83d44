package supervisor

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Choice is one valid answer to an interactive prompt.
type Choice struct {
	Key   string
	Label string
}

// ParseChoice matches input against the enumerated keys (case-insensitive,
// surrounding whitespace ignored). Anything outside the enumeration is
// ErrInvalidInput; there is no re-prompt.
func ParseChoice(input string, choices []Choice) (int, error) {
	trimmed := strings.ToLower(strings.TrimSpace(input))
	for i, c := range choices {
		if trimmed == strings.ToLower(c.Key) {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %q", ErrInvalidInput, strings.TrimSpace(input))
}

// promptChoice prints the choices and reads a single answer from in.
func promptChoice(in io.Reader, out io.Writer, title string, choices []Choice) (int, error) {
	fmt.Fprintln(out, title)
	for _, c := range choices {
		fmt.Fprintf(out, "  [%s] %s\n", c.Key, c.Label)
	}
	fmt.Fprint(out, "> ")

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return -1, fmt.Errorf("%w: no input", ErrInvalidInput)
	}
	return ParseChoice(line, choices)
}

var modeChoices = []Choice{
	{Key: "1", Label: "dashboard only"},
	{Key: "2", Label: "worker only"},
	{Key: "3", Label: "worker + dashboard"},
}

// PromptMode asks the operator which launch mode to run.
func PromptMode(in io.Reader, out io.Writer) (Mode, error) {
	idx, err := promptChoice(in, out, "Select launch mode:", modeChoices)
	if err != nil {
		return 0, err
	}
	return []Mode{ModeMonitorOnly, ModeWorkerOnly, ModeBoth}[idx], nil
}

var staleChoices = []Choice{
	{Key: "k", Label: "terminate the running worker and continue"},
	{Key: "a", Label: "abort this launch"},
}

// PromptStaleInstance asks what to do about an already-running worker.
// Returns true to terminate-and-continue, false to abort.
func PromptStaleInstance(in io.Reader, out io.Writer, pid int) (bool, error) {
	title := fmt.Sprintf("A worker instance is already running (pid %d):", pid)
	idx, err := promptChoice(in, out, title, staleChoices)
	if err != nil {
		return false, err
	}
	return idx == 0, nil
}
