package ui

import (
	"os"
	"strings"

	"golang.org/x/term"
)

// LogFormat decides how gate progress lines are rendered on stderr.
// It respects BOOTGATE_LOG_FORMAT ("text" or "json"); the default ("auto")
// picks text for interactive terminals and JSON otherwise, so supervisor
// and aggregator pipelines get structured lines.
func LogFormat() string {
	switch strings.TrimSpace(strings.ToLower(os.Getenv("BOOTGATE_LOG_FORMAT"))) {
	case "text":
		return "text"
	case "json":
		return "json"
	}
	if term.IsTerminal(int(os.Stderr.Fd())) {
		return "text"
	}
	return "json"
}
