package server

import (
	"strings"

	"clearminutes/internal/models"
)

// renderMinutes produces the plain-text minutes document for download.
// The layout is fixed; empty decisions and open-questions sections fall back
// to a "None recorded" bullet.
func renderMinutes(filename string, r models.Result) string {
	lines := []string{
		"# Meeting Minutes — " + filename,
		"",
		"## Overview",
		r.Overview,
		"",
		"## Key Discussion Points",
	}
	for _, p := range r.KeyPoints {
		lines = append(lines, "- "+p)
	}

	lines = append(lines, "", "## Decisions Made")
	lines = append(lines, bulletsOrNone(r.Decisions)...)

	lines = append(lines, "", "## Open Questions")
	lines = append(lines, bulletsOrNone(r.OpenQuestions)...)

	lines = append(lines, "", "## Action Items")
	for _, item := range r.ActionItems {
		line := "- [ ] " + item.Task
		if item.Assignee != "" {
			line += " — Assignee: " + item.Assignee
		}
		if item.Deadline != "" {
			line += " — Deadline: " + item.Deadline
		}
		lines = append(lines, line)
	}

	lines = append(lines, "", "---", "## Full Transcript", "", r.Transcript)
	return strings.Join(lines, "\n")
}

func bulletsOrNone(items []string) []string {
	if len(items) == 0 {
		return []string{"- None recorded"}
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, "- "+it)
	}
	return out
}
