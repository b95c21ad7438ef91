package config

import (
	"fmt"
	"strings"
)

// FormatValidationReport renders a ValidationResult as the multi-section
// report `procmond check-config` prints to stdout: a summary line
// followed by one block per severity, each issue tagged with the roster
// field (and program name, when the issue came from a specific program
// rather than the global section) it was raised against.
func FormatValidationReport(result *ValidationResult) string {
	if result.TotalIssues() == 0 {
		return "✅ roster validation passed with no issues\n"
	}

	var b strings.Builder
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, strings.Repeat("═", 67))
	fmt.Fprintln(&b, "  procmond roster validation report")
	fmt.Fprintln(&b, strings.Repeat("═", 67))
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, "  "+FormatValidationSummary(result))
	fmt.Fprintln(&b)

	writeSection(&b, "❌ ERRORS (supervisor will refuse to start)", "Fix", result.Errors)
	writeSection(&b, "⚠️  WARNINGS (roster will start, but review these)", "Recommendation", result.Warnings)
	writeSection(&b, "💡 SUGGESTIONS (optional tuning)", "Consider", result.Suggestions)

	fmt.Fprintln(&b, strings.Repeat("═", 67))
	switch {
	case result.HasErrors():
		fmt.Fprintln(&b, "  ❌ invalid: fix the errors above before running procmond serve")
	case result.HasWarnings():
		fmt.Fprintln(&b, "  ✅ valid, with warnings")
	default:
		fmt.Fprintln(&b, "  ✅ valid, with suggestions")
	}
	fmt.Fprintln(&b, strings.Repeat("═", 67))
	fmt.Fprintln(&b)

	return b.String()
}

// writeSection appends one severity block (errors/warnings/suggestions)
// to b. actionVerb labels the suggested-fix line ("Fix", "Recommendation",
// "Consider") the way each severity phrases it differently.
func writeSection(b *strings.Builder, title, actionVerb string, issues []ValidationIssue) {
	if len(issues) == 0 {
		return
	}
	fmt.Fprintln(b, title+":")
	fmt.Fprintln(b, strings.Repeat("─", 63))
	for i, issue := range issues {
		field := issue.Field
		if issue.ProgramName != "" {
			field = fmt.Sprintf("programs.%s.%s", issue.ProgramName, issue.Field)
		}
		fmt.Fprintf(b, "  %d. [%s]\n", i+1, field)
		fmt.Fprintf(b, "     %s\n", issue.Message)
		if issue.Suggestion != "" {
			fmt.Fprintf(b, "     → %s: %s\n", actionVerb, issue.Suggestion)
		}
		if i < len(issues)-1 {
			fmt.Fprintln(b)
		}
	}
	fmt.Fprintln(b)
}

// FormatValidationSummary renders a one-line issue count, used both as
// the report's own summary line and as check-config's --quiet output.
func FormatValidationSummary(result *ValidationResult) string {
	if result.TotalIssues() == 0 {
		return "✅ roster valid"
	}

	var parts []string
	if n := len(result.Errors); n > 0 {
		parts = append(parts, fmt.Sprintf("❌ %d error(s)", n))
	}
	if n := len(result.Warnings); n > 0 {
		parts = append(parts, fmt.Sprintf("⚠️  %d warning(s)", n))
	}
	if n := len(result.Suggestions); n > 0 {
		parts = append(parts, fmt.Sprintf("💡 %d suggestion(s)", n))
	}
	return strings.Join(parts, ", ")
}

// FormatValidationJSON renders a ValidationResult as the payload
// `procmond check-config --json` emits, for callers scripting roster
// validation in CI before a rollout.
func FormatValidationJSON(result *ValidationResult) map[string]interface{} {
	return map[string]interface{}{
		"passed": !result.HasErrors(),
		"summary": map[string]int{
			"errors":      len(result.Errors),
			"warnings":    len(result.Warnings),
			"suggestions": len(result.Suggestions),
			"total":       result.TotalIssues(),
		},
		"errors":      formatIssuesJSON(result.Errors),
		"warnings":    formatIssuesJSON(result.Warnings),
		"suggestions": formatIssuesJSON(result.Suggestions),
	}
}

// formatIssuesJSON converts each ValidationIssue to the string-keyed map
// shape FormatValidationJSON embeds; program is only set for issues
// raised against one roster entry rather than the global section.
func formatIssuesJSON(issues []ValidationIssue) []map[string]string {
	out := make([]map[string]string, len(issues))
	for i, issue := range issues {
		out[i] = map[string]string{
			"severity":   string(issue.Severity),
			"field":      issue.Field,
			"message":    issue.Message,
			"suggestion": issue.Suggestion,
		}
		if issue.ProgramName != "" {
			out[i]["program"] = issue.ProgramName
		}
	}
	return out
}
