package errors

import (
	"fmt"
	"strings"
)

// maxCandidates caps how many near matches are printed.
const maxCandidates = 8

// FormatForCLI formats an error for CLI output.
// Uses a concise format suitable for terminal display.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}

	ae, ok := As(err)
	if !ok {
		ae = Wrap(ErrCodeInternal, err)
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Error: %s\n", ae.Message))

	if ae.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("  Hint: %s\n", ae.Suggestion))
	}

	if len(ae.Candidates) > 0 {
		sb.WriteString("  Did you mean:\n")
		for i, c := range ae.Candidates {
			if i == maxCandidates {
				sb.WriteString(fmt.Sprintf("    ... and %d more\n", len(ae.Candidates)-maxCandidates))
				break
			}
			sb.WriteString(fmt.Sprintf("    %s\n", c))
		}
	}

	sb.WriteString(fmt.Sprintf("  Code: %s\n", ae.Code))

	return sb.String()
}

// FormatForLog formats an error for structured logging.
// Returns key-value pairs suitable for slog attributes.
func FormatForLog(err error) map[string]any {
	if err == nil {
		return nil
	}

	ae, ok := As(err)
	if !ok {
		return map[string]any{
			"error": err.Error(),
		}
	}

	result := map[string]any{
		"error_code": ae.Code,
		"message":    ae.Message,
		"category":   string(ae.Category),
		"severity":   string(ae.Severity),
		"retryable":  ae.Retryable,
	}

	if ae.Cause != nil {
		result["cause"] = ae.Cause.Error()
	}

	if ae.Suggestion != "" {
		result["suggestion"] = ae.Suggestion
	}

	if len(ae.Candidates) > 0 {
		result["candidates"] = strings.Join(ae.Candidates, ",")
	}

	for k, v := range ae.Details {
		result["detail_"+k] = v
	}

	return result
}
