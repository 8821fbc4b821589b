package extract

import (
	"fmt"
	"strings"
)

// buildPrompt constructs the fixed instruction sent to the model for one
// message. The model must answer with a bare JSON object; everything else
// is rejected during validation.
func buildPrompt(rawText, today, timezone, defaultCurrency string) string {
	var b strings.Builder

	b.WriteString("You are a transaction parser for short purchase messages.\n\n")
	b.WriteString("Task:\n")
	b.WriteString("- Extract the single transaction described by the text below.\n")
	b.WriteString("- Output STRICT JSON only (no comments, no trailing commas, no extra text).\n")
	b.WriteString("- Output a single JSON object with exactly these fields:\n")
	b.WriteString("  - \"amount\": number (positive)\n")
	b.WriteString("  - \"currency\": string, 3-letter code, or null\n")
	b.WriteString("  - \"date_expression\": string (\"today\", \"yesterday\" or \"YYYY-MM-DD\"), or null\n")
	b.WriteString("  - \"payee\": string (merchant or counterparty), or null\n")
	b.WriteString("  - \"is_received\": boolean (true for income)\n\n")

	fmt.Fprintf(&b, "Today is %s in the user's timezone (%s).\n", today, timezone)
	fmt.Fprintf(&b, "Default currency is %s when the text names none.\n", defaultCurrency)
	b.WriteString("If the text mentions no date at all, set \"date_expression\" to null.\n")
	b.WriteString("Never invent an amount; if none is present, set \"amount\" to null.\n\n")

	b.WriteString("Return ONLY valid raw JSON.\n")
	b.WriteString("Do NOT wrap the response in code fences.\n")
	b.WriteString("Output must begin with \"{\" and end with \"}\".\n\n")

	fmt.Fprintf(&b, "Text: %s\n", rawText)

	return b.String()
}

// cleanModelJSON strips Markdown fences and surrounding junk if the model
// ignored the formatting instructions.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	// Keep only the outermost object if there is still text around it.
	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}

	return s
}
