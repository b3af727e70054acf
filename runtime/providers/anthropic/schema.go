package anthropic

import (
	"bytes"
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// MaxRepairRetries bounds how many times schema-constrained mode will
// re-prompt the model after a validation failure, per spec §4.1.
const MaxRepairRetries = 2

// maxScanWindow bounds brace-balanced candidate scanning: texts longer
// than this are scanned from a head window and a tail window rather than
// in full, per spec §4.1 step 4.
const maxScanWindow = 65536

// truncatedOutputBudget bounds how much of a failed attempt's output is
// echoed back into the retry prompt.
const truncatedOutputBudget = 8192

// SystemInstructionForSchema builds the system-segment instruction issued
// alongside a schema-constrained request.
func SystemInstructionForSchema(schemaJSON string) string {
	return fmt.Sprintf("Respond with JSON only. It must strictly match this schema: %s", schemaJSON)
}

// RetryPromptForValidationFailure builds the follow-up user message
// appended to the input when a repair attempt fails, truncating the
// previous output to truncatedOutputBudget UTF-8-safe bytes.
func RetryPromptForValidationFailure(previousOutput string, validationErr error) string {
	truncated := previousOutput
	note := ""
	if len(truncated) > truncatedOutputBudget {
		truncated = truncateUTF8Safe(truncated, truncatedOutputBudget)
		note = "\n[truncated]"
	}
	return fmt.Sprintf("Your previous response did not match the required schema: %v\n\nPrevious output:\n%s%s\n\nRespond again with JSON only, strictly matching the schema.", validationErr, truncated, note)
}

// ValidateAgainstSchema compiles schemaJSON and validates text as JSON
// against it, returning a descriptive error on failure.
func ValidateAgainstSchema(schemaJSON, text string) error {
	var doc any
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return fmt.Errorf("not valid JSON: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	schemaDoc, err := jsonschema.UnmarshalJSON(bytes.NewReader([]byte(schemaJSON)))
	if err != nil {
		return fmt.Errorf("invalid schema: %w", err)
	}
	const resourceName = "schema.json"
	if err := compiler.AddResource(resourceName, schemaDoc); err != nil {
		return fmt.Errorf("invalid schema: %w", err)
	}
	schema, err := compiler.Compile(resourceName)
	if err != nil {
		return fmt.Errorf("invalid schema: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return err
	}
	return nil
}

// ExtractSchemaMatchingJSON implements spec §4.1 step 4: if text fully
// parses and validates, it is returned canonically serialized unchanged.
// Otherwise a brace-balanced scan looks for the earliest JSON object
// candidate in text that validates against schemaJSON. For texts over
// maxScanWindow bytes, only a head window and a tail window are scanned
// (UTF-8 boundary-adjusted), still preferring the earliest match overall.
//
// Returns the normalized JSON and true, or "", false if no candidate
// validates.
func ExtractSchemaMatchingJSON(schemaJSON, text string) (string, bool) {
	if normalized, ok := canonicalIfValid(schemaJSON, text); ok {
		return normalized, true
	}

	windows := scanWindows(text)
	for _, w := range windows {
		for _, candidate := range braceBalancedCandidates(w) {
			if normalized, ok := canonicalIfValid(schemaJSON, candidate); ok {
				return normalized, true
			}
		}
	}
	return "", false
}

func canonicalIfValid(schemaJSON, candidate string) (string, bool) {
	if err := ValidateAgainstSchema(schemaJSON, candidate); err != nil {
		return "", false
	}
	var doc any
	if err := json.Unmarshal([]byte(candidate), &doc); err != nil {
		return "", false
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return "", false
	}
	return string(b), true
}

// scanWindows returns the substrings of text to scan for brace-balanced
// candidates, in priority order (earliest match anywhere in the returned
// windows wins, so the head window is listed before the tail window and
// candidates are still compared by their position within text overall via
// the caller's "earliest valid" rule applied per window in sequence).
func scanWindows(text string) []string {
	if len(text) <= maxScanWindow {
		return []string{text}
	}
	head := utf8SafePrefix(text, maxScanWindow)
	tail := utf8SafeSuffix(text, maxScanWindow)
	return []string{head, tail}
}

// braceBalancedCandidates scans s left to right for substrings that begin
// at a top-level '{' and end at its matching balanced '}', respecting
// string/escape state so braces inside string literals are not counted.
// Candidates are returned in the order their opening brace appears.
func braceBalancedCandidates(s string) []string {
	var candidates []string
	inString := false
	escaped := false
	depth := 0
	start := -1

	for i, r := range s {
		if inString {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			}
			continue
		}
		switch r {
		case '"':
			inString = true
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 && start >= 0 {
					candidates = append(candidates, s[start:i+1])
					start = -1
				}
			}
		}
	}
	return candidates
}

func truncateUTF8Safe(s string, maxBytes int) string {
	return utf8SafePrefix(s, maxBytes)
}

func utf8SafePrefix(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func utf8SafeSuffix(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	start := len(s) - maxBytes
	for start < len(s) && !utf8.RuneStart(s[start]) {
		start++
	}
	return s[start:]
}
