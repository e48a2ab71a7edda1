// Package jsonrepair extracts and parses JSON from LLM replies that may be
// wrapped in prose, malformed, or truncated mid-stream. The repair steps
// are applied in order of increasing invasiveness, each one exported as an
// independent transformation so behavior stays explainable.
package jsonrepair

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// ErrNoJSON is wrapped into parse failures where no candidate region exists.
var ErrNoJSON = fmt.Errorf("no JSON object found")

// Parse extracts and parses a JSON object from text, repairing as needed.
// The returned error message always carries the JSON_PARSE_ERROR token.
func Parse(text string) (map[string]interface{}, error) {
	candidate := Extract(StripFences(text))
	if candidate == "" {
		return nil, fmt.Errorf("JSON_PARSE_ERROR: %w", ErrNoJSON)
	}

	if obj, err := tryParse(candidate); err == nil {
		return obj, nil
	}

	lexical := LexicalFixes(candidate)
	if obj, err := tryParse(lexical); err == nil {
		return obj, nil
	}

	structural := StructuralFixes(lexical)
	if obj, err := tryParse(structural); err == nil {
		return obj, nil
	}

	recovered := RecoverTruncated(structural)
	obj, err := tryParse(recovered)
	if err != nil {
		return nil, fmt.Errorf("JSON_PARSE_ERROR: unable to repair response: %w", err)
	}
	return obj, nil
}

func tryParse(s string) (map[string]interface{}, error) {
	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return nil, err
	}
	return obj, nil
}

var fenceRe = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)\\s*```")

// StripFences removes Markdown code fences, keeping the fenced content.
func StripFences(s string) string {
	if match := fenceRe.FindStringSubmatch(s); match != nil {
		return match[1]
	}
	// An unterminated fence at end of stream: drop the opening marker.
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```JSON", "")
	s = strings.ReplaceAll(s, "```", "")
	return s
}

// Extract returns the largest brace-balanced region of s, falling back to
// the longest suffix-truncated prefix starting at the first "{".
func Extract(s string) string {
	start := strings.Index(s, "{")
	if start < 0 {
		return ""
	}

	best, regionStart := "", start
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		if depth == 0 && c != '{' {
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				if depth == 0 {
					regionStart = i
				}
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 && i+1-regionStart > len(best) {
					best = s[regionStart : i+1]
				}
			}
		}
	}
	if best != "" {
		return best
	}

	// Never balanced: hand the whole tail to the repair stack.
	return s[start:]
}

var (
	trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)
	bareKeyRe       = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)\s*:`)
	singleQuoteKeyRe = regexp.MustCompile(`'([^']*)'(\s*:)`)
	singleQuoteValRe = regexp.MustCompile(`(:\s*)'([^']*)'`)
	controlCharRe   = regexp.MustCompile("[\x00-\x08\x0b\x0c\x0e-\x1f]")
	doubleCommaRe   = regexp.MustCompile(`,\s*,`)
	emptyValueRe    = regexp.MustCompile(`:\s*([,}\]])`)
)

// LexicalFixes applies token-level repairs: trailing commas, bare keys,
// single quotes, control characters and ellipses, doubled commas, and
// empty values plugged with null.
func LexicalFixes(s string) string {
	s = controlCharRe.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "…", "")
	s = strings.ReplaceAll(s, "...", "")
	s = singleQuoteKeyRe.ReplaceAllString(s, `"$1"$2`)
	s = singleQuoteValRe.ReplaceAllString(s, `$1"$2"`)
	s = bareKeyRe.ReplaceAllString(s, `$1"$2":`)
	for doubleCommaRe.MatchString(s) {
		s = doubleCommaRe.ReplaceAllString(s, ",")
	}
	s = emptyValueRe.ReplaceAllString(s, ": null$1")
	s = trailingCommaRe.ReplaceAllString(s, "$1")
	return s
}

var (
	missingCommaObjRe  = regexp.MustCompile(`\}(\s*)"`)
	missingCommaArrRe  = regexp.MustCompile(`\](\s*)"`)
	missingCommaStrRe  = regexp.MustCompile(`"(\s*\n\s*)"`)
	missingCommaNumRe  = regexp.MustCompile(`(\d)(\s*\n\s*)"`)
	missingCommaBoolRe = regexp.MustCompile(`\b(true|false|null)(\s*\n\s*)"`)
	bareValueRe        = regexp.MustCompile(`(:\s*)([A-Za-z][A-Za-z0-9 _\-]*[A-Za-z0-9])(\s*[,}\]])`)
)

// StructuralFixes inserts missing commas between adjacent values, unescapes
// raw newlines inside strings, and quotes bare string values.
func StructuralFixes(s string) string {
	s = missingCommaObjRe.ReplaceAllString(s, `},$1"`)
	s = missingCommaArrRe.ReplaceAllString(s, `],$1"`)
	s = missingCommaStrRe.ReplaceAllString(s, `",$1"`)
	s = missingCommaNumRe.ReplaceAllString(s, `$1,$2"`)
	s = missingCommaBoolRe.ReplaceAllString(s, `$1,$2"`)
	s = escapeNewlinesInStrings(s)
	s = bareValueRe.ReplaceAllStringFunc(s, func(match string) string {
		sub := bareValueRe.FindStringSubmatch(match)
		switch sub[2] {
		case "true", "false", "null":
			return match
		}
		return sub[1] + `"` + sub[2] + `"` + sub[3]
	})
	return s
}

// escapeNewlinesInStrings converts raw newlines inside string literals to
// their escaped form.
func escapeNewlinesInStrings(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if escaped {
			b.WriteByte(c)
			escaped = false
			continue
		}
		switch c {
		case '\\':
			b.WriteByte(c)
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
			b.WriteByte(c)
		case '\n':
			if inString {
				b.WriteString(`\n`)
			} else {
				b.WriteByte(c)
			}
		case '\r':
			if inString {
				b.WriteString(`\r`)
			} else {
				b.WriteByte(c)
			}
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

var (
	danglingStringRe = regexp.MustCompile(`,\s*"[^"]*$`)
	danglingPairRe   = regexp.MustCompile(`,\s*"[^"]*"\s*:\s*[^,}\]]*$`)
	danglingObjRe    = regexp.MustCompile(`,\s*\{[^{}]*$`)
)

// RecoverTruncated repairs a response cut off mid-stream: drops trailing
// incomplete fragments, closes any open string, then appends the closers
// the open-brace/bracket count calls for.
func RecoverTruncated(s string) string {
	s = strings.TrimRight(s, " \t\n\r")

	// Drop trailing incomplete key:value, object, or string fragments.
	s = danglingPairRe.ReplaceAllString(s, "")
	s = danglingObjRe.ReplaceAllString(s, "")
	s = danglingStringRe.ReplaceAllString(s, "")
	s = strings.TrimRight(s, " \t\n\r")
	s = strings.TrimSuffix(s, ",")

	stack, inString := scanOpen(s)
	if inString {
		s += `"`
	}
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == '[' {
			s += "]"
		} else {
			s += "}"
		}
	}

	// Closing can expose new trailing commas; sweep until stable.
	for {
		fixed := trailingCommaRe.ReplaceAllString(s, "$1")
		if fixed == s {
			break
		}
		s = fixed
	}
	return s
}

// scanOpen walks the text tracking string and escape state and returns the
// stack of unclosed braces and brackets in opening order, plus whether a
// string literal is still open at end of input.
func scanOpen(s string) (stack []byte, inString bool) {
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{', '[':
			if !inString {
				stack = append(stack, c)
			}
		case '}':
			if !inString && len(stack) > 0 && stack[len(stack)-1] == '{' {
				stack = stack[:len(stack)-1]
			}
		case ']':
			if !inString && len(stack) > 0 && stack[len(stack)-1] == '[' {
				stack = stack[:len(stack)-1]
			}
		}
	}
	return stack, inString
}
