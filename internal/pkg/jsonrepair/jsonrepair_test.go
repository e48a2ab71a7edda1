package jsonrepair

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCleanJSON(t *testing.T) {
	obj, err := Parse(`{"calories": 2200, "protein": 176, "meals": [{"name": "Breakfast"}]}`)
	require.NoError(t, err)
	assert.Equal(t, float64(2200), obj["calories"])
	assert.Equal(t, float64(176), obj["protein"])
}

func TestParseRoundTrip(t *testing.T) {
	original := map[string]interface{}{
		"monday": map[string]interface{}{
			"rest":      false,
			"focus":     []interface{}{"Chest", "Triceps"},
			"intensity": "high",
		},
		"tuesday": map[string]interface{}{
			"rest":      true,
			"focus":     []interface{}{"Rest", "Recovery"},
			"intensity": "rest",
		},
	}
	data, err := json.Marshal(original)
	require.NoError(t, err)

	parsed, err := Parse(string(data))
	require.NoError(t, err)
	assert.Equal(t, original, parsed)
}

func TestParseWithMarkdownFences(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"json fence", "```json\n{\"a\": 1}\n```"},
		{"bare fence", "```\n{\"a\": 1}\n```"},
		{"fence with prose", "Here is your plan:\n```json\n{\"a\": 1}\n```\nEnjoy!"},
		{"unterminated fence", "```json\n{\"a\": 1}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, float64(1), obj["a"])
		})
	}
}

func TestParseWithSurroundingProse(t *testing.T) {
	obj, err := Parse(`Sure! Here is the split you asked for: {"monday": {"rest": true}} Hope that helps.`)
	require.NoError(t, err)
	assert.Contains(t, obj, "monday")
}

func TestParseLexicalRepairs(t *testing.T) {
	tests := []struct {
		name  string
		input string
		key   string
	}{
		{"trailing comma", `{"a": 1,}`, "a"},
		{"trailing comma in array", `{"a": [1, 2,]}`, "a"},
		{"bare keys", `{a: 1}`, "a"},
		{"single quoted", `{'a': 'hello'}`, "a"},
		{"double commas", `{"a": 1,, "b": 2}`, "b"},
		{"empty value", `{"a": , "b": 2}`, "b"},
		{"control chars", "{\"a\": \x01 1}", "a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Contains(t, obj, tt.key)
		})
	}
}

func TestParseStructuralRepairs(t *testing.T) {
	t.Run("missing comma between object and key", func(t *testing.T) {
		obj, err := Parse("{\"a\": {\"x\": 1}\n\"b\": 2}")
		require.NoError(t, err)
		assert.Contains(t, obj, "a")
		assert.Contains(t, obj, "b")
	})
	t.Run("missing comma between string values", func(t *testing.T) {
		obj, err := Parse("{\"a\": \"one\"\n\"b\": \"two\"}")
		require.NoError(t, err)
		assert.Contains(t, obj, "b")
	})
	t.Run("raw newline inside string", func(t *testing.T) {
		obj, err := Parse("{\"a\": \"line one\nline two\"}")
		require.NoError(t, err)
		assert.Equal(t, "line one\nline two", obj["a"])
	})
}

func TestParseTruncated(t *testing.T) {
	full := `{"days": [{"day": "monday", "kcal": 2200}, {"day": "tuesday", "kcal": 2100}], "protein": 176}`

	t.Run("mid array object", func(t *testing.T) {
		obj, err := Parse(`{"days": [{"day": "monday", "kcal": 2200}, {"day": "tu`)
		require.NoError(t, err)
		assert.Contains(t, obj, "days")
	})

	t.Run("mid string", func(t *testing.T) {
		obj, err := Parse(`{"reason": "Heavy chest day fuels`)
		require.NoError(t, err)
		assert.Contains(t, obj, "reason")
	})

	t.Run("mid key", func(t *testing.T) {
		obj, err := Parse(`{"a": 1, "prot`)
		require.NoError(t, err)
		assert.Equal(t, float64(1), obj["a"])
	})

	t.Run("every truncation point parses or errors", func(t *testing.T) {
		for k := 21; k < len(full); k++ {
			obj, err := Parse(full[:k])
			if err != nil {
				assert.Contains(t, err.Error(), "JSON_PARSE_ERROR")
				continue
			}
			// A successful recovery must still be an object.
			assert.NotNil(t, obj)
		}
	})
}

func TestParseNoJSON(t *testing.T) {
	_, err := Parse("I am sorry, I cannot help with that request.")
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "JSON_PARSE_ERROR"))
}

func TestStripFencesIdempotent(t *testing.T) {
	input := "```json\n{\"a\": 1}\n```"
	once := StripFences(input)
	assert.Equal(t, once, StripFences(once))
}

func TestLexicalFixesIdempotent(t *testing.T) {
	input := `{a: 1, 'b': 'two',}`
	once := LexicalFixes(input)
	assert.Equal(t, once, LexicalFixes(once))
}

func TestExtractBalanced(t *testing.T) {
	assert.Equal(t, `{"a": {"b": 1}}`, Extract(`prefix {"a": {"b": 1}} suffix`))
	assert.Equal(t, `{"open": [1, 2`, Extract(`text {"open": [1, 2`))
	assert.Equal(t, "", Extract("no braces here"))
}

func TestExtractIgnoresBracesInStrings(t *testing.T) {
	input := `{"a": "value with } brace", "b": 2}`
	assert.Equal(t, input, Extract(input))
}

func TestRecoverTruncatedClosesInStackOrder(t *testing.T) {
	recovered := RecoverTruncated(`{"a": [{"b": 1`)
	var obj map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(recovered), &obj))
}
