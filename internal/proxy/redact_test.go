package proxy

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/tidwall/gjson"
)

func TestTruncateCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		code string
		want string
	}{
		{name: "empty", code: "", want: ""},
		{name: "short", code: "print(1)", want: "print(1)"},
		{
			name: "exactly at limit",
			code: strings.Repeat("x", 100),
			want: strings.Repeat("x", 100),
		},
		{
			name: "one over limit",
			code: strings.Repeat("x", 101),
			want: strings.Repeat("x", 100) + "... (truncated)",
		},
		{
			name: "multibyte runes",
			code: strings.Repeat("é", 150),
			want: strings.Repeat("é", 100) + "... (truncated)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, TruncateCode(tt.code))
		})
	}
}

// TestTruncateCode_Properties: regardless of input, the result never
// exceeds the limit plus marker, stays valid UTF-8, and preserves
// short inputs verbatim.
func TestTruncateCode_Properties(t *testing.T) {
	t.Parallel()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("output length bounded", prop.ForAll(
		func(code string) bool {
			out := TruncateCode(code)
			return utf8.RuneCountInString(out) <= 100+utf8.RuneCountInString(truncationMarker)
		},
		gen.AnyString(),
	))

	properties.Property("output is valid utf8", prop.ForAll(
		func(code string) bool {
			return utf8.ValidString(TruncateCode(code))
		},
		gen.AnyString(),
	))

	properties.Property("short input unchanged", prop.ForAll(
		func(code string) bool {
			if utf8.RuneCountInString(code) > 100 {
				return true
			}
			return TruncateCode(code) == code
		},
		gen.AnyString(),
	))

	properties.Property("long input keeps prefix and marker", prop.ForAll(
		func(code string) bool {
			if utf8.RuneCountInString(code) <= 100 {
				return true
			}
			out := TruncateCode(code)
			return strings.HasSuffix(out, truncationMarker) &&
				strings.HasPrefix(code, strings.TrimSuffix(out, truncationMarker))
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}

func TestScanLogPreview(t *testing.T) {
	t.Parallel()

	t.Run("full request", func(t *testing.T) {
		t.Parallel()

		body := `{"code":"print(1)","language":"python","options":{"deep":true,"fast":false}}`
		preview := ScanLogPreview([]byte(body))

		assert.True(t, gjson.Valid(preview))
		assert.Equal(t, "print(1)", gjson.Get(preview, "code").String())
		assert.Equal(t, "python", gjson.Get(preview, "language").String())
		assert.Equal(t, int64(2), gjson.Get(preview, "option_count").Int())
	})

	t.Run("large code is capped", func(t *testing.T) {
		t.Parallel()

		code := strings.Repeat("a", 500_000)
		body := `{"code":"` + code + `"}`
		preview := ScanLogPreview([]byte(body))

		assert.Less(t, len(preview), 300)
		assert.Contains(t, preview, "(truncated)")
	})

	t.Run("missing fields", func(t *testing.T) {
		t.Parallel()

		preview := ScanLogPreview([]byte(`{}`))
		assert.Equal(t, "{}", preview)
	})
}
