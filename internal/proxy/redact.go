package proxy

import (
	"unicode/utf8"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Redaction limits for scan payload logging. Payloads may be megabytes;
// log records never carry more than the capped code prefix.
const (
	codePreviewLimit = 100
	truncationMarker = "... (truncated)"
)

// TruncateCode caps code at codePreviewLimit characters and appends the
// truncation marker. Code at or under the limit is returned unchanged.
func TruncateCode(code string) string {
	if utf8.RuneCountInString(code) <= codePreviewLimit {
		return code
	}

	n := 0
	for i := range code {
		if n == codePreviewLimit {
			return code[:i] + truncationMarker
		}
		n++
	}
	return code
}

// ScanLogPreview builds a redacted JSON summary of a scan request body
// for logging. Only the capped code prefix, the language, and the
// option key count survive; everything else is dropped. The body is
// never unmarshaled in full.
func ScanLogPreview(body []byte) string {
	preview := "{}"

	if code := gjson.GetBytes(body, "code"); code.Exists() {
		preview, _ = sjson.Set(preview, "code", TruncateCode(code.String()))
	}
	if lang := gjson.GetBytes(body, "language"); lang.Exists() {
		preview, _ = sjson.Set(preview, "language", lang.String())
	}
	if options := gjson.GetBytes(body, "options"); options.IsObject() {
		count := 0
		options.ForEach(func(_, _ gjson.Result) bool {
			count++
			return true
		})
		preview, _ = sjson.Set(preview, "option_count", count)
	}

	return preview
}
