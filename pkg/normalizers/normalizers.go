// Package normalizers provides text normalization helpers used by the
// extraction and merge layers. Normalizers are registered by name so
// chains can be assembled from configuration.
package normalizers

import (
	"strings"
	"sync"
	"unicode"
)

// Normalizer transforms a raw string into a canonical form.
type Normalizer func(string) string

var (
	registryMu sync.RWMutex
	registry   = map[string]Normalizer{}
)

// Register adds a named normalizer. Registering an existing name replaces it.
func Register(name string, fn Normalizer) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = fn
}

// Get returns the named normalizer, or nil when unknown.
func Get(name string) Normalizer {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return registry[name]
}

// Apply runs the named normalizer against the value. Unknown names return
// the value unchanged.
func Apply(name, value string) string {
	fn := Get(name)
	if fn == nil {
		return value
	}
	return fn(value)
}

// ApplyChain runs each named normalizer in order.
func ApplyChain(value string, names ...string) string {
	for _, name := range names {
		value = Apply(name, value)
	}
	return value
}

func init() {
	Register("lowercase", strings.ToLower)
	Register("trim", strings.TrimSpace)
	Register("digits_only", DigitsOnly)
	Register("collapse_whitespace", CollapseWhitespace)
	Register("name", NormalizeName)
	Register("postal_code", NormalizePostalCode)
}

// DigitsOnly strips every non-digit rune.
func DigitsOnly(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// CollapseWhitespace trims the value and folds runs of whitespace into a
// single space.
func CollapseWhitespace(value string) string {
	return strings.Join(strings.Fields(value), " ")
}

// NormalizeName collapses whitespace and strips punctuation hanging off
// each token. Letter case and script (Latin or Cyrillic) are preserved.
func NormalizeName(value string) string {
	tokens := strings.Fields(value)
	cleaned := make([]string, 0, len(tokens))
	for _, token := range tokens {
		token = strings.TrimFunc(token, func(r rune) bool {
			return unicode.IsPunct(r) || unicode.IsSymbol(r)
		})
		if token != "" {
			cleaned = append(cleaned, token)
		}
	}
	return strings.Join(cleaned, " ")
}

// NormalizePostalCode strips a leading country prefix ("MD-" or "MD") and
// whitespace, leaving the numeric portion.
func NormalizePostalCode(value string) string {
	value = strings.TrimSpace(value)
	upper := strings.ToUpper(value)
	if strings.HasPrefix(upper, "MD-") {
		value = value[3:]
	} else if strings.HasPrefix(upper, "MD") {
		value = value[2:]
	}
	return strings.TrimSpace(value)
}
