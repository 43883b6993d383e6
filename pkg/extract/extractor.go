// Package extract pulls structured customer fields out of free-form chat
// text. Messages are bilingual (Romanian in Latin script, Russian in
// Cyrillic) and fields arrive in any order, so extraction works segment
// by segment with keyword and shape heuristics rather than grammar.
package extract

import (
	"math"
	"regexp"
	"strings"
	"unicode"

	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/normalizers"
	"github.com/Ramsey-B/clover/pkg/phone"
)

// Confidence weights per extracted field group.
const (
	phoneWeight   = 0.4
	nameWeight    = 0.4
	addressWeight = 0.2
)

var (
	// Segments split on newlines, commas, semicolons, and bullets.
	// Hyphens stay intact so postal codes like MD-2001 survive.
	segmentSplitter = regexp.MustCompile(`[\n,;•·]+`)

	// A run of digits possibly broken up by spaces, dashes, dots, or
	// parentheses, as people type phone numbers.
	phoneCandidate = regexp.MustCompile(`\+?\d[\d\s().-]{5,}\d`)

	// Optional MD prefix plus exactly four digits.
	postalToken = regexp.MustCompile(`^(?:[Mm][Dd]-?)?\d{4}$`)

	streetKeywords = wordSet(
		"str", "strada", "bd", "bulevardul", "bloc", "bl",
		"ap", "apartament", "sc", "scara",
		"ул", "улица", "дом", "кв", "квартира",
	)

	localityKeywords = wordSet(
		"sat", "satul", "com", "comuna", "or", "orasul", "oraș",
		"mun", "municipiul", "raion",
		"село", "деревня", "город", "пгт",
	)

	// Conversational words that disqualify a segment from being a name.
	nameStopwords = wordSet(
		"hello", "hi", "hey", "thanks", "thank", "ok", "okay", "yes", "no",
		"salut", "buna", "bună", "mersi", "multumesc", "mulțumesc", "da", "nu",
		"привет", "здравствуйте", "спасибо", "да", "нет",
	)

	nameCues = []string{
		"my name is",
		"numele meu este",
		"ma numesc",
		"mă numesc",
		"numele",
		"меня зовут",
	}
)

// Extractor turns one chat message into a ParsedMessage. Extraction never
// fails; unrecognized text simply yields zero confidence.
type Extractor struct {
	phones *phone.Normalizer
}

// NewExtractor returns an Extractor using the given phone normalizer.
func NewExtractor(phones *phone.Normalizer) *Extractor {
	if phones == nil {
		phones = phone.NewNormalizer(phone.DefaultCountryCode)
	}
	return &Extractor{phones: phones}
}

// Extract scans the message segment by segment. Within a segment, phone
// shapes are tried first, then street and postal patterns, then locality
// keywords, then name heuristics. The first hit per field wins; later
// upgrades are the merge layer's job.
func (e *Extractor) Extract(text string) models.ParsedMessage {
	parsed := models.ParsedMessage{RawMessage: text}

	for _, segment := range splitSegments(text) {
		if parsed.ContactNumber == "" {
			if number, ok := e.extractPhone(segment); ok {
				parsed.ContactNumber = number
				continue
			}
		}

		words := letterWords(segment)
		digits := containsDigit(segment)

		if parsed.Address.StreetAddress == "" && digits && hasAny(words, streetKeywords) {
			parsed.Address.StreetAddress = normalizers.CollapseWhitespace(segment)
			continue
		}

		if parsed.Address.PostalCode == "" {
			if code, ok := extractPostalCode(segment); ok {
				parsed.Address.PostalCode = code
				if !hasAny(words, localityKeywords) {
					continue
				}
			}
		}

		if parsed.Address.Location == "" && hasAny(words, localityKeywords) {
			parsed.Address.Location = normalizers.CollapseWhitespace(segment)
			continue
		}

		if parsed.FullName == "" {
			if name, ok := extractName(segment, digits); ok {
				parsed.FullName = name
			}
		}
	}

	parsed.Confidence = scoreConfidence(parsed)
	return parsed
}

func splitSegments(text string) []string {
	parts := segmentSplitter.Split(text, -1)
	segments := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			segments = append(segments, part)
		}
	}
	return segments
}

func (e *Extractor) extractPhone(segment string) (string, bool) {
	for _, candidate := range phoneCandidate.FindAllString(segment, -1) {
		if number, ok := e.phones.Normalize(candidate); ok {
			return number, true
		}
	}
	return "", false
}

func extractPostalCode(segment string) (string, bool) {
	for _, token := range strings.Fields(segment) {
		token = strings.Trim(token, ".:!?")
		if postalToken.MatchString(token) {
			return normalizers.NormalizePostalCode(token), true
		}
	}
	return "", false
}

// extractName accepts either an explicit cue ("my name is ...",
// "меня зовут ...") or a short run of capitalized tokens without digits.
func extractName(segment string, hasDigits bool) (string, bool) {
	lower := strings.ToLower(segment)
	for _, cue := range nameCues {
		if idx := strings.Index(lower, cue); idx >= 0 {
			candidate := normalizers.NormalizeName(segment[idx+len(cue):])
			if candidate != "" && !containsDigit(candidate) {
				return candidate, true
			}
		}
	}

	if hasDigits {
		return "", false
	}

	candidate := normalizers.NormalizeName(segment)
	tokens := strings.Fields(candidate)
	if len(tokens) == 0 || len(tokens) > 3 {
		return "", false
	}
	for _, token := range tokens {
		runes := []rune(token)
		if len(runes) < 2 || !unicode.IsUpper(runes[0]) {
			return "", false
		}
		if nameStopwords[strings.ToLower(token)] {
			return "", false
		}
	}
	return candidate, true
}

func scoreConfidence(parsed models.ParsedMessage) float64 {
	score := 0.0
	if parsed.ContactNumber != "" {
		score += phoneWeight
	}
	if parsed.FullName != "" {
		score += nameWeight
	}
	if !parsed.Address.IsEmpty() {
		score += addressWeight
	}
	return math.Min(score, 1.0)
}

func wordSet(words ...string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, word := range words {
		set[word] = true
	}
	return set
}

// letterWords lowercases the segment and splits it into letter-only
// tokens, so "str." and "Str" both match the keyword "str".
func letterWords(segment string) []string {
	return strings.FieldsFunc(strings.ToLower(segment), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
}

func hasAny(words []string, set map[string]bool) bool {
	for _, word := range words {
		if set[word] {
			return true
		}
	}
	return false
}

func containsDigit(value string) bool {
	return strings.ContainsAny(value, "0123456789")
}
