package research

import (
	"regexp"
	"strings"

	"github.com/fpang/ugc-factory/internal/pipeline"
)

// Extraction caps. Bounding the lists keeps downstream prompt sizes sane no
// matter how much a search provider rambles.
const (
	maxItemsPerSection   = 20
	maxLanguagePatterns  = 25
	maxTransformationArm = 10
	maxQuoteLen          = 100
	minQuoteLen          = 5
)

// Evidence is the sectioned output of the free-text extractor: what a search
// provider's prose yielded once sliced into research categories. All lists
// are best-effort and capped.
type Evidence struct {
	PainPoints       []string                `json:"painPoints,omitempty"`
	Praises          []string                `json:"praises,omitempty"`
	Questions        []string                `json:"questions,omitempty"`
	Objections       []string                `json:"objections,omitempty"`
	LanguagePatterns []string                `json:"languagePatterns,omitempty"`
	PurchaseTriggers []string                `json:"purchaseTriggers,omitempty"`
	CustomerProfiles []string                `json:"customerProfiles,omitempty"`
	Transformation   pipeline.Transformation `json:"transformation,omitempty"`
	// Raw preserves the provider's full prose for later synthesis steps.
	Raw string `json:"-"`
}

// Empty reports whether extraction found nothing usable.
func (e *Evidence) Empty() bool {
	return len(e.PainPoints) == 0 && len(e.Praises) == 0 && len(e.Objections) == 0 &&
		len(e.LanguagePatterns) == 0 && len(e.PurchaseTriggers) == 0 &&
		len(e.Questions) == 0 && len(e.CustomerProfiles) == 0 &&
		len(e.Transformation.Before) == 0 && len(e.Transformation.After) == 0
}

var (
	bulletRe = regexp.MustCompile(`^(?:[-•*]|\d+[.)])\s*(.+)`)
	quoteRe  = regexp.MustCompile(`"([^"]+)"|'([^']+)'|\x{201c}([^\x{201d}]+)\x{201d}`)
)

// ExtractEvidence slices unstructured research prose into sectioned lists.
//
// This is a heuristic, not a parser: section headers are detected by
// case-insensitive keyword match, list items by bullet/number markers within
// the current section, and quoted substrings (5-100 chars) are harvested
// anywhere in the document as candidate customer phrasing. Text that follows
// none of those conventions is ignored, which is acceptable because every
// caller treats the result as partial evidence, never as ground truth.
func ExtractEvidence(content string) *Evidence {
	ev := &Evidence{Raw: content}

	var currentList *[]string
	inTransformation := false
	transformationArm := ""

	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		lower := strings.ToLower(trimmed)

		switch {
		case containsAny(lower, "pain point", "frustrat", "complaint"):
			currentList, inTransformation = &ev.PainPoints, false
		case containsAny(lower, "love", "praise", "positive", "five-star", "5-star"):
			currentList, inTransformation = &ev.Praises, false
		case containsAny(lower, "question", "ask"):
			currentList, inTransformation = &ev.Questions, false
		case containsAny(lower, "objection", "hesitat", "concern", "negative"):
			currentList, inTransformation = &ev.Objections, false
		case containsAny(lower, "language", "phrase", "pattern"):
			currentList, inTransformation = &ev.LanguagePatterns, false
		case containsAny(lower, "trigger", "decision", "made them buy"):
			currentList, inTransformation = &ev.PurchaseTriggers, false
		case containsAny(lower, "who is", "customer", "profile", "demographic"):
			currentList, inTransformation = &ev.CustomerProfiles, false
		case strings.Contains(lower, "before") && strings.Contains(lower, "after"):
			currentList, inTransformation, transformationArm = nil, true, "before"
		case inTransformation && strings.Contains(lower, "after"):
			transformationArm = "after"
		}

		if m := bulletRe.FindStringSubmatch(trimmed); m != nil {
			item := strings.TrimSpace(m[1])
			if len(item) > minQuoteLen {
				switch {
				case inTransformation && transformationArm == "before":
					appendCapped(&ev.Transformation.Before, item, maxTransformationArm)
				case inTransformation && transformationArm == "after":
					appendCapped(&ev.Transformation.After, item, maxTransformationArm)
				case currentList == &ev.LanguagePatterns:
					appendCapped(currentList, item, maxLanguagePatterns)
				case currentList != nil:
					appendCapped(currentList, item, maxItemsPerSection)
				}
			}
		}

		// Quoted text anywhere in a recognized section doubles as a candidate
		// language pattern.
		if currentList != nil || inTransformation {
			for _, q := range extractLineQuotes(trimmed) {
				if !contains(ev.LanguagePatterns, q) {
					appendCapped(&ev.LanguagePatterns, q, maxLanguagePatterns)
				}
			}
		}
	}

	return ev
}

// ExtractQuotes harvests every quoted substring between 5 and 100 characters
// from the document, de-duplicated in encounter order.
func ExtractQuotes(content string, limit int) []string {
	var quotes []string
	seen := make(map[string]struct{})
	for _, m := range quoteRe.FindAllStringSubmatch(content, -1) {
		q := firstGroup(m)
		if len(q) < minQuoteLen || len(q) > maxQuoteLen {
			continue
		}
		if _, dup := seen[q]; dup {
			continue
		}
		seen[q] = struct{}{}
		quotes = append(quotes, q)
		if limit > 0 && len(quotes) >= limit {
			break
		}
	}
	return quotes
}

// ExtractList pulls the bulleted items that follow the first line containing
// keyword, stopping at a markdown header or at the first blank line after
// items were found.
func ExtractList(content, keyword string) []string {
	var items []string
	inSection := false
	for _, line := range strings.Split(content, "\n") {
		if !inSection {
			if strings.Contains(strings.ToLower(line), keyword) {
				inSection = true
			}
			continue
		}
		if m := bulletRe.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			if item := strings.TrimSpace(m[1]); len(item) > 3 {
				items = append(items, item)
			}
		}
		if strings.HasPrefix(line, "#") || (strings.TrimSpace(line) == "" && len(items) > 0) {
			break
		}
	}
	return items
}

// ExtractParagraph returns the first substantive line within three lines of a
// line containing keyword.
func ExtractParagraph(content, keyword string) string {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		if !strings.Contains(strings.ToLower(line), keyword) {
			continue
		}
		for j := i + 1; j < len(lines) && j <= i+3; j++ {
			text := strings.TrimSpace(lines[j])
			if len(text) > 30 && !strings.HasPrefix(text, "-") && !strings.HasPrefix(text, "#") {
				return text
			}
		}
	}
	return ""
}

// ExtractAvatar builds a best-effort customer persona from narrative prose.
// Absent details fall back to neutral placeholders so downstream prompt
// builders always have a complete persona to interpolate.
func ExtractAvatar(content, targetAudience string) *pipeline.Avatar {
	avatar := &pipeline.Avatar{
		Demographics: map[string]string{
			"name":       fallback(extractPattern(content, nameRe), "Sarah"),
			"age":        fallback(extractPattern(content, ageRe), "32"),
			"location":   fallback(extractPattern(content, locationRe), "suburban area"),
			"income":     fallback(extractPattern(content, incomeRe), "middle income"),
			"occupation": fallback(extractPattern(content, occupationRe), "working professional"),
		},
		Psychographics: map[string][]string{
			"values":       ExtractList(content, "values"),
			"fears":        ExtractList(content, "fears"),
			"aspirations":  firstNonEmpty(ExtractList(content, "aspirations"), ExtractList(content, "goals")),
			"frustrations": ExtractList(content, "frustrations"),
		},
		Problem: map[string]string{
			"experience":  fallback(ExtractParagraph(content, "problem"), ExtractParagraph(content, "struggle")),
			"worstMoment": ExtractParagraph(content, "worst"),
		},
		BuyingJourney: map[string]string{
			"trigger":   ExtractParagraph(content, "trigger"),
			"convinced": fallback(ExtractParagraph(content, "convinced"), ExtractParagraph(content, "buy")),
		},
		Language: map[string][]string{
			"problemDescriptions": firstNonEmpty(ExtractList(content, "describe"), ExtractList(content, "language")),
			"resonantPhrases":     ExtractQuotes(content, 15),
			"searchTerms":         ExtractList(content, "search"),
		},
		DayInLife: fallback(ExtractParagraph(content, "day"), ExtractParagraph(content, "typical")),
	}
	if targetAudience != "" {
		avatar.Demographics["audience"] = targetAudience
	}
	return avatar
}

var (
	nameRe       = regexp.MustCompile(`(?i)name[d]?\s*[:is]*\s*["']?([A-Z][a-z]+)`)
	ageRe        = regexp.MustCompile(`(?i)(\d{2})\s*(?:years?\s*old|yo|-year)`)
	locationRe   = regexp.MustCompile(`(?i)(?:lives?\s+in|from|located\s+in)\s+([^.,\n]+)`)
	incomeRe     = regexp.MustCompile(`(?i)(?:income|earns?|makes?)\s*[:of]*\s*\$?([\d,k]+)`)
	occupationRe = regexp.MustCompile(`(?i)(?:works?\s+as|occupation|job)\s*[:is]*\s*([^.,\n]+)`)
)

func extractPattern(content string, re *regexp.Regexp) string {
	if m := re.FindStringSubmatch(content); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

func extractLineQuotes(line string) []string {
	var out []string
	for _, m := range quoteRe.FindAllStringSubmatch(line, -1) {
		q := firstGroup(m)
		if len(q) > minQuoteLen && len(q) <= maxQuoteLen {
			out = append(out, q)
		}
	}
	return out
}

func firstGroup(m []string) string {
	for _, g := range m[1:] {
		if g != "" {
			return g
		}
	}
	return ""
}

func appendCapped(list *[]string, item string, limit int) {
	if len(*list) < limit {
		*list = append(*list, item)
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func fallback(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

func firstNonEmpty(lists ...[]string) []string {
	for _, l := range lists {
		if len(l) > 0 {
			return l
		}
	}
	return nil
}
