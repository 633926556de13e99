package service

import (
	"strings"
	"unicode"
)

// SegmentPolicy tunes sentence boundary detection. The exact rule is a
// heuristic, not a law: quoted dialogue and ellipses are genuinely ambiguous,
// so the knobs are kept adjustable and covered by tests.
type SegmentPolicy struct {
	MinSentenceChars int
	Abbreviations    []string
	// Quotes are the opening-quote runes that may sit between a boundary
	// and the uppercase letter starting the next sentence.
	Quotes []rune
}

func DefaultSegmentPolicy() SegmentPolicy {
	return SegmentPolicy{
		MinSentenceChars: 10,
		Abbreviations:    []string{"Mr", "Mrs", "Ms", "Dr", "Jr", "Sr", "Prof", "St", "vs", "etc"},
		Quotes:           []rune{'"', '\'', '“', '”', '‘', '’'},
	}
}

// Segmenter extracts complete, speakable sentences out of a growing text
// buffer so synthesis can start before generation finishes.
type Segmenter struct {
	minChars int
	abbrevs  map[string]struct{}
	quotes   map[rune]struct{}
}

func NewSegmenter(policy SegmentPolicy) *Segmenter {
	if policy.MinSentenceChars <= 0 {
		policy.MinSentenceChars = 10
	}
	if policy.Quotes == nil {
		policy.Quotes = DefaultSegmentPolicy().Quotes
	}
	abbrevs := make(map[string]struct{}, len(policy.Abbreviations))
	for _, a := range policy.Abbreviations {
		abbrevs[a] = struct{}{}
	}
	quotes := make(map[rune]struct{}, len(policy.Quotes))
	for _, q := range policy.Quotes {
		quotes[q] = struct{}{}
	}
	return &Segmenter{minChars: policy.MinSentenceChars, abbrevs: abbrevs, quotes: quotes}
}

// ExtractSentences splits buffer into completed sentences and the unconsumed
// remainder. A boundary is `.`, `!` or `?` followed by whitespace and then
// an uppercase letter, optionally with an opening quote in between. A period
// right after a known abbreviation is not a boundary. Candidates shorter
// than the minimum length are dropped as noise. The function is incremental:
// feed it ever-growing buffers (or the previous remainder plus new text) and
// it only ever yields new sentences.
func (s *Segmenter) ExtractSentences(buffer string) (extracted []string, remaining string) {
	runes := []rune(buffer)
	start := 0

	for i := 0; i < len(runes)-2; i++ {
		ch := runes[i]
		if ch != '.' && ch != '!' && ch != '?' {
			continue
		}
		if !unicode.IsSpace(runes[i+1]) {
			continue
		}
		next := runes[i+2]
		startsNew := unicode.IsUpper(next)
		if !startsNew && s.isQuote(next) && i+3 < len(runes) {
			startsNew = unicode.IsUpper(runes[i+3])
		}
		if !startsNew {
			continue
		}
		if ch == '.' && s.endsWithAbbreviation(runes[start:i]) {
			continue
		}
		sentence := strings.TrimSpace(string(runes[start : i+1]))
		if len(sentence) >= s.minChars {
			extracted = append(extracted, sentence)
		}
		start = i + 2
	}

	return extracted, strings.TrimLeftFunc(string(runes[start:]), unicode.IsSpace)
}

func (s *Segmenter) endsWithAbbreviation(before []rune) bool {
	end := len(before)
	begin := end
	for begin > 0 && (unicode.IsLetter(before[begin-1]) || unicode.IsDigit(before[begin-1])) {
		begin--
	}
	if begin == end {
		return false
	}
	_, ok := s.abbrevs[string(before[begin:end])]
	return ok
}

func (s *Segmenter) isQuote(r rune) bool {
	_, ok := s.quotes[r]
	return ok
}
