package scan

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/content-fixer/internal/model"
)

// authorSeparators end the name part of a testimonial author line such as
// "Maria Souza, Campinas" or "João (owner since 2019)".
var authorSeparators = []string{",", " - ", " – ", " — ", "(", "|"}

// ParseAuthorName extracts the person's name from a testimonial author line.
func ParseAuthorName(author string) string {
	name := author
	for _, sep := range authorSeparators {
		if i := strings.Index(name, sep); i >= 0 {
			name = name[:i]
		}
	}
	return strings.Join(strings.Fields(name), " ")
}

// AuthorSuffix returns whatever follows the name in an author line, including
// its separator, so a replacement name can keep the original location text.
func AuthorSuffix(author string) string {
	cut := len(author)
	for _, sep := range authorSeparators {
		if i := strings.Index(author, sep); i >= 0 && i < cut {
			cut = i
		}
	}
	return author[cut:]
}

// FoldName lowercases a name and strips diacritics so "José" and "jose"
// compare equal.
func FoldName(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}

// TestimonialCheck is the testimonial analysis of one record.
type TestimonialCheck struct {
	Authors    []model.TestimonialAuthor
	Duplicates []string
	Overused   []string
	Issues     []Issue
}

// CheckTestimonials parses every testimonial author and flags duplicate or
// overused names.
func (s *Scanner) CheckTestimonials(blocks []model.ContentBlock) TestimonialCheck {
	var chk TestimonialCheck
	counts := make(map[string]int)
	display := make(map[string]string)

	for i, b := range blocks {
		if !b.IsTestimonial() {
			continue
		}
		name := ParseAuthorName(b.Author)
		chk.Authors = append(chk.Authors, model.TestimonialAuthor{
			BlockIndex: i,
			Author:     b.Author,
			Name:       name,
			Context:    b.Context,
		})
		key := FoldName(name)
		if key == "" {
			continue
		}
		counts[key]++
		if _, ok := display[key]; !ok {
			display[key] = name
		}
	}

	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if counts[k] > 1 {
			chk.Duplicates = append(chk.Duplicates, display[k])
			chk.Issues = append(chk.Issues, Issue{
				Type:     model.CorrectionTestimonialNameFix,
				Code:     CodeDuplicateAuthor,
				Field:    "content_blocks",
				Message:  "author " + display[k] + " appears more than once",
				Priority: model.PriorityLow,
			})
		}
		if s.overused[k] {
			chk.Overused = append(chk.Overused, display[k])
			chk.Issues = append(chk.Issues, Issue{
				Type:     model.CorrectionTestimonialNameFix,
				Code:     CodeOverusedAuthor,
				Field:    "content_blocks",
				Message:  "author " + display[k] + " is on the overused name list",
				Priority: model.PriorityLow,
			})
		}
	}
	return chk
}

// Flagged reports whether the folded name of an author line is a duplicate or
// overused according to chk.
func (chk TestimonialCheck) Flagged(name string) bool {
	key := FoldName(name)
	for _, d := range chk.Duplicates {
		if FoldName(d) == key {
			return true
		}
	}
	for _, o := range chk.Overused {
		if FoldName(o) == key {
			return true
		}
	}
	return false
}
