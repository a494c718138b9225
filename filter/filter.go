package filter

import (
	"strings"

	studyshelf "github.com/tmuthoni/studyshelf"
)

// All is the sentinel value a criterion can hold to mean "no filtering on
// this dimension".
const All = "All"

// Criteria are three independent filters combined conjunctively. An empty or
// All value makes that dimension a no-op.
type Criteria struct {
	Search  string
	Subject string
	Teacher string
}

// Apply derives the filtered view of materials: search, then subject, then
// teacher. The source slice is never mutated.
func Apply(materials []studyshelf.Material, c Criteria) []studyshelf.Material {
	out := make([]studyshelf.Material, 0, len(materials))
	for _, m := range materials {
		if !matchesSearch(m, c.Search) {
			continue
		}
		if !matches(m.SubjectName, c.Subject) {
			continue
		}
		if !matches(m.TeacherName, c.Teacher) {
			continue
		}
		out = append(out, m)
	}

	return out
}

func matchesSearch(m studyshelf.Material, search string) bool {
	if inactive(search) {
		return true
	}

	return contains(m.Title, search) || contains(m.Description, search) || contains(m.SubjectName, search) || contains(m.TeacherName, search)
}

func matches(value, criterion string) bool {
	if inactive(criterion) {
		return true
	}

	return contains(value, criterion)
}

func inactive(criterion string) bool {
	trimmed := strings.TrimSpace(criterion)
	return trimmed == "" || strings.EqualFold(trimmed, All)
}

// contains is the symmetric, case-insensitive, whitespace-trimmed substring
// match: either operand containing the other counts, so partially or
// differently formatted names still line up.
func contains(value, criterion string) bool {
	v := strings.ToLower(strings.TrimSpace(value))
	c := strings.ToLower(strings.TrimSpace(criterion))
	if v == "" || c == "" {
		return v == c
	}

	return strings.Contains(v, c) || strings.Contains(c, v)
}
