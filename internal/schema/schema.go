// Package schema interprets the admin-maintained configuration table:
// a header row naming the cohort columns (branch, year, section,
// subject, teacher) followed by one row per subject, with every
// non-empty header cell after the teacher column treated as a survey
// question.
package schema

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/LuciferDinesh/student-feedback-system/internal/model"
)

// ErrNoDataRows means the configuration table has a header but no
// data rows (or is empty entirely).
var ErrNoDataRows = errors.New("configuration table has no data rows")

// ErrMissingColumns means the header row lacks one or more of the
// required cohort columns.
var ErrMissingColumns = errors.New("configuration table is missing required columns")

// ErrCohortNotFound means no configuration row matches the requested
// cohort. Callers fall back to a static default question set; this is
// a normal condition, not a misconfiguration.
var ErrCohortNotFound = errors.New("no configuration rows match cohort")

// columns holds the resolved header positions of the fixed cohort
// columns and the question texts that follow them, in header order.
type columns struct {
	branch, year, section, subject, teacher int
	questions                               []string
}

// resolveColumns locates the fixed columns by case-insensitive
// substring match on the header cells, then collects every non-empty
// header cell after the teacher column as a question column.
func resolveColumns(header []string) (columns, error) {
	c := columns{branch: -1, year: -1, section: -1, subject: -1, teacher: -1}
	for i, cell := range header {
		name := strings.ToLower(strings.TrimSpace(cell))
		switch {
		case c.branch == -1 && strings.Contains(name, "branch"):
			c.branch = i
		case c.year == -1 && strings.Contains(name, "year"):
			c.year = i
		case c.section == -1 && strings.Contains(name, "section"):
			c.section = i
		case c.subject == -1 && strings.Contains(name, "subject"):
			c.subject = i
		case c.teacher == -1 && strings.Contains(name, "teacher"):
			c.teacher = i
		}
	}

	var missing []string
	for _, col := range []struct {
		name string
		idx  int
	}{
		{"branch", c.branch},
		{"year", c.year},
		{"section", c.section},
		{"subject", c.subject},
		{"teacher", c.teacher},
	} {
		if col.idx == -1 {
			missing = append(missing, col.name)
		}
	}
	if len(missing) > 0 {
		return c, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	fixed := map[int]bool{c.branch: true, c.year: true, c.section: true, c.subject: true, c.teacher: true}
	for i := c.teacher + 1; i < len(header); i++ {
		if fixed[i] {
			continue
		}
		text := strings.TrimSpace(header[i])
		if text == "" {
			continue
		}
		c.questions = append(c.questions, text)
	}
	return c, nil
}

// cell returns the trimmed value at idx, or "" when the row is too
// short (trailing blanks are not materialized by the store).
func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// ParseOptions computes the distinct branch/year/section values across
// the whole table. The first row is always treated as a header. Fewer
// than two rows yields an empty index and ErrNoDataRows.
func ParseOptions(rows [][]string) (model.OptionsIndex, error) {
	idx := model.OptionsIndex{
		Branches: []string{},
		Years:    []string{},
		Sections: []string{},
	}
	if len(rows) < 2 {
		return idx, ErrNoDataRows
	}
	cols, err := resolveColumns(rows[0])
	if err != nil {
		return idx, err
	}

	branches := map[string]bool{}
	years := map[string]bool{}
	sections := map[string]bool{}
	for _, row := range rows[1:] {
		if v := cell(row, cols.branch); v != "" {
			branches[v] = true
		}
		if v := cell(row, cols.year); v != "" {
			years[v] = true
		}
		if v := cell(row, cols.section); v != "" {
			sections[v] = true
		}
	}

	idx.Branches = sortedKeys(branches)
	idx.Years = sortedKeys(years)
	idx.Sections = sortedKeys(sections)
	return idx, nil
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ParseCohortSchema filters the table to rows matching (branch, year,
// section) exactly (trimmed, case-sensitive) and maps each matching
// row to one subject entry. Rows with any empty fixed field are
// skipped. Duplicate rows are preserved as duplicate entries.
func ParseCohortSchema(rows [][]string, branch, year, section string) (*model.CohortSchema, error) {
	if len(rows) < 2 {
		return nil, ErrNoDataRows
	}
	cols, err := resolveColumns(rows[0])
	if err != nil {
		return nil, err
	}

	cs := &model.CohortSchema{
		Branch:      branch,
		Year:        year,
		Section:     section,
		LastUpdated: time.Now().UTC(),
	}
	for _, row := range rows[1:] {
		rb := cell(row, cols.branch)
		ry := cell(row, cols.year)
		rs := cell(row, cols.section)
		subject := cell(row, cols.subject)
		teacher := cell(row, cols.teacher)
		if rb == "" || ry == "" || rs == "" || subject == "" || teacher == "" {
			continue
		}
		if rb != branch || ry != year || rs != section {
			continue
		}
		cs.Subjects = append(cs.Subjects, model.SubjectEntry{
			Subject:   subject,
			Teacher:   teacher,
			Questions: questionsFor(cols.questions),
		})
	}
	if len(cs.Subjects) == 0 {
		return nil, fmt.Errorf("%w: %s/%s/%s", ErrCohortNotFound, branch, year, section)
	}
	return cs, nil
}

// questionsFor assigns positional ids (question1, question2, ...) in
// header order. Ids depend on position only, so an unchanged header
// layout yields the same ids on every call.
func questionsFor(texts []string) []model.Question {
	qs := make([]model.Question, 0, len(texts))
	for i, text := range texts {
		qs = append(qs, model.Question{
			ID:       fmt.Sprintf("question%d", i+1),
			Text:     text,
			Type:     model.QuestionRating,
			Required: true,
		})
	}
	return qs
}
