// Package feedback groups submitted survey responses by cohort and
// appends them to per-cohort result tables, creating tables and
// reconciling their headers as the question set evolves.
package feedback

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/LuciferDinesh/student-feedback-system/internal/model"
)

// baseHeader is the fixed prefix of every result table's header row;
// question id columns follow it.
var baseHeader = []string{"Timestamp", "Branch", "Year", "Section", "Subject", "Teacher"}

// CohortKey joins the cohort triple into the key used to name and
// route result tables.
func CohortKey(branch, year, section string) string {
	return branch + "_" + year + "_" + section
}

// ResultTableName is the result table for a cohort key. Deterministic,
// so repeated submissions route to the same table.
func ResultTableName(cohortKey string) string {
	return "Responses_" + cohortKey
}

// GroupByCohort splits a batch into per-cohort groups. The returned
// key slice preserves insertion order of first occurrence; each group
// keeps the batch's relative order. No validation against any schema
// happens here.
func GroupByCohort(batch []model.SubjectFeedback) ([]string, map[string][]model.SubjectFeedback) {
	var keys []string
	groups := make(map[string][]model.SubjectFeedback)
	for _, fb := range batch {
		key := CohortKey(fb.Branch, fb.Year, fb.Section)
		if _, ok := groups[key]; !ok {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], fb)
	}
	return keys, groups
}

// QuestionIDs returns the sorted union of question ids present
// anywhere in the group. A batch touching only a subset of the
// schema's questions yields only that subset.
func QuestionIDs(group []model.SubjectFeedback) []string {
	seen := map[string]bool{}
	for _, fb := range group {
		for id := range fb.Responses {
			seen[id] = true
		}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// BuildRows converts a cohort group into result table rows, one per
// feedback item, with answers ordered by questionIDs. A missing id
// yields an empty cell. Row length is always 6 + len(questionIDs).
func BuildRows(group []model.SubjectFeedback, questionIDs []string) [][]string {
	now := time.Now().UTC()
	rows := make([][]string, 0, len(group))
	for _, fb := range group {
		ts := fb.Timestamp
		if ts.IsZero() {
			ts = now
		}
		row := make([]string, 0, len(baseHeader)+len(questionIDs))
		row = append(row, ts.Format(time.RFC3339), fb.Branch, fb.Year, fb.Section, fb.Subject, fb.Teacher)
		for _, id := range questionIDs {
			v, ok := fb.Responses[id]
			if !ok {
				row = append(row, "")
				continue
			}
			row = append(row, stringifyAnswer(v))
		}
		rows = append(rows, row)
	}
	return rows
}

// stringifyAnswer renders an answer value for a cell. JSON decoding
// hands numbers over as float64, so integers must not pick up a
// fractional tail.
func stringifyAnswer(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	default:
		return fmt.Sprint(t)
	}
}
