package model

import "time"

// QuestionType classifies how a question's answer is captured.
type QuestionType string

const (
	QuestionRating  QuestionType = "rating"
	QuestionText    QuestionType = "text"
	QuestionBoolean QuestionType = "boolean"
)

// Question is one survey question resolved from the configuration table.
// The ID is positional within the matched question columns (question1,
// question2, ...) so it stays stable across calls for an unchanged header.
type Question struct {
	ID       string       `json:"id"`
	Text     string       `json:"text"`
	Type     QuestionType `json:"type"`
	Required bool         `json:"required"`
}

// SubjectEntry pairs a subject and its teacher with the question set
// students answer for that pair.
type SubjectEntry struct {
	Subject   string     `json:"subject"`
	Teacher   string     `json:"teacher"`
	Questions []Question `json:"questions"`
}

// CohortSchema is the resolved question schema for one (branch, year,
// section) cohort. Subjects keep the configuration table's row order;
// duplicate rows produce duplicate entries.
type CohortSchema struct {
	Branch      string         `json:"branch"`
	Year        string         `json:"year"`
	Section     string         `json:"section"`
	Subjects    []SubjectEntry `json:"subjects"`
	LastUpdated time.Time      `json:"lastUpdated"`
}

// OptionsIndex holds the distinct selectable values across the whole
// configuration table, sorted ascending.
type OptionsIndex struct {
	Branches []string `json:"branches"`
	Years    []string `json:"years"`
	Sections []string `json:"sections"`
}

// SubjectFeedback is one student's answers for one subject. A form
// submission is a batch of these, one per subject in the cohort schema.
type SubjectFeedback struct {
	Branch             string         `json:"branch"`
	Year               string         `json:"year"`
	Section            string         `json:"section"`
	Subject            string         `json:"subject"`
	Teacher            string         `json:"teacher"`
	RegistrationNumber string         `json:"registrationNumber"`
	Responses          map[string]any `json:"responses"`
	Timestamp          time.Time      `json:"timestamp,omitzero"`
}

// CohortResult is the outcome of writing one cohort's slice of a
// submission batch. Err is nil when the append succeeded.
type CohortResult struct {
	Cohort string `json:"cohort"`
	Table  string `json:"table"`
	Rows   int    `json:"rows"`
	Err    error  `json:"-"`
}

// SubmitReport summarizes a processed submission batch.
type SubmitReport struct {
	CohortsProcessed int
	Results          []CohortResult
}

// Failed reports whether every cohort in the batch failed to append.
func (r *SubmitReport) Failed() bool {
	if len(r.Results) == 0 {
		return false
	}
	for _, res := range r.Results {
		if res.Err == nil {
			return false
		}
	}
	return true
}

// ServerConfig holds runtime parameters set via CLI flags.
type ServerConfig struct {
	Addr            string
	StoreBackend    string // "sheets" or "sqlite"
	DBPath          string // sqlite backend only
	SpreadsheetID   string // sheets backend only
	CredentialsFile string // sheets backend only
	ConfigSheet     string // name of the admin configuration table
}
