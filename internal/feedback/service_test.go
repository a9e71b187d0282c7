package feedback

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/LuciferDinesh/student-feedback-system/internal/model"
	"github.com/LuciferDinesh/student-feedback-system/internal/store"
)

func newTestService(t *testing.T) (*Service, *store.SQLite) {
	t.Helper()
	s, err := store.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("newTestService: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return NewService(s), s
}

func TestSubmitEmptyBatch(t *testing.T) {
	tab := &countingStore{}
	svc := NewService(tab)
	_, err := svc.Submit(context.Background(), nil)
	if !errors.Is(err, ErrEmptyBatch) {
		t.Fatalf("expected ErrEmptyBatch, got %v", err)
	}
	if tab.calls != 0 {
		t.Errorf("expected zero store calls for empty batch, got %d", tab.calls)
	}
}

func TestSubmitSingleItem(t *testing.T) {
	svc, tab := newTestService(t)
	ctx := context.Background()

	item := fb("CSE", "1st Year", "A", "Math", "Dr.X", map[string]any{"question1": float64(8)})
	report, err := svc.Submit(ctx, []model.SubjectFeedback{item})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if report.CohortsProcessed != 1 {
		t.Fatalf("expected 1 cohort processed, got %d", report.CohortsProcessed)
	}
	if len(report.Results) != 1 || report.Results[0].Err != nil || report.Results[0].Rows != 1 {
		t.Fatalf("unexpected results %+v", report.Results)
	}

	rows, err := tab.ReadRange(ctx, "Responses_CSE_1st Year_A", "A1:ZZ")
	if err != nil {
		t.Fatalf("ReadRange: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header + 1 row, got %d rows", len(rows))
	}
	wantHeader := []string{"Timestamp", "Branch", "Year", "Section", "Subject", "Teacher", "question1"}
	for i, cell := range wantHeader {
		if rows[0][i] != cell {
			t.Errorf("header cell %d: expected %q, got %q", i, cell, rows[0][i])
		}
	}
	data := rows[1]
	if data[1] != "CSE" || data[4] != "Math" || data[6] != "8" {
		t.Errorf("unexpected data row %v", data)
	}
}

func TestSubmitIsIdempotentOnTableCreation(t *testing.T) {
	svc, tab := newTestService(t)
	ctx := context.Background()

	item := fb("CSE", "1st Year", "A", "Math", "Dr.X", map[string]any{"question1": float64(8)})
	for i := 0; i < 2; i++ {
		if _, err := svc.Submit(ctx, []model.SubjectFeedback{item}); err != nil {
			t.Fatalf("Submit %d: %v", i+1, err)
		}
	}

	rows, err := tab.ReadRange(ctx, "Responses_CSE_1st Year_A", "A1:ZZ")
	if err != nil {
		t.Fatalf("ReadRange: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows after two submits, got %d", len(rows))
	}
}

func TestSubmitWidensHeader(t *testing.T) {
	svc, tab := newTestService(t)
	ctx := context.Background()

	first := fb("CSE", "1st Year", "A", "Math", "Dr.X", map[string]any{"question1": float64(8)})
	if _, err := svc.Submit(ctx, []model.SubjectFeedback{first}); err != nil {
		t.Fatalf("first Submit: %v", err)
	}

	second := fb("CSE", "1st Year", "A", "Physics", "Dr.Y", map[string]any{"question2": float64(6)})
	if _, err := svc.Submit(ctx, []model.SubjectFeedback{second}); err != nil {
		t.Fatalf("second Submit: %v", err)
	}

	rows, err := tab.ReadRange(ctx, "Responses_CSE_1st Year_A", "A1:ZZ")
	if err != nil {
		t.Fatalf("ReadRange: %v", err)
	}
	header := rows[0]
	if len(header) != 8 || header[6] != "question1" || header[7] != "question2" {
		t.Fatalf("expected widened header [... question1 question2], got %v", header)
	}
	// Second data row: question1 empty, question2 filled.
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[2][6] != "" || rows[2][7] != "6" {
		t.Errorf("expected answers aligned to widened header, got %v", rows[2])
	}
}

func TestSubmitMultipleCohorts(t *testing.T) {
	svc, _ := newTestService(t)

	batch := []model.SubjectFeedback{
		fb("CSE", "1st Year", "A", "Math", "Dr.X", map[string]any{"question1": float64(8)}),
		fb("CSE", "1st Year", "A", "Physics", "Dr.Y", map[string]any{"question1": float64(7)}),
		fb("ECE", "2nd Year", "B", "Circuits", "Dr.Z", map[string]any{"question1": float64(9)}),
	}
	report, err := svc.Submit(context.Background(), batch)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if report.CohortsProcessed != 2 {
		t.Fatalf("expected 2 cohorts processed, got %d", report.CohortsProcessed)
	}
	if len(report.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(report.Results))
	}
	if report.Results[0].Rows != 2 || report.Results[1].Rows != 1 {
		t.Errorf("unexpected row counts %+v", report.Results)
	}
}

func TestSubmitIsolatesCohortFailures(t *testing.T) {
	base, err := store.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(func() { base.Close() })

	failing := &appendFailingStore{Tabular: base, failTable: "Responses_CSE_1st Year_A"}
	svc := NewService(failing)

	batch := []model.SubjectFeedback{
		fb("CSE", "1st Year", "A", "Math", "Dr.X", map[string]any{"question1": float64(8)}),
		fb("ECE", "2nd Year", "B", "Circuits", "Dr.Z", map[string]any{"question1": float64(9)}),
	}
	report, err := svc.Submit(context.Background(), batch)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if report.CohortsProcessed != 1 {
		t.Fatalf("expected 1 cohort processed, got %d", report.CohortsProcessed)
	}
	if report.Results[0].Err == nil {
		t.Error("expected first cohort to fail")
	}
	if report.Results[1].Err != nil {
		t.Errorf("expected second cohort to succeed, got %v", report.Results[1].Err)
	}
	if report.Failed() {
		t.Error("report should not count as fully failed")
	}

	// The healthy cohort's rows made it to the store.
	rows, err := base.ReadRange(context.Background(), "Responses_ECE_2nd Year_B", "A1:ZZ")
	if err != nil {
		t.Fatalf("ReadRange: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("expected header + 1 row for healthy cohort, got %d", len(rows))
	}
}

func TestSubmitAppendsWhenTableSetupFails(t *testing.T) {
	base, err := store.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(func() { base.Close() })

	ctx := context.Background()
	if err := base.CreateTable(ctx, "Responses_CSE_1st Year_A"); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}

	svc := NewService(&createFailingStore{Tabular: base})

	item := fb("CSE", "1st Year", "A", "Math", "Dr.X", map[string]any{"question1": float64(8)})
	report, err := svc.Submit(ctx, []model.SubjectFeedback{item})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if report.CohortsProcessed != 1 {
		t.Fatalf("expected 1 cohort processed, got %d", report.CohortsProcessed)
	}
	if report.Results[0].Err != nil || report.Results[0].Rows != 1 {
		t.Fatalf("unexpected result %+v", report.Results[0])
	}

	// Header reconciliation was skipped, but the responses still landed.
	rows, err := base.ReadRange(ctx, "Responses_CSE_1st Year_A", "A1:ZZ")
	if err != nil {
		t.Fatalf("ReadRange: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 appended row, got %d", len(rows))
	}
	if rows[0][1] != "CSE" || rows[0][6] != "8" {
		t.Errorf("unexpected appended row %v", rows[0])
	}
}

// countingStore counts calls; every operation fails.
type countingStore struct {
	calls int
}

func (c *countingStore) ReadRange(context.Context, string, string) ([][]string, error) {
	c.calls++
	return nil, fmt.Errorf("unavailable")
}

func (c *countingStore) WriteRange(context.Context, string, string, [][]string) error {
	c.calls++
	return fmt.Errorf("unavailable")
}

func (c *countingStore) AppendRows(context.Context, string, string, [][]string) error {
	c.calls++
	return fmt.Errorf("unavailable")
}

func (c *countingStore) CreateTable(context.Context, string) error {
	c.calls++
	return fmt.Errorf("unavailable")
}

// createFailingStore passes through to the wrapped store but rejects
// every table creation.
type createFailingStore struct {
	store.Tabular
}

func (c *createFailingStore) CreateTable(context.Context, string) error {
	return fmt.Errorf("quota exceeded")
}

// appendFailingStore passes through to the wrapped store but fails
// appends to one table.
type appendFailingStore struct {
	store.Tabular
	failTable string
}

func (a *appendFailingStore) AppendRows(ctx context.Context, table, rangeSpec string, values [][]string) error {
	if table == a.failTable {
		return fmt.Errorf("simulated append failure")
	}
	return a.Tabular.AppendRows(ctx, table, rangeSpec, values)
}
