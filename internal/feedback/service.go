package feedback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/LuciferDinesh/student-feedback-system/internal/model"
	"github.com/LuciferDinesh/student-feedback-system/internal/store"
)

// ErrEmptyBatch is returned by Submit for a batch with no items. No
// store calls are made in that case.
var ErrEmptyBatch = errors.New("submission batch is empty")

// Service writes submission batches into per-cohort result tables.
type Service struct {
	store store.Tabular
}

// NewService creates a Service backed by the given tabular store.
func NewService(s store.Tabular) *Service {
	return &Service{store: s}
}

// Submit groups the batch by cohort and processes each group as an
// independent unit of work: ensure the result table exists, reconcile
// its header with the batch's question ids, append one row per item.
// A failing cohort never blocks the others; per-cohort outcomes are
// collected in the report. Only the append step is treated as durable.
func (s *Service) Submit(ctx context.Context, batch []model.SubjectFeedback) (*model.SubmitReport, error) {
	if len(batch) == 0 {
		return nil, ErrEmptyBatch
	}

	keys, groups := GroupByCohort(batch)
	report := &model.SubmitReport{}
	for _, key := range keys {
		group := groups[key]
		table := ResultTableName(key)
		result := model.CohortResult{Cohort: key, Table: table}

		header, err := s.ensureTable(ctx, table, QuestionIDs(group))
		if err != nil {
			// Best effort: a failed create or header write must not
			// block data capture. Fall back to the batch's own header.
			slog.Warn("result table setup failed, appending anyway",
				"table", table, "error", err)
			header = append(append([]string{}, baseHeader...), QuestionIDs(group)...)
		}

		rows := BuildRows(group, header[len(baseHeader):])
		if err := s.store.AppendRows(ctx, table, store.DataRange(len(header)), rows); err != nil {
			result.Err = fmt.Errorf("append to %s: %w", table, err)
			slog.Error("append failed", "table", table, "rows", len(rows), "error", err)
		} else {
			result.Rows = len(rows)
			report.CohortsProcessed++
		}
		report.Results = append(report.Results, result)
	}
	return report, nil
}

// ensureTable creates the result table if needed and returns its
// reconciled header: the existing header widened with any batch
// question ids it does not yet have, new ids appended in sorted order
// after the existing question columns. The header row is rewritten
// only when it changed.
func (s *Service) ensureTable(ctx context.Context, table string, batchIDs []string) ([]string, error) {
	created := false
	if err := s.store.CreateTable(ctx, table); err != nil {
		if !errors.Is(err, store.ErrAlreadyExists) {
			return nil, fmt.Errorf("create %s: %w", table, err)
		}
	} else {
		created = true
		slog.Info("created result table", "table", table)
	}

	header := append([]string{}, baseHeader...)
	existing := map[string]bool{}
	if !created {
		rows, err := s.store.ReadRange(ctx, table, store.RowRange(1))
		if err != nil && !errors.Is(err, store.ErrTableNotFound) {
			return nil, fmt.Errorf("read header of %s: %w", table, err)
		}
		if len(rows) > 0 && len(rows[0]) > len(baseHeader) {
			header = append([]string{}, baseHeader...)
			for _, id := range rows[0][len(baseHeader):] {
				if id == "" {
					continue
				}
				header = append(header, id)
				existing[id] = true
			}
		}
	}

	widened := created
	for _, id := range batchIDs {
		if !existing[id] {
			header = append(header, id)
			widened = true
		}
	}
	if widened {
		if err := s.store.WriteRange(ctx, table, store.HeaderRange(len(header)), [][]string{header}); err != nil {
			return nil, fmt.Errorf("write header of %s: %w", table, err)
		}
	}
	return header, nil
}
