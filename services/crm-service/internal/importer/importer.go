package importer

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/alecrj/sbay-crm/services/crm-service/internal/model"
)

// Store is the lead surface the importer needs; *storage.LeadsRepository
// satisfies it.
type Store interface {
	FindByEmail(ctx context.Context, email string) (model.Lead, bool, error)
	Insert(ctx context.Context, lead *model.Lead) (string, error)
}

type Importer struct {
	store  Store
	logger *slog.Logger
}

func New(store Store, logger *slog.Logger) *Importer {
	return &Importer{store: store, logger: logger}
}

type Result struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

// Import reads a CSV of leads and inserts the valid, unseen ones. Rows are
// deduplicated by email within the file and against existing leads. Bad rows
// are reported and skipped; one bad row never aborts the batch. Bulk import
// deliberately emits no per-lead events.
func (im *Importer) Import(ctx context.Context, r io.Reader, source string) (Result, error) {
	var res Result
	if source == "" {
		source = model.SourceCSVImport
	}

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return res, fmt.Errorf("read csv header: %w", err)
	}
	cols := columnIndex(header)
	if _, ok := cols["name"]; !ok {
		return res, fmt.Errorf("csv has no name column")
	}

	seen := make(map[string]struct{})
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			res.Skipped++
			res.Errors = append(res.Errors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}

		lead, reason := buildLead(cols, record, source)
		if reason != "" {
			res.Skipped++
			res.Errors = append(res.Errors, fmt.Sprintf("line %d: %s", line, reason))
			continue
		}

		if lead.Email != "" {
			if _, dup := seen[lead.Email]; dup {
				res.Skipped++
				continue
			}
			seen[lead.Email] = struct{}{}

			if _, exists, err := im.store.FindByEmail(ctx, lead.Email); err != nil {
				return res, err
			} else if exists {
				res.Skipped++
				continue
			}
		}

		if _, err := im.store.Insert(ctx, &lead); err != nil {
			res.Skipped++
			res.Errors = append(res.Errors, fmt.Sprintf("line %d: insert failed", line))
			im.logger.Error("lead import insert failed", "line", line, "err", err)
			continue
		}
		res.Imported++
	}

	im.logger.Info("lead import finished",
		"source", source, "imported", res.Imported, "skipped", res.Skipped)
	return res, nil
}

func columnIndex(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		key = strings.ReplaceAll(key, " ", "_")
		cols[key] = i
	}
	return cols
}

func field(cols map[string]int, record []string, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func buildLead(cols map[string]int, record []string, source string) (model.Lead, string) {
	name := field(cols, record, "name")
	if name == "" {
		return model.Lead{}, "missing name"
	}

	email := strings.ToLower(field(cols, record, "email"))
	if email != "" && !strings.Contains(email, "@") {
		return model.Lead{}, "invalid email"
	}

	return model.Lead{
		Name:    name,
		Email:   email,
		Phone:   field(cols, record, "phone"),
		Company: field(cols, record, "company"),
		Source:  source,
		Stage:   model.StageNew,
		Notes:   field(cols, record, "notes"),
	}, ""
}
