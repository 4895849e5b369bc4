package importer

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/alecrj/sbay-crm/services/crm-service/internal/model"
)

type fakeStore struct {
	existing map[string]model.Lead
	inserted []model.Lead
}

func (f *fakeStore) FindByEmail(_ context.Context, email string) (model.Lead, bool, error) {
	lead, ok := f.existing[email]
	return lead, ok, nil
}

func (f *fakeStore) Insert(_ context.Context, lead *model.Lead) (string, error) {
	f.inserted = append(f.inserted, *lead)
	return "lead-id", nil
}

func newImporter(store Store) *Importer {
	return New(store, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestImportBasic(t *testing.T) {
	csvData := strings.Join([]string{
		"Name,Email,Phone,Company,Notes",
		"Alice Smith,alice@example.com,555-0100,Acme,interested in dock space",
		"Bob Jones,bob@example.com,,,",
	}, "\n")

	store := &fakeStore{}
	res, err := newImporter(store).Import(context.Background(), strings.NewReader(csvData), "")
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res.Imported != 2 || res.Skipped != 0 {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(store.inserted) != 2 {
		t.Fatalf("expected 2 inserts, got %d", len(store.inserted))
	}
	lead := store.inserted[0]
	if lead.Name != "Alice Smith" || lead.Email != "alice@example.com" {
		t.Fatalf("unexpected lead %+v", lead)
	}
	if lead.Stage != model.StageNew || lead.Source != model.SourceCSVImport {
		t.Fatalf("lead should default to new stage and csv-import source, got %+v", lead)
	}
}

func TestImportSkipsDuplicatesInFile(t *testing.T) {
	csvData := strings.Join([]string{
		"name,email",
		"Alice,alice@example.com",
		"Alice Again,ALICE@example.com",
	}, "\n")

	store := &fakeStore{}
	res, err := newImporter(store).Import(context.Background(), strings.NewReader(csvData), "")
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res.Imported != 1 || res.Skipped != 1 {
		t.Fatalf("expected dedupe within file, got %+v", res)
	}
}

func TestImportSkipsExistingLeads(t *testing.T) {
	csvData := strings.Join([]string{
		"name,email",
		"Alice,alice@example.com",
	}, "\n")

	store := &fakeStore{existing: map[string]model.Lead{
		"alice@example.com": {ID: "existing", Email: "alice@example.com"},
	}}
	res, err := newImporter(store).Import(context.Background(), strings.NewReader(csvData), "")
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res.Imported != 0 || res.Skipped != 1 {
		t.Fatalf("existing lead should be skipped, got %+v", res)
	}
}

func TestImportBadRowsDoNotAbort(t *testing.T) {
	csvData := strings.Join([]string{
		"name,email",
		",missing-name@example.com",
		"Bad Email,not-an-email",
		"Carol,carol@example.com",
	}, "\n")

	store := &fakeStore{}
	res, err := newImporter(store).Import(context.Background(), strings.NewReader(csvData), "")
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res.Imported != 1 || res.Skipped != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(res.Errors) != 2 {
		t.Fatalf("expected 2 row errors, got %v", res.Errors)
	}
}

func TestImportCustomSource(t *testing.T) {
	csvData := strings.Join([]string{
		"name,email",
		"Dana,dana@example.com",
	}, "\n")

	store := &fakeStore{}
	if _, err := newImporter(store).Import(context.Background(), strings.NewReader(csvData), model.SourceGoogleSheets); err != nil {
		t.Fatalf("Import: %v", err)
	}
	if store.inserted[0].Source != model.SourceGoogleSheets {
		t.Fatalf("source = %q", store.inserted[0].Source)
	}
}

func TestImportRowsWithoutEmailAlwaysInsert(t *testing.T) {
	csvData := strings.Join([]string{
		"name,email",
		"Walk In,",
		"Another Walk In,",
	}, "\n")

	store := &fakeStore{}
	res, err := newImporter(store).Import(context.Background(), strings.NewReader(csvData), "")
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res.Imported != 2 {
		t.Fatalf("rows without email should not dedupe, got %+v", res)
	}
}

func TestImportRequiresNameColumn(t *testing.T) {
	csvData := "email\nalice@example.com\n"
	if _, err := newImporter(&fakeStore{}).Import(context.Background(), strings.NewReader(csvData), ""); err == nil {
		t.Fatal("expected error for missing name column")
	}
}
