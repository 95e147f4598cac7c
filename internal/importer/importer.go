package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"cis-portal/internal/domain"
	"cis-portal/internal/service/customer"
)

// CustomerCreator registers one customer, including the ID card step.
type CustomerCreator interface {
	Create(ctx context.Context, in domain.CreateCustomerInput) (*customer.CreateOutcome, error)
}

// CSVImporter bulk-registers customers from a spreadsheet.
type CSVImporter struct {
	reader  *csv.Reader
	creator CustomerCreator
}

func NewCSVImporter(r io.Reader, creator CustomerCreator) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	csvr.TrimLeadingSpace = true
	return &CSVImporter{reader: csvr, creator: creator}
}

// RowError is a row that could not be registered.
type RowError struct {
	Line int
	Name string
	Err  error
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d (%s): %v", e.Line, e.Name, e.Err)
}

// Report summarises a run.
type Report struct {
	Imported   int
	CardsSaved int
	Warnings   []string
	Failures   []RowError
}

// Run registers every row in order. A row that fails is recorded and the
// run continues; only a malformed file or a cancelled context stops it.
func (i *CSVImporter) Run(ctx context.Context) (Report, error) {
	var report Report

	headers, err := i.reader.Read()
	if err != nil {
		return report, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)

	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return report, fmt.Errorf("read row: %w", err)
		}

		in, ok := parseRow(record, index)
		if !ok {
			continue
		}

		out, err := i.creator.Create(ctx, in)
		if err != nil {
			report.Failures = append(report.Failures, RowError{Line: line, Name: in.FirstName + " " + in.LastName, Err: err})
			continue
		}
		report.Imported++
		switch out.State {
		case customer.CardSaved:
			report.CardsSaved++
		case customer.CardWarned:
			report.Warnings = append(report.Warnings, fmt.Sprintf("line %d: %s", line, out.Warning.Warning()))
		}
	}
	return report, nil
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return idx
}

// parseRow maps a record onto the registration form. Blank rows are skipped.
func parseRow(record []string, index map[string]int) (domain.CreateCustomerInput, bool) {
	in := domain.CreateCustomerInput{
		FirstName:   pick(record, index, "first_name"),
		LastName:    pick(record, index, "last_name"),
		Email:       pick(record, index, "email"),
		Phone:       pick(record, index, "phone"),
		Gender:      strings.ToLower(pick(record, index, "gender")),
		DateOfBirth: pick(record, index, "dateofbirth", "date_of_birth"),
		ProductID:   pick(record, index, "product_id"),
		Address:     pick(record, index, "address"),
	}
	if in == (domain.CreateCustomerInput{}) {
		return in, false
	}
	return in, true
}

func pick(record []string, index map[string]int, keys ...string) string {
	for _, key := range keys {
		pos, ok := index[key]
		if !ok || pos >= len(record) {
			continue
		}
		return strings.TrimSpace(record[pos])
	}
	return ""
}
