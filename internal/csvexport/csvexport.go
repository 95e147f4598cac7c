// Package csvexport reads the customer CSV produced by the backend export
// endpoint and summarises it for the command line.
package csvexport

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"cis-portal/internal/domain"
)

// Row is one exported customer. Columns the export omits stay empty.
type Row struct {
	Code       string
	FirstName  string
	LastName   string
	Email      string
	Phone      string
	Product    string
	Active     bool
	ExpiryDate time.Time
}

// Status mirrors domain.Customer.Status.
func (r Row) Status(now time.Time) string {
	c := domain.Customer{IsActive: r.Active, ExpiryDate: domain.Timestamp{Time: r.ExpiryDate}}
	return c.Status(now)
}

// Summary aggregates an export.
type Summary struct {
	Rows      int
	Active    int
	Expired   int
	ByProduct map[string]int
}

// header aliases seen across export versions.
var columns = map[string][]string{
	"code":        {"customer_code", "code", "customer code"},
	"first_name":  {"first_name", "first name", "firstname"},
	"last_name":   {"last_name", "last name", "lastname"},
	"email":       {"email"},
	"phone":       {"phone"},
	"product":     {"product_name", "product", "subscription"},
	"is_active":   {"is_active", "active"},
	"status":      {"status"},
	"expiry_date": {"expiry_date", "expiry date", "expires"},
}

// Read parses an export. A missing customer code column is an error; rows
// without a code are skipped.
func Read(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	headers, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	if _, ok := index["code"]; !ok {
		return nil, errors.New("export has no customer code column")
	}

	var rows []Row
	for line := 2; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return rows, fmt.Errorf("read row %d: %w", line, err)
		}
		row, err := parseRow(record, index)
		if err != nil {
			return rows, fmt.Errorf("row %d: %w", line, err)
		}
		if row.Code == "" {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Summarize counts rows by status at now and by product.
func Summarize(rows []Row, now time.Time) Summary {
	s := Summary{Rows: len(rows), ByProduct: map[string]int{}}
	for _, r := range rows {
		if r.Status(now) == domain.CustomerActive {
			s.Active++
		} else {
			s.Expired++
		}
		product := r.Product
		if product == "" {
			product = "unassigned"
		}
		s.ByProduct[product]++
	}
	return s
}

// Products returns the product names of s in alphabetical order.
func (s Summary) Products() []string {
	out := make([]string, 0, len(s.ByProduct))
	for p := range s.ByProduct {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func headerIndex(headers []string) map[string]int {
	positions := make(map[string]int, len(headers))
	for i, h := range headers {
		positions[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	idx := make(map[string]int, len(columns))
	for name, aliases := range columns {
		for _, a := range aliases {
			if pos, ok := positions[a]; ok {
				idx[name] = pos
				break
			}
		}
	}
	return idx
}

func parseRow(record []string, index map[string]int) (Row, error) {
	row := Row{
		Code:      pick(record, index, "code"),
		FirstName: pick(record, index, "first_name"),
		LastName:  pick(record, index, "last_name"),
		Email:     pick(record, index, "email"),
		Phone:     pick(record, index, "phone"),
		Product:   pick(record, index, "product"),
		Active:    true,
	}

	if v := pick(record, index, "is_active"); v != "" {
		active, err := strconv.ParseBool(strings.ToLower(v))
		if err != nil {
			return row, fmt.Errorf("is_active %q: %w", v, err)
		}
		row.Active = active
	} else if v := pick(record, index, "status"); v != "" {
		row.Active = strings.EqualFold(v, domain.CustomerActive)
	}

	if v := pick(record, index, "expiry_date"); v != "" {
		ts, err := domain.ParseTimestamp(v)
		if err != nil {
			return row, fmt.Errorf("expiry_date: %w", err)
		}
		row.ExpiryDate = ts.Time
	}
	return row, nil
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}
