package listing

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

type row struct {
	Name, Code string
}

func rows(n int) []row {
	out := make([]row, n)
	for i := range out {
		out[i] = row{Name: fmt.Sprintf("Customer %02d", i+1), Code: fmt.Sprintf("CIS-%03d", i+1)}
	}
	return out
}

func TestSearch(t *testing.T) {
	items := []row{{"Ada Obi", "CIS-001"}, {"John Doe", "CIS-002"}, {"Jane Smith", "XYZ-003"}}
	fields := func(r row) []string { return []string{r.Name, r.Code} }

	assert.Len(t, Search(items, "", fields), 3)
	assert.Len(t, Search(items, "  ", fields), 3)
	assert.Equal(t, []row{{"John Doe", "CIS-002"}}, Search(items, "DOE", fields))
	assert.Equal(t, []row{{"Jane Smith", "XYZ-003"}}, Search(items, "xyz", fields))
	assert.Empty(t, Search(items, "nobody", fields))
}

func TestPaginate(t *testing.T) {
	items := rows(23)

	p := Paginate(items, 1, 0)
	assert.Equal(t, DefaultPageSize, p.PageSize)
	assert.Equal(t, 3, p.TotalPages)
	assert.Equal(t, 1, p.From)
	assert.Equal(t, 10, p.To)
	assert.Len(t, p.Items, 10)

	p = Paginate(items, 3, 10)
	assert.Len(t, p.Items, 3)
	assert.Equal(t, 21, p.From)
	assert.Equal(t, 23, p.To)
	assert.Equal(t, "Customer 21", p.Items[0].Name)

	p = Paginate(items, 99, 10)
	assert.Equal(t, 3, p.Page, "page beyond the end is clamped")
	p = Paginate(items, -1, 10)
	assert.Equal(t, 1, p.Page)

	p = Paginate(items, 1, 1000)
	assert.Equal(t, MaxPageSize, p.PageSize)
	assert.Len(t, p.Items, 23)
}

func TestPaginate_Empty(t *testing.T) {
	p := Paginate([]row{}, 2, 10)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 1, p.TotalPages)
	assert.Equal(t, 0, p.From)
	assert.Equal(t, 0, p.To)
	assert.NotNil(t, p.Items)
}

func TestFilterAndCount(t *testing.T) {
	items := rows(5)
	odd := Filter(items, func(r row) bool { return r.Code[len(r.Code)-1]%2 == 1 })
	assert.Len(t, odd, 3)

	counts := CountBy(items, func(r row) string { return r.Code[:3] })
	assert.Equal(t, map[string]int{"CIS": 5}, counts)
}
