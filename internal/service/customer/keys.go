package customer

import "cis-portal/internal/querycache"

// Cache keys. Monthly registrations live under the statistics prefix so
// every statistics invalidation also refreshes the chart.
var (
	KeyAll        = querycache.NewKey("customers")
	KeyLists      = KeyAll.With("list")
	KeyDetails    = KeyAll.With("detail")
	KeyStatistics = KeyAll.With("statistics")
	KeyMonthly    = KeyStatistics.With("monthly")
)

// DetailKey addresses one customer.
func DetailKey(id string) querycache.Key {
	return KeyDetails.With(id)
}
