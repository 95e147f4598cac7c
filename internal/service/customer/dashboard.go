package customer

import (
	"context"
	"strings"

	"cis-portal/internal/domain"
	"golang.org/x/sync/errgroup"
)

// StatCard is one labelled counter.
type StatCard struct {
	Label string `json:"label"`
	Value int    `json:"value"`
}

// Slice is one segment of the status breakdown chart.
type Slice struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// Dashboard is the home page view. Every section is always present with
// zero defaults; Errors names the sections whose source failed.
type Dashboard struct {
	Cards     []StatCard                   `json:"cards"`
	Alerts    []StatCard                   `json:"alerts"`
	Breakdown []Slice                      `json:"breakdown"`
	Monthly   []domain.MonthlyRegistration `json:"monthly"`
	Errors    map[string]string            `json:"errors,omitempty"`
}

// Dashboard loads statistics and the monthly series concurrently. A failed
// source leaves its sections at zero rather than failing the whole view.
func (s *Service) Dashboard(ctx context.Context) Dashboard {
	var (
		stats     domain.CustomerStatistics
		monthly   []domain.MonthlyRegistration
		statsErr  error
		seriesErr error
	)
	var g errgroup.Group
	g.Go(func() error {
		res := s.Statistics(ctx)
		stats, statsErr = res.Data, res.Err
		return nil
	})
	g.Go(func() error {
		res := s.MonthlyRegistrations(ctx)
		monthly, seriesErr = res.Data, res.Err
		return nil
	})
	_ = g.Wait()

	d := Dashboard{
		Cards: []StatCard{
			{Label: "Total Registered Customers", Value: stats.TotalCustomers},
			{Label: "Active ID Cards", Value: stats.ActiveCustomers},
			{Label: "Expired ID Cards", Value: stats.ExpiredCustomers},
			{Label: "New This Month", Value: stats.RegisteredThisMonth},
		},
		Alerts: []StatCard{
			{Label: "IDs Expiring This Week", Value: stats.ExpiringThisWeek},
			{Label: "IDs Expiring This Month", Value: stats.ExpiringThisMonth},
		},
		Breakdown: []Slice{
			{Name: "Active", Value: stats.ActiveCustomers},
			{Name: "Expired", Value: stats.ExpiredCustomers},
		},
		Monthly: monthly,
	}
	if d.Monthly == nil {
		d.Monthly = []domain.MonthlyRegistration{}
	}
	if statsErr != nil || seriesErr != nil {
		d.Errors = map[string]string{}
		if statsErr != nil {
			d.Errors["statistics"] = statsErr.Error()
		}
		if seriesErr != nil {
			d.Errors["monthly"] = seriesErr.Error()
		}
	}
	return d
}

// Verification statuses.
const (
	VerifyActive  = domain.CustomerActive
	VerifyExpired = domain.CustomerExpired
	VerifyInvalid = "invalid"
)

// Verification is the result of checking a presented customer code.
type Verification struct {
	Code     string           `json:"code"`
	Status   string           `json:"status"`
	Customer *domain.Customer `json:"customer,omitempty"`
}

// Verify looks code up in the customer list. Codes compare case-insensitively;
// an unknown or blank code is invalid.
func (s *Service) Verify(ctx context.Context, code string) (Verification, error) {
	code = strings.TrimSpace(code)
	out := Verification{Code: code, Status: VerifyInvalid}
	if code == "" {
		return out, nil
	}
	res := s.List(ctx)
	if res.IsError() {
		return out, res.Err
	}
	for i := range res.Data {
		c := res.Data[i]
		if strings.EqualFold(c.CustomerCode, code) {
			out.Status = c.Status(s.now())
			out.Customer = &c
			break
		}
	}
	return out, nil
}
