// Package stats computes the dashboard counters from a project snapshot.
package stats

import (
	"saraban/internal/model"
	"saraban/internal/status"
)

type ChartBucket struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type Stats struct {
	Total       int           `json:"total"`
	Active      int           `json:"active"`
	Completed   int           `json:"completed"`
	TotalBudget float64       `json:"totalBudget"`
	ChartData   []ChartBucket `json:"chartData"`
}

// Compute is pure and safe to call on every render. ChartData always has
// five entries in the order Active, Pending, Completed, Cancelled, Draft.
// Unclassified statuses count toward Total only.
func Compute(projects []model.Project) Stats {
	counts := make(map[status.Bucket]int, len(status.Buckets))
	var s Stats

	for _, p := range projects {
		s.Total++
		s.TotalBudget += p.Budget.Float()
		counts[status.Classify(p.Status)]++
	}

	s.Active = counts[status.Active]
	s.Completed = counts[status.Completed]

	s.ChartData = make([]ChartBucket, 0, len(status.Buckets))
	for _, b := range status.Buckets {
		s.ChartData = append(s.ChartData, ChartBucket{Name: b.String(), Count: counts[b]})
	}
	return s
}
