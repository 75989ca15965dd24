package monitor

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/apiwatch/apiwatch/internal/domain/result"
)

// Stats summarizes check results over a rolling window. Latency aggregates
// cover only results with a measured (positive) response time; counts and
// the success rate cover every result in the window.
type Stats struct {
	TotalChecks     int     `json:"total_checks"`
	SuccessRate     float64 `json:"success_rate"`
	AvgResponseTime float64 `json:"avg_response_time"`
	MinResponseTime int64   `json:"min_response_time"`
	MaxResponseTime int64   `json:"max_response_time"`
	ErrorCount      int     `json:"error_count"`
}

type StatsAggregator struct {
	results result.Repo
}

func NewStatsAggregator(results result.Repo) *StatsAggregator {
	return &StatsAggregator{results: results}
}

// Stats computes aggregates over results newer than now-window. An empty
// window yields the zero-valued record, not an error.
func (s *StatsAggregator) Stats(ctx context.Context, endpointID int64, window time.Duration) (*Stats, error) {
	since := time.Now().UTC().Add(-window)
	rows, err := s.results.ListSince(ctx, endpointID, since)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}

	st := &Stats{TotalChecks: len(rows)}
	if len(rows) == 0 {
		return st, nil
	}

	var (
		successes int
		measured  int
		sum       int64
	)
	for _, r := range rows {
		if r.Success {
			successes++
		} else {
			st.ErrorCount++
		}
		if r.ResponseTime <= 0 {
			continue
		}
		sum += r.ResponseTime
		measured++
		if st.MinResponseTime == 0 || r.ResponseTime < st.MinResponseTime {
			st.MinResponseTime = r.ResponseTime
		}
		if r.ResponseTime > st.MaxResponseTime {
			st.MaxResponseTime = r.ResponseTime
		}
	}

	st.SuccessRate = round2(float64(successes) / float64(len(rows)) * 100)
	if measured > 0 {
		st.AvgResponseTime = round2(float64(sum) / float64(measured))
	}
	return st, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
