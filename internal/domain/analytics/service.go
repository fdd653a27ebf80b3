package analytics

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/casework/casework/internal/platform/apperr"
)

var now = time.Now

// Report is the evaluated form of a Definition. Summary reports fill
// Counts; every other report fills Results keyed by query.
type Report struct {
	Type        string                              `json:"type"`
	Name        string                              `json:"name"`
	Range       string                              `json:"range,omitempty"`
	Since       *time.Time                          `json:"since,omitempty"`
	GeneratedAt time.Time                           `json:"generatedAt"`
	Results     map[string][]map[string]interface{} `json:"results,omitempty"`
	Counts      map[string]int64                    `json:"counts,omitempty"`
}

type Service struct {
	repo        Repository
	concurrency int
	logger      zerolog.Logger
}

func NewService(repo Repository, concurrency int, logger zerolog.Logger) *Service {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Service{repo: repo, concurrency: concurrency, logger: logger.With().Str("service", "analytics").Logger()}
}

// Run evaluates the named report. An empty report name means summary.
func (s *Service) Run(ctx context.Context, reportID, rangeName string) (*Report, error) {
	if reportID == "" {
		reportID = ReportSummary
	}
	def := Find(reportID)
	if def == nil {
		return nil, apperr.Validation("report must be one of " + strings.Join(reportIDs(), ", "))
	}
	at := now().UTC()
	since, err := Since(rangeName, at)
	if err != nil {
		return nil, err
	}
	if rangeName == "" {
		rangeName = RangeLastMonth
	}

	rep := &Report{Type: def.ID, Name: def.Name, GeneratedAt: at}
	if def.Ranged {
		rep.Range = rangeName
		rep.Since = &since
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	if def.ID == ReportSummary {
		rep.Counts = make(map[string]int64, len(def.Queries))
	} else {
		rep.Results = make(map[string][]map[string]interface{}, len(def.Queries))
	}
	for _, q := range def.Queries {
		q := q
		args := bind(q.Param, since, at)
		g.Go(func() error {
			if rep.Counts != nil {
				n, err := s.repo.Count(gctx, q.SQL, args...)
				if err != nil {
					return err
				}
				mu.Lock()
				rep.Counts[q.Key] = n
				mu.Unlock()
				return nil
			}
			rows, err := s.repo.Rows(gctx, q.SQL, args...)
			if err != nil {
				return err
			}
			mu.Lock()
			rep.Results[q.Key] = rows
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Error().Err(err).Str("report", def.ID).Msg("report evaluation failed")
		return nil, err
	}
	return rep, nil
}

func bind(p Param, since, at time.Time) []interface{} {
	switch p {
	case ParamSince:
		return []interface{}{since}
	case ParamOverdueCutoff:
		return []interface{}{at.Add(-OverdueAfter)}
	}
	return nil
}
