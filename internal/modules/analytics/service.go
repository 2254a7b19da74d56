package analytics

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tradebook/journal/internal/modules/journal"
	"github.com/tradebook/journal/internal/modules/snapshots"
)

// TradeSource is the upstream data boundary. The repository satisfies it;
// tests substitute an in-memory implementation.
type TradeSource interface {
	GetAll() ([]journal.Trade, error)
	CountAll() (int, error)
	LastChangedAt() (*time.Time, error)
}

// Service computes analytics reports over the journal.
//
// Reports are memoized on the last (journal fingerprint, range) pair and
// persisted to the snapshot cache as a performance layer; correctness never
// depends on either cache. Every computation reads a fresh trade set from
// the source, so a report can never pair stale trades with a fresh range.
type Service struct {
	source   TradeSource
	cache    *snapshots.Repository // optional, may be nil
	cacheTTL time.Duration
	log      zerolog.Logger

	mu         sync.Mutex
	memoKey    string
	memoReport *Report
}

// NewService creates a new analytics service.
func NewService(source TradeSource, cache *snapshots.Repository, cacheTTL time.Duration, log zerolog.Logger) *Service {
	return &Service{
		source:   source,
		cache:    cache,
		cacheTTL: cacheTTL,
		log:      log.With().Str("service", "analytics").Logger(),
	}
}

// Report computes (or returns the cached) full analytics report for a range.
func (s *Service) Report(r *DateRange) (*Report, error) {
	key, err := s.reportKey(r)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.memoKey == key && s.memoReport != nil {
		report := s.memoReport
		s.mu.Unlock()
		return report, nil
	}
	s.mu.Unlock()

	if s.cache != nil {
		var cached Report
		fresh, err := s.cache.GetIfFresh(key, &cached)
		if err != nil {
			// Cache trouble is not report trouble
			s.log.Warn().Err(err).Str("key", key).Msg("Snapshot cache read failed")
		} else if fresh {
			s.memoize(key, &cached)
			return &cached, nil
		}
	}

	trades, err := s.source.GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to load trades: %w", err)
	}

	report := s.compute(trades, r)

	if s.cache != nil {
		if err := s.cache.Store(key, report, s.cacheTTL); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("Snapshot cache write failed")
		}
	}

	s.memoize(key, report)
	return report, nil
}

// compute runs the full pipeline: filter, aggregate, series, breakdowns.
func (s *Service) compute(trades []journal.Trade, r *DateRange) *Report {
	filtered := FilterByRange(trades, r)

	return &Report{
		Summary:     Aggregate(filtered),
		Series:      BuildSeries(trades, r),
		Weekdays:    BuildWeekdayBuckets(filtered),
		Hours:       BuildHourBuckets(filtered),
		Moods:       BreakdownBy(filtered, MoodKey),
		Strategies:  BreakdownBy(filtered, StrategyKey),
		Options:     BreakdownBy(filtered, OptionTypeKey),
		GeneratedAt: time.Now().UTC(),
	}
}

// EquityCurve returns the cumulative P&L curve for a range.
func (s *Service) EquityCurve(r *DateRange, smoothWindow int) ([]EquityPoint, error) {
	trades, err := s.source.GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to load trades: %w", err)
	}

	return BuildEquityCurve(FilterByRange(trades, r), smoothWindow), nil
}

// Breakdown returns a single categorical breakdown for a range.
func (s *Service) Breakdown(r *DateRange, key KeyFunc) ([]CategoryStat, error) {
	trades, err := s.source.GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to load trades: %w", err)
	}

	return BreakdownBy(FilterByRange(trades, r), key), nil
}

// Invalidate discards memoized and cached reports. Wired to journal-changed
// events so the next request recomputes from fresh data.
func (s *Service) Invalidate() {
	s.mu.Lock()
	s.memoKey = ""
	s.memoReport = nil
	s.mu.Unlock()

	if s.cache != nil {
		if err := s.cache.DeleteAll(); err != nil {
			s.log.Warn().Err(err).Msg("Failed to clear snapshot cache")
		}
	}
}

// Warm precomputes and caches reports for the given ranges.
// Used by the scheduled refresh job.
func (s *Service) Warm(ranges []*DateRange) {
	for _, r := range ranges {
		if _, err := s.Report(r); err != nil {
			s.log.Warn().Err(err).Msg("Failed to warm analytics report")
		}
	}
}

func (s *Service) memoize(key string, report *Report) {
	s.mu.Lock()
	s.memoKey = key
	s.memoReport = report
	s.mu.Unlock()
}

// reportKey builds a cache key from the range and a journal fingerprint,
// so any insert/update/delete naturally misses old entries.
func (s *Service) reportKey(r *DateRange) (string, error) {
	count, err := s.source.CountAll()
	if err != nil {
		return "", fmt.Errorf("failed to fingerprint journal: %w", err)
	}

	lastChanged, err := s.source.LastChangedAt()
	if err != nil {
		return "", fmt.Errorf("failed to fingerprint journal: %w", err)
	}

	changed := int64(0)
	if lastChanged != nil {
		changed = lastChanged.Unix()
	}

	return fmt.Sprintf("report:%s:%d:%d", RangeKey(r), count, changed), nil
}

// RangeKey returns a stable string identity for a range.
func RangeKey(r *DateRange) string {
	if r == nil || r.From.IsZero() {
		return "all"
	}
	to := "now"
	if !r.To.IsZero() {
		to = r.To.UTC().Format("2006-01-02")
	}
	return r.From.UTC().Format("2006-01-02") + ".." + to
}
