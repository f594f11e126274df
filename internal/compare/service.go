// Package compare answers ad-hoc "how does this building/area compare to
// its surroundings" queries straight from the raw records, with cached
// reference baselines for the next level up.
package compare

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"marketpulse/server/config"
	"marketpulse/server/internal/bedrooms"
	"marketpulse/server/internal/cache"
	"marketpulse/server/internal/database"
	"marketpulse/server/internal/models"
	"marketpulse/server/internal/stats"
)

// ErrInvalidKind is returned for a kind outside {sale, rent}.
var ErrInvalidKind = errors.New("invalid record kind")

// Request is one comparison query.
type Request struct {
	Kind       models.Kind
	SearchTerm string
	Bedrooms   string
	Period     string
	Persist    bool
}

// Service computes comparison results. Safe for concurrent callers; the
// only shared mutable state is the injected TTL cache.
type Service struct {
	db     *database.Database
	cache  *cache.Store
	cfg    *config.Config
	logger *logrus.Logger
	now    func() time.Time
}

// NewService creates a comparison service. A nil clock defaults to time.Now.
func NewService(db *database.Database, store *cache.Store, cfg *config.Config, logger *logrus.Logger, clock func() time.Time) *Service {
	if logger == nil {
		logger = logrus.New()
	}
	if clock == nil {
		clock = time.Now
	}
	return &Service{db: db, cache: store, cfg: cfg, logger: logger, now: clock}
}

// target is the resolved subject of a comparison.
type target struct {
	level      string // building | project | area | city
	id         *int64
	name       string
	scope      database.Scope
	resolved   bool // search term matched a known entity
	refAreaID  *int64
	refIsCity  bool
	identity   string // cache-key identity, "none" for city-wide
	buildings  []models.Building
	unitsTotal int
	unitsKnown bool
}

// Compare resolves the search term, computes current and prior window
// metrics from the raw records, and attaches the versus-baseline figures.
// An unresolvable term degrades to a city-wide answer instead of failing.
func (s *Service) Compare(ctx context.Context, req Request) (*models.ComparisonResult, error) {
	if !req.Kind.Valid() {
		return nil, ErrInvalidKind
	}
	period, err := config.GetPeriodByLabel(req.Period)
	if err != nil {
		return nil, err
	}

	var classFilter *bedrooms.Class
	if req.Bedrooms != "" {
		c, err := bedrooms.Normalize(req.Bedrooms)
		if err != nil {
			return nil, err
		}
		classFilter = &c
	}

	timeout := time.Duration(s.cfg.Compare.TimeoutSeconds) * time.Second
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tgt, err := s.resolve(ctx, req.SearchTerm)
	if err != nil {
		return nil, err
	}

	// Only resolved entities and the no-term city-wide case are cached;
	// arbitrary free text would blow up cache cardinality.
	cacheable := tgt.resolved || req.SearchTerm == ""
	resultKey := cache.Key("result", string(req.Kind), tgt.identity, req.Bedrooms, req.Period)

	if cacheable {
		if v, ok := s.cache.Get(resultKey); ok {
			result := v.(*models.ComparisonResult)
			if req.Persist {
				if err := s.persist(ctx, req, result); err != nil {
					s.logger.WithError(err).Error("Failed to persist comparison query")
				}
			}
			return result, nil
		}
	}

	result, err := s.compute(ctx, req, period, classFilter, tgt)
	if err != nil {
		return nil, err
	}

	if cacheable {
		s.cache.Set(resultKey, result)
	}
	if req.Persist {
		if err := s.persist(ctx, req, result); err != nil {
			s.logger.WithError(err).Error("Failed to persist comparison query")
		}
	}
	return result, nil
}

func (s *Service) persist(ctx context.Context, req Request, result *models.ComparisonResult) error {
	return s.db.InsertQueryLog(ctx, &models.QueryLog{
		ID:         uuid.NewString(),
		Kind:       req.Kind,
		SearchTerm: req.SearchTerm,
		Bedrooms:   req.Bedrooms,
		Period:     req.Period,
		Result:     *result,
		CreatedAt:  s.now().UTC(),
	})
}

// resolve maps the search term to a target. Resolution order is building,
// project, area, then city-wide; first match wins, lowest id on ties.
func (s *Service) resolve(ctx context.Context, term string) (*target, error) {
	tgt := &target{level: "city", identity: "none"}

	if term != "" {
		res, err := s.db.ResolveSearchTerm(ctx, term)
		if err != nil && !errors.Is(err, database.ErrNotFound) {
			return nil, err
		}
		if err == nil {
			if res.Ambiguous {
				s.logger.WithFields(logrus.Fields{
					"term":  term,
					"level": res.Level,
					"id":    res.ID,
				}).Warn("Ambiguous entity resolution, proceeding with first match")
			}
			tgt.level = res.Level
			tgt.id = &res.ID
			tgt.name = res.Name
			tgt.resolved = true
			tgt.identity = fmt.Sprintf("%s:%d", res.Level, res.ID)
		}
	}

	switch tgt.level {
	case database.ResolvedBuilding:
		building, err := s.db.GetBuilding(ctx, *tgt.id)
		if err != nil {
			return nil, err
		}
		tgt.scope = database.Scope{BuildingIDs: []int64{building.ID}}
		tgt.refAreaID = building.AreaID
		tgt.buildings = []models.Building{*building}
	case database.ResolvedProject:
		ids, err := s.db.GetProjectBuildingIDs(ctx, *tgt.id)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			building, err := s.db.GetBuilding(ctx, id)
			if err != nil {
				return nil, err
			}
			tgt.buildings = append(tgt.buildings, *building)
			if tgt.refAreaID == nil {
				tgt.refAreaID = building.AreaID
			}
		}
		if len(ids) == 0 {
			// A project with no buildings matches nothing; the zero-value
			// scope would widen the query to city-wide.
			tgt.scope = database.Scope{Empty: true}
		} else {
			tgt.scope = database.Scope{BuildingIDs: ids}
		}
	case database.ResolvedArea:
		tgt.scope = database.Scope{AreaID: tgt.id}
		tgt.refIsCity = true
		buildings, err := s.db.GetBuildings(ctx, tgt.id)
		if err != nil {
			return nil, err
		}
		tgt.buildings = buildings
	default:
		buildings, err := s.db.GetBuildings(ctx, nil)
		if err != nil {
			return nil, err
		}
		tgt.buildings = buildings
	}

	return tgt, nil
}

func (s *Service) compute(ctx context.Context, req Request, period *config.Period, classFilter *bedrooms.Class, tgt *target) (*models.ComparisonResult, error) {
	// Day-aligned window boundaries (end of the current day) keep the
	// cache keys stable for the whole day while still covering today's
	// records.
	dayEnd := s.now().UTC().Truncate(24 * time.Hour).AddDate(0, 0, 1)
	curStart, curEnd, prevStart, prevEnd := period.Windows(dayEnd)

	tgt.unitsTotal, tgt.unitsKnown = totalUnits(tgt.buildings, classFilter)

	current, err := s.computeMetrics(ctx, req.Kind, tgt.scope, classFilter, curStart, curEnd, tgt.unitsTotal, tgt.unitsKnown)
	if err != nil {
		return nil, err
	}
	prior, err := s.computeMetrics(ctx, req.Kind, tgt.scope, classFilter, prevStart, prevEnd, tgt.unitsTotal, tgt.unitsKnown)
	if err != nil {
		return nil, err
	}

	reference, err := s.referenceMetrics(ctx, req, classFilter, tgt, curStart, curEnd)
	if err != nil {
		return nil, err
	}

	cityGrowth, err := s.cityGrowth(ctx, req, classFilter, curStart, curEnd, prevStart, prevEnd)
	if err != nil {
		return nil, err
	}

	result := &models.ComparisonResult{
		Kind:          req.Kind,
		SearchTerm:    req.SearchTerm,
		Bedrooms:      req.Bedrooms,
		Period:        req.Period,
		ResolvedLevel: tgt.level,
		ResolvedID:    tgt.id,
		ResolvedName:  tgt.name,
		AvgPrice:      compareMetric(current.avgPrice, prior.avgPrice, reference, func(m *metricSet) *float64 { return m.avgPrice }),
		MedianPrice:   compareMetric(current.medianPrice, prior.medianPrice, reference, func(m *metricSet) *float64 { return m.medianPrice }),
		PricePerArea:  compareMetric(current.pricePerArea, prior.pricePerArea, reference, func(m *metricSet) *float64 { return m.pricePerArea }),
		PriceRange:    compareMetric(current.priceRange, prior.priceRange, reference, func(m *metricSet) *float64 { return m.priceRange }),
		DealCount:     compareMetric(stats.Float(float64(current.dealCount)), stats.Float(float64(prior.dealCount)), reference, func(m *metricSet) *float64 { return stats.Float(float64(m.dealCount)) }),
		DealVolume:    compareMetric(current.dealVolume, prior.dealVolume, reference, func(m *metricSet) *float64 { return m.dealVolume }),
		Liquidity:     compareMetric(current.liquidity, prior.liquidity, reference, func(m *metricSet) *float64 { return m.liquidity }),
		ROI:           compareMetric(current.roi, prior.roi, reference, func(m *metricSet) *float64 { return m.roi }),
		BuildingCount: len(tgt.buildings),
		TotalDeals:    current.dealCount,
		CityGrowth:    cityGrowth,
		ComputedAt:    s.now().UTC(),
	}
	if tgt.unitsKnown {
		units := tgt.unitsTotal
		result.UnitCount = &units
	}
	return result, nil
}

func compareMetric(current, prior *float64, reference *metricSet, pick func(*metricSet) *float64) models.MetricComparison {
	m := models.MetricComparison{
		Current: current,
		Change:  stats.PercentChange(current, prior),
	}
	if reference != nil {
		m.Versus = stats.Versus(current, pick(reference))
	}
	return m
}

// totalUnits sums the known unit counts across the target's buildings,
// restricted to the class filter when present. Known is false when no
// building contributes a known count.
func totalUnits(buildings []models.Building, classFilter *bedrooms.Class) (int, bool) {
	classes := bedrooms.AllClasses
	if classFilter != nil {
		classes = []bedrooms.Class{*classFilter}
	}

	total := 0
	known := false
	for _, b := range buildings {
		for _, c := range classes {
			if n, ok := bedrooms.UnitCount(b.Rooms, c); ok {
				total += n
				known = true
			}
		}
	}
	return total, known
}

// referenceMetrics computes (or fetches from cache) the next-level-up
// baseline: area for a building or project, city for an area, none for a
// city-wide query. City baselines are always cached; area baselines only
// for resolved targets, which is the only way they arise.
func (s *Service) referenceMetrics(ctx context.Context, req Request, classFilter *bedrooms.Class, tgt *target, from, to time.Time) (*metricSet, error) {
	var (
		scope    database.Scope
		identity string
	)

	switch {
	case tgt.level == database.ResolvedBuilding || tgt.level == database.ResolvedProject:
		if tgt.refAreaID == nil {
			// Building not linked to an area; fall back to the city baseline.
			identity = "city"
		} else {
			scope = database.Scope{AreaID: tgt.refAreaID}
			identity = fmt.Sprintf("area:%d", *tgt.refAreaID)
		}
	case tgt.refIsCity:
		identity = "city"
	default:
		// City-wide query: no next level up, the comparison degenerates.
		return nil, nil
	}

	key := cache.Key("ref", string(req.Kind), identity, req.Bedrooms, req.Period,
		from.Format(time.RFC3339), to.Format(time.RFC3339))

	v, err := s.cache.GetOrCompute(key, func() (interface{}, error) {
		m, err := s.computeMetrics(ctx, req.Kind, scope, classFilter, from, to, 0, false)
		if err != nil {
			return nil, err
		}
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*metricSet), nil
}

// cityGrowth is the city-wide percent change of the average price for the
// same kind, class and period. High reuse, so both windows are cached.
func (s *Service) cityGrowth(ctx context.Context, req Request, classFilter *bedrooms.Class, curStart, curEnd, prevStart, prevEnd time.Time) (*float64, error) {
	windowAvg := func(from, to time.Time) (*float64, error) {
		key := cache.Key("citywide", string(req.Kind), req.Bedrooms, req.Period,
			from.Format(time.RFC3339), to.Format(time.RFC3339))
		v, err := s.cache.GetOrCompute(key, func() (interface{}, error) {
			m, err := s.computeMetrics(ctx, req.Kind, database.Scope{}, classFilter, from, to, 0, false)
			if err != nil {
				return nil, err
			}
			return m, nil
		})
		if err != nil {
			return nil, err
		}
		return v.(*metricSet).avgPrice, nil
	}

	curAvg, err := windowAvg(curStart, curEnd)
	if err != nil {
		return nil, err
	}
	prevAvg, err := windowAvg(prevStart, prevEnd)
	if err != nil {
		return nil, err
	}
	return stats.PercentChange(curAvg, prevAvg), nil
}
