package service

import (
	"context"
	"errors"
	"time"

	"github.com/ecoroute/crm-api/internal/cache"
	"github.com/ecoroute/crm-api/internal/config"
	"github.com/ecoroute/crm-api/internal/domain"
	applog "github.com/ecoroute/crm-api/internal/logger"
	"github.com/ecoroute/crm-api/internal/mapper"
	"github.com/ecoroute/crm-api/internal/metrics"
	"github.com/ecoroute/crm-api/internal/pipeline"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Report parts, used as metric labels and in AggregationError
const (
	partLeads             = "leads"
	partActiveProposals   = "active_proposals"
	partProposalBreakdown = "proposal_breakdown"
	partActiveContracts   = "active_contracts"
	partContractBreakdown = "contract_breakdown"
	partClients           = "clients"
	partUpcomingEvents    = "upcoming_events"
	partRecentActivity    = "recent_activity"
)

type LeadCounter interface {
	CountClaimedBy(ctx context.Context, userID uuid.UUID) (int64, error)
}

type ProposalStats interface {
	CountByStatus(ctx context.Context, userID uuid.UUID) (map[domain.ProposalStatus]int64, error)
	CountInStatuses(ctx context.Context, userID uuid.UUID, statuses []domain.ProposalStatus) (int64, error)
}

type ContractStats interface {
	CountByStatus(ctx context.Context, userID uuid.UUID) (map[domain.ContractStatus]int64, error)
	CountNotInStatuses(ctx context.Context, userID uuid.UUID, statuses []domain.ContractStatus) (int64, error)
}

type ClientCounter interface {
	CountByAccountManager(ctx context.Context, userID uuid.UUID) (int64, error)
}

type EventLister interface {
	Upcoming(ctx context.Context, userID uuid.UUID, now time.Time, limit int) ([]domain.CalendarEvent, error)
}

type ActivityLister interface {
	Recent(ctx context.Context, userID uuid.UUID, limit int) ([]domain.ActivityLog, error)
}

// DashboardService builds the per-user dashboard report. Every figure is
// scoped to the principal's own records regardless of role.
type DashboardService struct {
	leads     LeadCounter
	proposals ProposalStats
	contracts ContractStats
	clients   ClientCounter
	events    EventLister
	activity  ActivityLister
	cache     *cache.Cache
	cfg       config.DashboardConfig
	logger    *zap.Logger
	now       func() time.Time
}

func NewDashboardService(
	leads LeadCounter,
	proposals ProposalStats,
	contracts ContractStats,
	clients ClientCounter,
	events EventLister,
	activity ActivityLister,
	reportCache *cache.Cache,
	cfg config.DashboardConfig,
	logger *zap.Logger,
) *DashboardService {
	if cfg.UpcomingEventsLimit <= 0 {
		cfg.UpcomingEventsLimit = 5
	}
	if cfg.RecentActivityLimit <= 0 {
		cfg.RecentActivityLimit = 5
	}
	return &DashboardService{
		leads:     leads,
		proposals: proposals,
		contracts: contracts,
		clients:   clients,
		events:    events,
		activity:  activity,
		cache:     reportCache,
		cfg:       cfg,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// BuildReport runs every sub-query concurrently and assembles the report once
// all have finished. The first failure cancels the rest and fails the report.
func (s *DashboardService) BuildReport(ctx context.Context, principal domain.Principal) (*domain.DashboardReport, error) {
	key, cached := s.cachedReport(ctx, principal)
	if cached != nil {
		return cached, nil
	}

	if timeout := s.cfg.QueryTimeoutDuration(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	userID := principal.ID
	now := s.now()

	var (
		leadCount       int64
		activeProposals int64
		proposalCounts  map[domain.ProposalStatus]int64
		activeContracts int64
		contractCounts  map[domain.ContractStatus]int64
		clientCount     int64
		events          []domain.CalendarEvent
		activity        []domain.ActivityLog
	)

	g, gctx := errgroup.WithContext(ctx)
	run := func(part string, fn func(ctx context.Context) error) {
		g.Go(func() error {
			start := time.Now()
			err := fn(gctx)
			metrics.ObserveSince(metrics.AggregationDuration.WithLabelValues(part), start)
			if err != nil {
				metrics.AggregationFailures.WithLabelValues(part).Inc()
				return &AggregationError{Part: part, Err: err}
			}
			return nil
		})
	}

	run(partLeads, func(ctx context.Context) (err error) {
		leadCount, err = s.leads.CountClaimedBy(ctx, userID)
		return err
	})
	run(partActiveProposals, func(ctx context.Context) (err error) {
		activeProposals, err = s.proposals.CountInStatuses(ctx, userID, pipeline.ProposalActive())
		return err
	})
	run(partProposalBreakdown, func(ctx context.Context) (err error) {
		proposalCounts, err = s.proposals.CountByStatus(ctx, userID)
		return err
	})
	run(partActiveContracts, func(ctx context.Context) (err error) {
		activeContracts, err = s.contracts.CountNotInStatuses(ctx, userID, pipeline.ContractTerminal())
		return err
	})
	run(partContractBreakdown, func(ctx context.Context) (err error) {
		contractCounts, err = s.contracts.CountByStatus(ctx, userID)
		return err
	})
	run(partClients, func(ctx context.Context) (err error) {
		clientCount, err = s.clients.CountByAccountManager(ctx, userID)
		return err
	})
	run(partUpcomingEvents, func(ctx context.Context) (err error) {
		events, err = s.events.Upcoming(ctx, userID, now, s.cfg.UpcomingEventsLimit)
		return err
	})
	run(partRecentActivity, func(ctx context.Context) (err error) {
		activity, err = s.activity.Recent(ctx, userID, s.cfg.RecentActivityLimit)
		return err
	})

	if err := g.Wait(); err != nil {
		part := "unknown"
		var aggErr *AggregationError
		if errors.As(err, &aggErr) {
			part = aggErr.Part
		}
		applog.WithPrincipal(s.logger, principal).Error("failed to build dashboard report",
			zap.Error(err),
			zap.String("part", part))
		return nil, err
	}

	eventDTOs := make([]domain.CalendarEventDTO, len(events))
	for i := range events {
		eventDTOs[i] = mapper.ToCalendarEventDTO(&events[i])
	}
	activityDTOs := make([]domain.ActivityDTO, len(activity))
	for i := range activity {
		activityDTOs[i] = mapper.ToActivityDTO(&activity[i])
	}

	report := &domain.DashboardReport{
		Stats: domain.DashboardStats{
			Leads:             leadCount,
			ActiveProposals:   activeProposals,
			ActiveContracts:   activeContracts,
			Clients:           clientCount,
			UpcomingEvents:    len(eventDTOs),
			RecentActivityLen: len(activityDTOs),
		},
		Pipeline: domain.DashboardPipeline{
			// leads have no status lifecycle
			Leads:     []domain.StatusCount{},
			Proposals: pipeline.Breakdown(pipeline.ProposalDisplay(), proposalCounts),
			Contracts: pipeline.Breakdown(pipeline.ContractDisplay(), contractCounts),
		},
		UpcomingEvents: eventDTOs,
		RecentActivity: activityDTOs,
	}

	s.storeReport(ctx, key, report)
	return report, nil
}

// cachedReport returns the cache key and, on a hit, the cached report.
// Cache errors are logged and treated as a miss.
func (s *DashboardService) cachedReport(ctx context.Context, principal domain.Principal) (string, *domain.DashboardReport) {
	if !s.cache.Enabled() {
		return "", nil
	}

	key, err := s.cache.BuildKey(ctx, "dashboard", principal.ID.String())
	if err != nil {
		metrics.ReportCacheLookups.WithLabelValues("error").Inc()
		s.logger.Warn("failed to build dashboard cache key", zap.Error(err))
		return "", nil
	}

	var report domain.DashboardReport
	hit, err := s.cache.Get(ctx, key, &report)
	switch {
	case err != nil:
		metrics.ReportCacheLookups.WithLabelValues("error").Inc()
		s.logger.Warn("failed to read cached dashboard report", zap.Error(err), zap.String("key", key))
		return key, nil
	case !hit:
		metrics.ReportCacheLookups.WithLabelValues("miss").Inc()
		return key, nil
	}
	metrics.ReportCacheLookups.WithLabelValues("hit").Inc()
	dropPastEvents(&report, s.now())
	return key, &report
}

// dropPastEvents removes events that started after the report was cached.
// Events that moved into the window since then appear after the next refresh.
func dropPastEvents(report *domain.DashboardReport, now time.Time) {
	upcoming := report.UpcomingEvents[:0]
	for _, event := range report.UpcomingEvents {
		at, err := time.Parse(time.RFC3339, event.ScheduledDate)
		if err == nil && at.Before(now) {
			continue
		}
		upcoming = append(upcoming, event)
	}
	report.UpcomingEvents = upcoming
	report.Stats.UpcomingEvents = len(upcoming)
}

func (s *DashboardService) storeReport(ctx context.Context, key string, report *domain.DashboardReport) {
	if key == "" {
		return
	}
	if err := s.cache.Set(ctx, key, report); err != nil {
		s.logger.Warn("failed to cache dashboard report", zap.Error(err), zap.String("key", key))
	}
}

// InvalidateReports drops every cached report
func (s *DashboardService) InvalidateReports(ctx context.Context) error {
	ver, err := s.cache.Bump(ctx)
	if err != nil {
		return err
	}
	s.logger.Debug("dashboard report cache invalidated", zap.Int64("version", ver))
	return nil
}
