package services

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/texperia/registration/models"
	"github.com/texperia/registration/repositories"
)

// DashboardService serves the admin statistics. Every method is restricted to
// the caller's scope; a global admin may narrow by event.
type DashboardService interface {
	GetStats(ctx context.Context, scope models.AdminScope) (models.DashboardStats, error)
	Departments(ctx context.Context, scope models.AdminScope) ([]models.DepartmentCount, error)
	RevenueChart(ctx context.Context, scope models.AdminScope, event *models.EventID) ([]models.RevenuePoint, error)
	YearStats(ctx context.Context, scope models.AdminScope, event *models.EventID) ([]models.YearCount, error)
	EventStats(ctx context.Context, scope models.AdminScope) ([]models.EventStats, error)
}

type dashboardService struct {
	statsRepo repositories.StatsRepository
	catalog   models.EventCatalog
}

func NewDashboardService(statsRepo repositories.StatsRepository, catalog models.EventCatalog) DashboardService {
	return &dashboardService{
		statsRepo: statsRepo,
		catalog:   catalog,
	}
}

func (s *dashboardService) GetStats(ctx context.Context, scope models.AdminScope) (models.DashboardStats, error) {
	event := scope.EventFilter(nil)

	var (
		stats       models.DashboardStats
		departments []models.DepartmentCount
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stats.TotalTeams, stats.VerifiedTeams, err = s.statsRepo.TeamTotals(gctx, event)
		return err
	})
	g.Go(func() error {
		var err error
		stats.TotalRevenue, stats.PendingPayments, err = s.statsRepo.PaymentTotals(gctx, event)
		return err
	})
	g.Go(func() error {
		var err error
		departments, err = s.statsRepo.Departments(gctx, event)
		return err
	})
	if err := g.Wait(); err != nil {
		return models.DashboardStats{}, err
	}

	stats.Departments = make(map[string]int, len(departments))
	for _, d := range departments {
		stats.Departments[d.Department] = d.Count
	}
	return stats, nil
}

func (s *dashboardService) Departments(ctx context.Context, scope models.AdminScope) ([]models.DepartmentCount, error) {
	return s.statsRepo.Departments(ctx, scope.EventFilter(nil))
}

func (s *dashboardService) RevenueChart(ctx context.Context, scope models.AdminScope, event *models.EventID) ([]models.RevenuePoint, error) {
	return s.statsRepo.RevenueByDay(ctx, scope.EventFilter(event))
}

func (s *dashboardService) YearStats(ctx context.Context, scope models.AdminScope, event *models.EventID) ([]models.YearCount, error) {
	return s.statsRepo.Years(ctx, scope.EventFilter(event))
}

// EventStats lists per-event totals for every event the scope covers, in the
// catalog's fixed order.
func (s *dashboardService) EventStats(ctx context.Context, scope models.AdminScope) ([]models.EventStats, error) {
	events := make([]models.Event, 0)
	for _, ev := range s.catalog.All() {
		if scope.Allows(ev.ID) {
			events = append(events, ev)
		}
	}

	result := make([]models.EventStats, len(events))
	g, gctx := errgroup.WithContext(ctx)
	for i, ev := range events {
		i, ev := i, ev
		g.Go(func() error {
			id := ev.ID
			total, verified, err := s.statsRepo.TeamTotals(gctx, &id)
			if err != nil {
				return err
			}
			revenue, pending, err := s.statsRepo.PaymentTotals(gctx, &id)
			if err != nil {
				return err
			}
			result[i] = models.EventStats{
				EventID:         ev.ID,
				EventName:       ev.Name,
				TotalTeams:      total,
				VerifiedTeams:   verified,
				TotalRevenue:    revenue,
				PendingPayments: pending,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

