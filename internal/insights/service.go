package insights

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/krishilink/krishilink/internal/members"
	"github.com/krishilink/krishilink/internal/shared"
)

const cacheKey = "insights:admin"

// Snapshot is the admin dashboard read model. Amounts carry a formatted
// rendering alongside the raw value so clients do not reimplement grouping.
type Snapshot struct {
	TotalMembers           int64     `json:"totalMembers"`
	ActiveProducts         int64     `json:"activeProducts"`
	TotalSales             float64   `json:"totalSales"`
	TotalSalesDisplay      string    `json:"totalSalesDisplay"`
	TotalProfit            float64   `json:"totalProfit"`
	TotalProfitDisplay     string    `json:"totalProfitDisplay"`
	PendingVerifications   int64     `json:"pendingVerifications"`
	PendingCommissions     float64   `json:"pendingCommissions"`
	PendingCommissionsText string    `json:"pendingCommissionsDisplay"`
	GeneratedAt            time.Time `json:"generatedAt"`
}

// RepositoryPort collects the raw aggregates.
type RepositoryPort interface {
	Collect(ctx context.Context) (*Snapshot, error)
}

// Service serves the admin snapshot through a short-lived redis cache, so
// the dashboard does not hammer the aggregate queries on every load.
type Service struct {
	repo    RepositoryPort
	cache   *redis.Client
	ttl     time.Duration
	printer *message.Printer
	logger  *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, cache *redis.Client, ttl time.Duration, logger *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		cache:   cache,
		ttl:     ttl,
		printer: message.NewPrinter(language.English),
		logger:  logger,
	}
}

// AdminSnapshot returns the dashboard snapshot, cached. Admin only.
func (s *Service) AdminSnapshot(ctx context.Context, actor members.Member) (*Snapshot, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: admin only", shared.ErrForbidden)
	}

	if data, err := s.cache.Get(ctx, cacheKey).Bytes(); err == nil {
		var snap Snapshot
		if err := json.Unmarshal(data, &snap); err == nil {
			return &snap, nil
		}
		s.logger.Warn("insights: discarding unreadable cache entry")
	} else if !errors.Is(err, redis.Nil) {
		s.logger.Warn("insights: cache read failed", slog.Any("error", err))
	}

	return s.Refresh(ctx)
}

// Refresh recomputes the snapshot and stores it in the cache. The worker
// cron calls this so the first morning dashboard load is warm.
func (s *Service) Refresh(ctx context.Context) (*Snapshot, error) {
	snap, err := s.repo.Collect(ctx)
	if err != nil {
		return nil, fmt.Errorf("insights: collect: %w", err)
	}
	snap.GeneratedAt = time.Now().UTC()
	snap.TotalSalesDisplay = s.rupees(snap.TotalSales)
	snap.TotalProfitDisplay = s.rupees(snap.TotalProfit)
	snap.PendingCommissionsText = s.rupees(snap.PendingCommissions)

	data, err := json.Marshal(snap)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, cacheKey, data, s.ttl).Err(); err != nil {
		s.logger.Warn("insights: cache write failed", slog.Any("error", err))
	}
	return snap, nil
}

func (s *Service) rupees(amount float64) string {
	return s.printer.Sprintf("₹%.2f", amount)
}
