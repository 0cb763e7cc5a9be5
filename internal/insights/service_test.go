package insights

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/krishilink/krishilink/internal/members"
	"github.com/krishilink/krishilink/internal/shared"
)

type countingRepo struct {
	calls int
	snap  Snapshot
}

func (r *countingRepo) Collect(context.Context) (*Snapshot, error) {
	r.calls++
	cp := r.snap
	return &cp, nil
}

func testService(t *testing.T, repo *countingRepo) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewService(repo, client, time.Minute, slog.Default())
}

func TestAdminSnapshotServedFromCache(t *testing.T) {
	repo := &countingRepo{snap: Snapshot{TotalMembers: 5, TotalSales: 1234567.5}}
	svc := testService(t, repo)
	admin := members.Member{ID: uuid.New(), Role: members.RoleAdmin}

	first, err := svc.AdminSnapshot(context.Background(), admin)
	require.NoError(t, err)
	require.Equal(t, int64(5), first.TotalMembers)
	require.Equal(t, "₹1,234,567.50", first.TotalSalesDisplay)

	_, err = svc.AdminSnapshot(context.Background(), admin)
	require.NoError(t, err)
	require.Equal(t, 1, repo.calls)
}

func TestRefreshRecomputes(t *testing.T) {
	repo := &countingRepo{snap: Snapshot{TotalMembers: 5}}
	svc := testService(t, repo)
	admin := members.Member{ID: uuid.New(), Role: members.RoleAdmin}

	_, err := svc.AdminSnapshot(context.Background(), admin)
	require.NoError(t, err)

	repo.snap.TotalMembers = 6
	_, err = svc.Refresh(context.Background())
	require.NoError(t, err)

	snap, err := svc.AdminSnapshot(context.Background(), admin)
	require.NoError(t, err)
	require.Equal(t, int64(6), snap.TotalMembers)
	require.Equal(t, 2, repo.calls)
}

func TestAdminSnapshotRequiresAdmin(t *testing.T) {
	svc := testService(t, &countingRepo{})
	dealer := members.Member{ID: uuid.New(), Role: members.RoleDealer}

	_, err := svc.AdminSnapshot(context.Background(), dealer)
	require.ErrorIs(t, err, shared.ErrForbidden)
}
