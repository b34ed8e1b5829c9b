package handlers

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"powerplan/internal/types"
)

type mockAnalyticsRepo struct {
	byTaxGroupFn func(ctx context.Context) ([]types.GroupCount, error)
	byPlanFn     func(ctx context.Context) ([]types.GroupCount, error)
	calls        atomic.Int32
}

func (m *mockAnalyticsRepo) CountByTaxGroup(ctx context.Context) ([]types.GroupCount, error) {
	m.calls.Add(1)
	if m.byTaxGroupFn != nil {
		return m.byTaxGroupFn(ctx)
	}
	return []types.GroupCount{{ID: "tg_home", Name: "Home", UserCount: 3}}, nil
}

func (m *mockAnalyticsRepo) CountByPlan(ctx context.Context) ([]types.GroupCount, error) {
	m.calls.Add(1)
	if m.byPlanFn != nil {
		return m.byPlanFn(ctx)
	}
	return []types.GroupCount{
		{ID: "plan_green", Name: "Green", UserCount: 2},
		{ID: "plan_idle", Name: "Idle", UserCount: 0},
	}, nil
}

func newTestAnalyticsRouter(repo *mockAnalyticsRepo, actor *types.Actor) http.Handler {
	return newTestRouter(Set{Analytics: NewAnalyticsHandler(repo, testLogger())}, actor)
}

func TestAnalyticsHandler_CountByTaxGroup(t *testing.T) {
	w := serve(newTestAnalyticsRouter(&mockAnalyticsRepo{}, adminActor()),
		jsonRequest(t, http.MethodGet, "/users/count-by-taxgroup", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var counts []types.GroupCount
	decodeData(t, w, &counts)
	require.Len(t, counts, 1)
	assert.Equal(t, 3, counts[0].UserCount)
}

func TestAnalyticsHandler_CountByPlan_IncludesEmptyPlans(t *testing.T) {
	w := serve(newTestAnalyticsRouter(&mockAnalyticsRepo{}, adminActor()),
		jsonRequest(t, http.MethodGet, "/users/count-by-plan", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var counts []types.GroupCount
	meta := decodeData(t, w, &counts)
	assert.Equal(t, 2, meta.Count)
	assert.Equal(t, 0, counts[1].UserCount)
}

func TestAnalyticsHandler_Stats(t *testing.T) {
	repo := &mockAnalyticsRepo{}

	w := serve(newTestAnalyticsRouter(repo, adminActor()), jsonRequest(t, http.MethodGet, "/users/stats", nil))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var stats StatsResponse
	decodeData(t, w, &stats)
	assert.Len(t, stats.ByTaxGroup, 1)
	assert.Len(t, stats.ByPlan, 2)
	assert.Equal(t, int32(2), repo.calls.Load())
}

func TestAnalyticsHandler_Stats_EmptyRendersArrays(t *testing.T) {
	repo := &mockAnalyticsRepo{
		byTaxGroupFn: func(context.Context) ([]types.GroupCount, error) { return nil, nil },
		byPlanFn:     func(context.Context) ([]types.GroupCount, error) { return nil, nil },
	}

	w := serve(newTestAnalyticsRouter(repo, adminActor()), jsonRequest(t, http.MethodGet, "/users/stats", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":{"by_tax_group":[],"by_plan":[]}}`, w.Body.String())
}

func TestAnalyticsHandler_Stats_FailureCancelsSibling(t *testing.T) {
	repo := &mockAnalyticsRepo{
		byTaxGroupFn: func(context.Context) ([]types.GroupCount, error) {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to count users", errors.New("timeout"))
		},
		byPlanFn: func(ctx context.Context) ([]types.GroupCount, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}

	w := serve(newTestAnalyticsRouter(repo, adminActor()), jsonRequest(t, http.MethodGet, "/users/stats", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, string(types.ErrCodeInternalDB), decodeError(t, w).Code)
}

func TestAnalyticsHandler_AdminOnly(t *testing.T) {
	for _, path := range []string{"/users/count-by-taxgroup", "/users/count-by-plan", "/users/stats"} {
		w := serve(newTestAnalyticsRouter(&mockAnalyticsRepo{}, userActor("usr_1")), jsonRequest(t, http.MethodGet, path, nil))
		assert.Equal(t, http.StatusForbidden, w.Code, path)

		w = serve(newTestAnalyticsRouter(&mockAnalyticsRepo{}, nil), jsonRequest(t, http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestSet_AnalyticsPathsWinOverUserID(t *testing.T) {
	repo := newMockUserRepo(sampleUsers()...)
	users := NewUserHandler(repo, &mockExistence{}, &mockExistence{}, mockHasher{}, testValidator(), testLogger())
	router := newTestRouter(Set{Users: users, Analytics: NewAnalyticsHandler(&mockAnalyticsRepo{}, testLogger())}, adminActor())

	w := serve(router, jsonRequest(t, http.MethodGet, "/users/stats", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(router, jsonRequest(t, http.MethodGet, "/users/usr_admin", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
