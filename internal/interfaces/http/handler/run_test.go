package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appsettlement "github.com/retailops/backend/internal/application/settlement"
	"github.com/retailops/backend/internal/domain/settlement"
	"github.com/retailops/backend/internal/domain/shared/valueobject"
	"github.com/retailops/backend/tests/testutil"
)

func seedClosedRun(t *testing.T, env *testutil.SettlementEnv) *settlement.Run {
	t.Helper()
	run, err := settlement.NewRun("RUN-001", testutil.TestAgentID())
	require.NoError(t, err)
	require.NoError(t, run.Dispatch())
	require.NoError(t, run.Close())
	env.Runs.Items[run.ID] = run
	return run
}

func seedRunReceivable(t *testing.T, env *testutil.SettlementEnv, runID uuid.UUID, saleNumber string, charge, collected, cash float64) *settlement.Receivable {
	t.Helper()
	r, err := settlement.NewReceivable(saleNumber, testutil.TestCustomerID(), "Acme Trading",
		testutil.TestAgentID(), &runID, valueobject.NewMoneyPHPFromFloat(charge))
	require.NoError(t, err)
	if collected > 0 {
		require.NoError(t, r.RecordCollection(valueobject.NewMoneyPHPFromFloat(collected)))
	}
	if cash > 0 {
		require.NoError(t, r.ApplyCashSettlement(valueobject.NewMoneyPHPFromFloat(cash)))
	}
	env.Receivables.Items[r.ID] = r
	return r
}

func TestRunHandler_Recompute_BalancedRunSettles(t *testing.T) {
	env := testutil.NewSettlementEnv()
	run := seedClosedRun(t, env)
	seedRunReceivable(t, env, run.ID, "SO-4001", 100, 100, 100)

	service := appsettlement.NewRunSettlementService(env.Transactor)
	engine := newTestEngine(NewRunHandler(service))

	w := testutil.ServeHTTP(t, engine, http.MethodPost, "/api/v1/runs/"+run.ID.String()+"/recompute", nil, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := testutil.AssertSuccessBody(t, w)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, true, data["balanced"])
	assert.Equal(t, "0", data["cash_gap"])

	assert.Equal(t, settlement.RunStatusSettled, env.Runs.Items[run.ID].Status)
}

func TestRunHandler_Recompute_GapOpensVariance(t *testing.T) {
	env := testutil.NewSettlementEnv()
	run := seedClosedRun(t, env)
	// Field says 100 collected, only 70 reached the drawer
	seedRunReceivable(t, env, run.ID, "SO-4001", 100, 100, 70)

	service := appsettlement.NewRunSettlementService(env.Transactor)
	engine := newTestEngine(NewRunHandler(service))

	w := testutil.ServeHTTP(t, engine, http.MethodPost, "/api/v1/runs/"+run.ID.String()+"/recompute", nil, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := testutil.AssertSuccessBody(t, w)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, false, data["balanced"])
	assert.Equal(t, "30", data["cash_gap"])

	assert.Equal(t, settlement.RunStatusClosed, env.Runs.Items[run.ID].Status)

	variances, err := env.Variances.FindByRun(context.Background(), run.ID)
	require.NoError(t, err)
	require.Len(t, variances, 1)
	assert.True(t, variances[0].GapAmount.Equal(env.Runs.Items[run.ID].CashGap))
}

func TestRunHandler_Recompute_NotFound(t *testing.T) {
	env := testutil.NewSettlementEnv()
	service := appsettlement.NewRunSettlementService(env.Transactor)
	engine := newTestEngine(NewRunHandler(service))

	w := testutil.ServeHTTP(t, engine, http.MethodPost, "/api/v1/runs/"+uuid.NewString()+"/recompute", nil, nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	testutil.AssertErrorBody(t, w, "NOT_FOUND")
}

func TestRunHandler_PostBridge(t *testing.T) {
	env := testutil.NewSettlementEnv()
	run := seedClosedRun(t, env)
	// 100 reportedly collected, 60 in the drawer, 40 bridgeable
	receivable := seedRunReceivable(t, env, run.ID, "SO-4001", 100, 100, 60)

	service := appsettlement.NewRunSettlementService(env.Transactor)
	engine := newTestEngine(NewRunHandler(service))

	body := map[string]interface{}{
		"receivable_id": receivable.ID.String(),
		"amount":        40.0,
		"reference":     "GCASH-123",
	}
	w := testutil.ServeHTTP(t, engine, http.MethodPost, "/api/v1/bridges", body, nil)

	assert.Equal(t, http.StatusCreated, w.Code)
	resp := testutil.AssertSuccessBody(t, w)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "NON_CASH_BRIDGE", data["method"])
	assert.Equal(t, "40", data["amount"])

	stored := env.Receivables.Items[receivable.ID]
	assert.Equal(t, settlement.ReceivableStatusSettled, stored.Status)
}

func TestRunHandler_PostBridge_ExceedsHeadroom(t *testing.T) {
	env := testutil.NewSettlementEnv()
	run := seedClosedRun(t, env)
	receivable := seedRunReceivable(t, env, run.ID, "SO-4001", 100, 100, 60)

	service := appsettlement.NewRunSettlementService(env.Transactor)
	engine := newTestEngine(NewRunHandler(service))

	body := map[string]interface{}{
		"receivable_id": receivable.ID.String(),
		"amount":        50.0,
		"reference":     "GCASH-123",
	}
	w := testutil.ServeHTTP(t, engine, http.MethodPost, "/api/v1/bridges", body, nil)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	testutil.AssertErrorBody(t, w, "INVALID_BRIDGE")
}

func TestRunHandler_Finalize_RequiresClearance(t *testing.T) {
	env := testutil.NewSettlementEnv()
	run := seedClosedRun(t, env)
	seedRunReceivable(t, env, run.ID, "SO-4001", 100, 100, 70)

	service := appsettlement.NewRunSettlementService(env.Transactor)
	engine := newTestEngine(NewRunHandler(service))

	w := testutil.ServeHTTP(t, engine, http.MethodPost, "/api/v1/runs/"+run.ID.String()+"/finalize", nil, nil)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	testutil.AssertErrorBody(t, w, "INSUFFICIENT_CLEARANCE")
}

func TestRunHandler_Finalize_WithWaivedVariance(t *testing.T) {
	env := testutil.NewSettlementEnv()
	run := seedClosedRun(t, env)
	seedRunReceivable(t, env, run.ID, "SO-4001", 100, 100, 70)

	variance, err := settlement.NewVariance(run.ID, run.AgentID,
		valueobject.NewMoneyPHPFromFloat(100), valueobject.NewMoneyPHPFromFloat(70))
	require.NoError(t, err)
	require.NoError(t, variance.Waive(testutil.TestOperatorID(), "written off"))
	require.NoError(t, env.Variances.Save(context.Background(), variance))

	service := appsettlement.NewRunSettlementService(env.Transactor)
	engine := newTestEngine(NewRunHandler(service))

	w := testutil.ServeHTTP(t, engine, http.MethodPost, "/api/v1/runs/"+run.ID.String()+"/finalize", nil, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := testutil.AssertSuccessBody(t, w)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "SETTLED", data["status"])
}

func TestRunHandler_Reconciliation(t *testing.T) {
	env := testutil.NewSettlementEnv()
	run := seedClosedRun(t, env)
	seedRunReceivable(t, env, run.ID, "SO-4001", 100, 100, 100)
	seedRunReceivable(t, env, run.ID, "SO-4002", 50, 50, 20)

	service := appsettlement.NewRunSettlementService(env.Transactor)
	engine := newTestEngine(NewRunHandler(service))

	w := testutil.ServeHTTP(t, engine, http.MethodGet, "/api/v1/runs/"+run.ID.String()+"/reconciliation", nil, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := testutil.AssertSuccessBody(t, w)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "150", data["expected_cash"])
	assert.Equal(t, "120", data["received_cash"])
	assert.Equal(t, "30", data["cash_gap"])
	assert.Len(t, data["truths"], 2)
}
