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

func seedVariance(t *testing.T, env *testutil.SettlementEnv, expected, received float64) *settlement.Variance {
	t.Helper()
	v, err := settlement.NewVariance(testutil.NewTestUUID("run-1"), testutil.TestAgentID(),
		valueobject.NewMoneyPHPFromFloat(expected), valueobject.NewMoneyPHPFromFloat(received))
	require.NoError(t, err)
	require.NoError(t, env.Variances.Save(context.Background(), v))
	return v
}

func TestVarianceHandler_Get(t *testing.T) {
	env := testutil.NewSettlementEnv()
	variance := seedVariance(t, env, 500, 450)

	service := appsettlement.NewVarianceService(env.Transactor)
	engine := newTestEngine(NewVarianceHandler(service, env.Variances))

	w := testutil.ServeHTTP(t, engine, http.MethodGet, "/api/v1/variances/"+variance.ID.String(), nil, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := testutil.AssertSuccessBody(t, w)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "OPEN", data["status"])
	assert.Equal(t, "50", data["gap_amount"])
}

func TestVarianceHandler_Get_NotFound(t *testing.T) {
	env := testutil.NewSettlementEnv()
	service := appsettlement.NewVarianceService(env.Transactor)
	engine := newTestEngine(NewVarianceHandler(service, env.Variances))

	w := testutil.ServeHTTP(t, engine, http.MethodGet, "/api/v1/variances/"+uuid.NewString(), nil, nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	testutil.AssertErrorBody(t, w, "NOT_FOUND")
}

func TestVarianceHandler_ApproveThenAccept(t *testing.T) {
	env := testutil.NewSettlementEnv()
	variance := seedVariance(t, env, 500, 450)

	service := appsettlement.NewVarianceService(env.Transactor)
	engine := newTestEngine(NewVarianceHandler(service, env.Variances))

	approveBody := map[string]interface{}{
		"resolution":  "CHARGE_AGENT",
		"approver_id": testutil.TestOperatorID().String(),
		"notes":       "Shortage confirmed against the run sheet",
	}
	w := testutil.ServeHTTP(t, engine, http.MethodPost, "/api/v1/variances/"+variance.ID.String()+"/approve", approveBody, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, settlement.VarianceStatusManagerApproved, env.Variances.Items[variance.ID].Status)

	w = testutil.ServeHTTP(t, engine, http.MethodPost, "/api/v1/variances/"+variance.ID.String()+"/accept", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, settlement.VarianceStatusAgentAccepted, env.Variances.Items[variance.ID].Status)

	charge, err := env.Charges.FindByVariance(context.Background(), variance.ID)
	require.NoError(t, err)
	require.NotNil(t, charge, "accepting a CHARGE_AGENT variance books a personal charge")
	assert.True(t, charge.Outstanding().Equal(variance.GapAmount))
}

func TestVarianceHandler_Approve_InvalidResolution(t *testing.T) {
	env := testutil.NewSettlementEnv()
	variance := seedVariance(t, env, 500, 450)

	service := appsettlement.NewVarianceService(env.Transactor)
	engine := newTestEngine(NewVarianceHandler(service, env.Variances))

	body := map[string]interface{}{
		"resolution":  "SOMETHING_ELSE",
		"approver_id": testutil.TestOperatorID().String(),
	}
	w := testutil.ServeHTTP(t, engine, http.MethodPost, "/api/v1/variances/"+variance.ID.String()+"/approve", body, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVarianceHandler_Waive(t *testing.T) {
	env := testutil.NewSettlementEnv()
	variance := seedVariance(t, env, 500, 520)

	service := appsettlement.NewVarianceService(env.Transactor)
	engine := newTestEngine(NewVarianceHandler(service, env.Variances))

	body := map[string]interface{}{
		"approver_id": testutil.TestOperatorID().String(),
		"notes":       "Overage traced to a till float error",
	}
	w := testutil.ServeHTTP(t, engine, http.MethodPost, "/api/v1/variances/"+variance.ID.String()+"/waive", body, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, settlement.VarianceStatusWaived, env.Variances.Items[variance.ID].Status)
}

func TestVarianceHandler_ListByRun(t *testing.T) {
	env := testutil.NewSettlementEnv()
	seedVariance(t, env, 500, 450)

	service := appsettlement.NewVarianceService(env.Transactor)
	engine := newTestEngine(NewVarianceHandler(service, env.Variances))

	w := testutil.ServeHTTP(t, engine, http.MethodGet, "/api/v1/variances?run_id="+testutil.NewTestUUID("run-1").String(), nil, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := testutil.AssertSuccessBody(t, w)
	assert.Len(t, resp["data"], 1)
}
