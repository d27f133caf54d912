package handler

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appsettlement "github.com/retailops/backend/internal/application/settlement"
	"github.com/retailops/backend/internal/domain/settlement"
	"github.com/retailops/backend/tests/testutil"
)

func seedChargeSources(env *testutil.SettlementEnv, saleID uuid.UUID, sources ...settlement.ChargeSourceLines) {
	env.ChargeSources.Sources[saleID] = sources
}

func snapshotSource(name string, totals ...float64) settlement.ChargeSourceLines {
	source := settlement.ChargeSourceLines{Name: name}
	for _, total := range totals {
		source.Lines = append(source.Lines, settlement.ChargeLine{Total: decimal.NewFromFloat(total)})
	}
	return source
}

func TestIntakeHandler_CreateReceivable(t *testing.T) {
	env := testutil.NewSettlementEnv()
	saleID := testutil.NewTestUUID("sale-1")
	seedChargeSources(env, saleID,
		snapshotSource(settlement.ChargeSourceOriginSnapshot, 600, 400))

	service := appsettlement.NewIntakeService(env.Transactor, env.ChargeSources)
	engine := newTestEngine(NewIntakeHandler(service, env.Runs))

	body := map[string]interface{}{
		"sale_id":       saleID.String(),
		"sale_number":   "SO-5001",
		"customer_id":   testutil.TestCustomerID().String(),
		"customer_name": "Acme Trading",
		"agent_id":      testutil.TestAgentID().String(),
	}
	w := testutil.ServeHTTP(t, engine, http.MethodPost, "/api/v1/receivables", body, nil)

	assert.Equal(t, http.StatusCreated, w.Code)
	resp := testutil.AssertSuccessBody(t, w)
	data := resp["data"].(map[string]interface{})

	resolution := data["resolution"].(map[string]interface{})
	assert.Equal(t, "origin_snapshot", resolution["source_name"])
	assert.Equal(t, "1000", resolution["total"])

	receivable := data["receivable"].(map[string]interface{})
	assert.Equal(t, "SO-5001", receivable["sale_number"])
	assert.Equal(t, "OPEN", receivable["status"])
}

func TestIntakeHandler_CreateReceivable_ChargeUndetermined(t *testing.T) {
	env := testutil.NewSettlementEnv()
	saleID := testutil.NewTestUUID("sale-1")
	// Only source present has an unpriceable line
	seedChargeSources(env, saleID, settlement.ChargeSourceLines{
		Name:  settlement.ChargeSourceLiveItems,
		Lines: []settlement.ChargeLine{{}},
	})

	service := appsettlement.NewIntakeService(env.Transactor, env.ChargeSources)
	engine := newTestEngine(NewIntakeHandler(service, env.Runs))

	body := map[string]interface{}{
		"sale_id":       saleID.String(),
		"sale_number":   "SO-5001",
		"customer_id":   testutil.TestCustomerID().String(),
		"customer_name": "Acme Trading",
		"agent_id":      testutil.TestAgentID().String(),
	}
	w := testutil.ServeHTTP(t, engine, http.MethodPost, "/api/v1/receivables", body, nil)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	testutil.AssertErrorBody(t, w, "CHARGE_UNDETERMINED")
}

func TestIntakeHandler_CreateReceivable_DuplicateSale(t *testing.T) {
	env := testutil.NewSettlementEnv()
	saleID := testutil.NewTestUUID("sale-1")
	seedChargeSources(env, saleID,
		snapshotSource(settlement.ChargeSourceOriginSnapshot, 100))
	seedReceivable(t, env, "SO-5001", 100)

	service := appsettlement.NewIntakeService(env.Transactor, env.ChargeSources)
	engine := newTestEngine(NewIntakeHandler(service, env.Runs))

	body := map[string]interface{}{
		"sale_id":       saleID.String(),
		"sale_number":   "SO-5001",
		"customer_id":   testutil.TestCustomerID().String(),
		"customer_name": "Acme Trading",
		"agent_id":      testutil.TestAgentID().String(),
	}
	w := testutil.ServeHTTP(t, engine, http.MethodPost, "/api/v1/receivables", body, nil)

	assert.Equal(t, http.StatusConflict, w.Code)
	testutil.AssertErrorBody(t, w, "ALREADY_EXISTS")
}

func TestIntakeHandler_RecordCollection(t *testing.T) {
	env := testutil.NewSettlementEnv()
	receivable := seedReceivable(t, env, "SO-5001", 500)

	service := appsettlement.NewIntakeService(env.Transactor, env.ChargeSources)
	engine := newTestEngine(NewIntakeHandler(service, env.Runs))

	body := map[string]interface{}{"amount": 200.0}
	w := testutil.ServeHTTP(t, engine, http.MethodPost, "/api/v1/receivables/"+receivable.ID.String()+"/collection", body, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := testutil.AssertSuccessBody(t, w)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "200", data["collected_amount"])
}

func TestIntakeHandler_RunLifecycle(t *testing.T) {
	env := testutil.NewSettlementEnv()
	service := appsettlement.NewIntakeService(env.Transactor, env.ChargeSources)
	engine := newTestEngine(NewIntakeHandler(service, env.Runs))

	body := map[string]interface{}{
		"run_number": "RUN-050",
		"agent_id":   testutil.TestAgentID().String(),
	}
	w := testutil.ServeHTTP(t, engine, http.MethodPost, "/api/v1/runs", body, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	resp := testutil.AssertSuccessBody(t, w)
	runID := resp["data"].(map[string]interface{})["ID"].(string)

	w = testutil.ServeHTTP(t, engine, http.MethodPost, "/api/v1/runs/"+runID+"/dispatch", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp = testutil.AssertSuccessBody(t, w)
	assert.Equal(t, "DISPATCHED", resp["data"].(map[string]interface{})["status"])

	w = testutil.ServeHTTP(t, engine, http.MethodPost, "/api/v1/runs/"+runID+"/close", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp = testutil.AssertSuccessBody(t, w)
	assert.Equal(t, "CLOSED", resp["data"].(map[string]interface{})["status"])

	w = testutil.ServeHTTP(t, engine, http.MethodGet, "/api/v1/runs/"+runID, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp = testutil.AssertSuccessBody(t, w)
	assert.Equal(t, "RUN-050", resp["data"].(map[string]interface{})["run_number"])
}

func TestIntakeHandler_CancelRun(t *testing.T) {
	env := testutil.NewSettlementEnv()
	service := appsettlement.NewIntakeService(env.Transactor, env.ChargeSources)
	engine := newTestEngine(NewIntakeHandler(service, env.Runs))

	body := map[string]interface{}{
		"run_number": "RUN-051",
		"agent_id":   testutil.TestAgentID().String(),
	}
	w := testutil.ServeHTTP(t, engine, http.MethodPost, "/api/v1/runs", body, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	resp := testutil.AssertSuccessBody(t, w)
	runID := resp["data"].(map[string]interface{})["ID"].(string)

	w = testutil.ServeHTTP(t, engine, http.MethodPost, "/api/v1/runs/"+runID+"/cancel", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp = testutil.AssertSuccessBody(t, w)
	assert.Equal(t, "CANCELLED", resp["data"].(map[string]interface{})["status"])

	// A cancelled run is out of the lifecycle for good
	w = testutil.ServeHTTP(t, engine, http.MethodPost, "/api/v1/runs/"+runID+"/dispatch", nil, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestIntakeHandler_DispatchRun_NotFound(t *testing.T) {
	env := testutil.NewSettlementEnv()
	service := appsettlement.NewIntakeService(env.Transactor, env.ChargeSources)
	engine := newTestEngine(NewIntakeHandler(service, env.Runs))

	w := testutil.ServeHTTP(t, engine, http.MethodPost, "/api/v1/runs/"+uuid.NewString()+"/dispatch", nil, nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	testutil.AssertErrorBody(t, w, "NOT_FOUND")
}
