package settlement

import (
	"testing"

	"github.com/google/uuid"
	"github.com/retailops/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestVariance(t *testing.T) *Variance {
	t.Helper()
	v, err := NewVariance(uuid.New(), uuid.New(),
		valueobject.NewMoneyPHPFromFloat(1000),
		valueobject.NewMoneyPHPFromFloat(850))
	require.NoError(t, err)
	return v
}

func TestNewVariance(t *testing.T) {
	t.Run("creates open variance with gap", func(t *testing.T) {
		v := newTestVariance(t)
		assert.Equal(t, VarianceStatusOpen, v.Status)
		assert.True(t, v.GapAmount.Equal(decimal.NewFromInt(150)))

		events := v.GetDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, "VarianceOpened", events[0].EventType())
	})

	t.Run("rejects balanced figures", func(t *testing.T) {
		_, err := NewVariance(uuid.New(), uuid.New(),
			valueobject.NewMoneyPHPFromFloat(1000),
			valueobject.NewMoneyPHPFromFloat(1000))
		assert.Error(t, err)
	})

	t.Run("rejects empty run", func(t *testing.T) {
		_, err := NewVariance(uuid.Nil, uuid.New(),
			valueobject.NewMoneyPHPFromFloat(1000),
			valueobject.NewMoneyPHPFromFloat(850))
		assert.Error(t, err)
	})
}

func TestVarianceTransitions(t *testing.T) {
	approver := uuid.New()

	t.Run("approve charge agent then accept then close", func(t *testing.T) {
		v := newTestVariance(t)
		require.NoError(t, v.Approve(VarianceResolutionChargeAgent, approver, "short remit"))
		assert.Equal(t, VarianceStatusManagerApproved, v.Status)
		assert.Equal(t, VarianceResolutionChargeAgent, v.Resolution)

		require.NoError(t, v.AgentAccept())
		assert.Equal(t, VarianceStatusAgentAccepted, v.Status)
		assert.NotNil(t, v.AcceptedAt)

		require.NoError(t, v.Close())
		assert.Equal(t, VarianceStatusClosed, v.Status)
	})

	t.Run("info only closes without agent acceptance", func(t *testing.T) {
		v := newTestVariance(t)
		require.NoError(t, v.Approve(VarianceResolutionInfoOnly, approver, ""))
		require.NoError(t, v.Close())
		assert.Equal(t, VarianceStatusClosed, v.Status)
	})

	t.Run("info only cannot be agent accepted", func(t *testing.T) {
		v := newTestVariance(t)
		require.NoError(t, v.Approve(VarianceResolutionInfoOnly, approver, ""))
		assert.Error(t, v.AgentAccept())
	})

	t.Run("waive from open is terminal", func(t *testing.T) {
		v := newTestVariance(t)
		require.NoError(t, v.Waive(approver, "write off"))
		assert.Equal(t, VarianceStatusWaived, v.Status)
		assert.Equal(t, VarianceResolutionWaive, v.Resolution)

		assert.Error(t, v.Approve(VarianceResolutionChargeAgent, approver, ""))
		assert.Error(t, v.AgentAccept())
	})

	t.Run("waive resolution closes straight from approval", func(t *testing.T) {
		v := newTestVariance(t)
		require.NoError(t, v.Approve(VarianceResolutionWaive, approver, "write off"))
		assert.Equal(t, VarianceStatusManagerApproved, v.Status)
		assert.Equal(t, VarianceResolutionWaive, v.Resolution)

		require.NoError(t, v.Close())
		assert.Equal(t, VarianceStatusClosed, v.Status)
	})

	t.Run("waive resolution cannot be agent accepted", func(t *testing.T) {
		v := newTestVariance(t)
		require.NoError(t, v.Approve(VarianceResolutionWaive, approver, ""))
		assert.Error(t, v.AgentAccept())
	})

	t.Run("cannot approve twice", func(t *testing.T) {
		v := newTestVariance(t)
		require.NoError(t, v.Approve(VarianceResolutionChargeAgent, approver, ""))
		assert.Error(t, v.Approve(VarianceResolutionChargeAgent, approver, ""))
	})

	t.Run("cannot accept from open", func(t *testing.T) {
		v := newTestVariance(t)
		assert.Error(t, v.AgentAccept())
	})

	t.Run("charge agent cannot close before acceptance", func(t *testing.T) {
		v := newTestVariance(t)
		require.NoError(t, v.Approve(VarianceResolutionChargeAgent, approver, ""))
		assert.Error(t, v.Close())
	})
}

func TestVarianceIsCleared(t *testing.T) {
	approver := uuid.New()

	t.Run("open variance is not cleared", func(t *testing.T) {
		v := newTestVariance(t)
		assert.False(t, v.IsCleared())
	})

	t.Run("charge agent approval alone does not clear", func(t *testing.T) {
		v := newTestVariance(t)
		require.NoError(t, v.Approve(VarianceResolutionChargeAgent, approver, ""))
		assert.False(t, v.IsCleared())
	})

	t.Run("agent acceptance clears", func(t *testing.T) {
		v := newTestVariance(t)
		require.NoError(t, v.Approve(VarianceResolutionChargeAgent, approver, ""))
		require.NoError(t, v.AgentAccept())
		assert.True(t, v.IsCleared())
	})

	t.Run("info only approval is sufficient clearance", func(t *testing.T) {
		v := newTestVariance(t)
		require.NoError(t, v.Approve(VarianceResolutionInfoOnly, approver, ""))
		assert.True(t, v.IsCleared())
	})

	t.Run("waive approval is sufficient clearance", func(t *testing.T) {
		v := newTestVariance(t)
		require.NoError(t, v.Approve(VarianceResolutionWaive, approver, ""))
		assert.True(t, v.IsCleared())
	})

	t.Run("closed clears", func(t *testing.T) {
		v := newTestVariance(t)
		require.NoError(t, v.Approve(VarianceResolutionInfoOnly, approver, ""))
		require.NoError(t, v.Close())
		assert.True(t, v.IsCleared())
	})

	t.Run("waived clears", func(t *testing.T) {
		v := newTestVariance(t)
		require.NoError(t, v.Waive(approver, ""))
		assert.True(t, v.IsCleared())
	})

	t.Run("unrecognized status does not clear", func(t *testing.T) {
		v := newTestVariance(t)
		v.Status = VarianceStatus("LEGACY_RESOLVED")
		assert.False(t, v.IsCleared())
	})
}

func TestAgentCharge(t *testing.T) {
	approver := uuid.New()

	acceptedVariance := func(t *testing.T) *Variance {
		v := newTestVariance(t)
		require.NoError(t, v.Approve(VarianceResolutionChargeAgent, approver, ""))
		require.NoError(t, v.AgentAccept())
		return v
	}

	t.Run("created from accepted charge agent variance", func(t *testing.T) {
		v := acceptedVariance(t)
		c, err := NewAgentCharge(v)
		require.NoError(t, err)

		assert.Equal(t, v.AgentID, c.AgentID)
		assert.Equal(t, v.ID, c.VarianceID)
		assert.True(t, c.ChargeAmount.Equal(decimal.NewFromInt(150)))
		assert.Equal(t, AgentChargeStatusOutstanding, c.Status)
	})

	t.Run("rejects variance without charge resolution", func(t *testing.T) {
		v := newTestVariance(t)
		require.NoError(t, v.Waive(approver, ""))
		_, err := NewAgentCharge(v)
		assert.Error(t, err)
	})

	t.Run("repayments advance to paid", func(t *testing.T) {
		c, err := NewAgentCharge(acceptedVariance(t))
		require.NoError(t, err)

		require.NoError(t, c.ApplyRepayment(valueobject.NewMoneyPHPFromFloat(100)))
		assert.Equal(t, AgentChargeStatusPartial, c.Status)
		assert.True(t, c.Outstanding().Equal(decimal.NewFromInt(50)))

		require.NoError(t, c.ApplyRepayment(valueobject.NewMoneyPHPFromFloat(50)))
		assert.Equal(t, AgentChargeStatusPaid, c.Status)
		assert.NotNil(t, c.PaidAt)
	})

	t.Run("rejects overpayment", func(t *testing.T) {
		c, err := NewAgentCharge(acceptedVariance(t))
		require.NoError(t, err)
		assert.Error(t, c.ApplyRepayment(valueobject.NewMoneyPHPFromFloat(200)))
	})
}
