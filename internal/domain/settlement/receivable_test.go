package settlement

import (
	"testing"

	"github.com/google/uuid"
	"github.com/retailops/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestReceivable(t *testing.T, charge float64) *Receivable {
	t.Helper()
	r, err := NewReceivable("SALE-001", uuid.New(), "Acme Sari-Sari", uuid.New(), nil,
		valueobject.NewMoneyPHPFromFloat(charge))
	require.NoError(t, err)
	return r
}

func TestNewReceivable(t *testing.T) {
	t.Run("creates receivable with frozen charge", func(t *testing.T) {
		runID := uuid.New()
		r, err := NewReceivable("SALE-001", uuid.New(), "Acme", uuid.New(), &runID,
			valueobject.NewMoneyPHPFromFloat(1000))
		require.NoError(t, err)

		assert.Equal(t, ReceivableStatusOpen, r.Status)
		assert.True(t, r.FrozenCharge.Equal(decimal.NewFromInt(1000)))
		assert.True(t, r.CashDue().Equal(decimal.NewFromInt(1000)))
		assert.True(t, r.Outstanding().Equal(decimal.NewFromInt(1000)))
		assert.Equal(t, &runID, r.RunID)

		events := r.GetDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, "ReceivableCreated", events[0].EventType())
	})

	t.Run("rejects empty sale number", func(t *testing.T) {
		_, err := NewReceivable("", uuid.New(), "Acme", uuid.New(), nil,
			valueobject.NewMoneyPHPFromFloat(100))
		assert.Error(t, err)
	})

	t.Run("rejects non-positive charge", func(t *testing.T) {
		_, err := NewReceivable("SALE-001", uuid.New(), "Acme", uuid.New(), nil,
			valueobject.ZeroPHP())
		assert.Error(t, err)
	})

	t.Run("rejects empty agent", func(t *testing.T) {
		_, err := NewReceivable("SALE-001", uuid.New(), "Acme", uuid.Nil, nil,
			valueobject.NewMoneyPHPFromFloat(100))
		assert.Error(t, err)
	})
}

func TestReceivableApplyCashSettlement(t *testing.T) {
	t.Run("partial settlement keeps receivable open for more", func(t *testing.T) {
		r := newTestReceivable(t, 500)
		require.NoError(t, r.ApplyCashSettlement(valueobject.NewMoneyPHPFromFloat(200)))

		assert.Equal(t, ReceivableStatusPartiallySettled, r.Status)
		assert.True(t, r.CashDue().Equal(decimal.NewFromInt(300)))
		assert.True(t, r.CashSettled.Equal(decimal.NewFromInt(200)))
	})

	t.Run("full settlement marks receivable settled", func(t *testing.T) {
		r := newTestReceivable(t, 500)
		require.NoError(t, r.ApplyCashSettlement(valueobject.NewMoneyPHPFromFloat(500)))

		assert.Equal(t, ReceivableStatusSettled, r.Status)
		assert.NotNil(t, r.SettledAt)
		assert.True(t, r.IsSettled())
	})

	t.Run("sub-cent residue counts as settled", func(t *testing.T) {
		r := newTestReceivable(t, 500)
		require.NoError(t, r.ApplyCashSettlement(valueobject.NewMoneyPHPFromFloat(499.995)))

		// 499.995 rounds to 500.00 when applied
		assert.Equal(t, ReceivableStatusSettled, r.Status)
	})

	t.Run("rejects settlement above cash due", func(t *testing.T) {
		r := newTestReceivable(t, 500)
		err := r.ApplyCashSettlement(valueobject.NewMoneyPHPFromFloat(500.01))
		assert.Error(t, err)
		assert.Equal(t, ReceivableStatusOpen, r.Status)
	})

	t.Run("rejects settlement on settled receivable", func(t *testing.T) {
		r := newTestReceivable(t, 100)
		require.NoError(t, r.ApplyCashSettlement(valueobject.NewMoneyPHPFromFloat(100)))

		err := r.ApplyCashSettlement(valueobject.NewMoneyPHPFromFloat(1))
		assert.Error(t, err)
	})

	t.Run("rejects non-positive amount", func(t *testing.T) {
		r := newTestReceivable(t, 100)
		assert.Error(t, r.ApplyCashSettlement(valueobject.ZeroPHP()))
		assert.Error(t, r.ApplyCashSettlement(valueobject.NewMoneyPHPFromFloat(-5)))
	})
}

func TestReceivableApplyBridgeSettlement(t *testing.T) {
	t.Run("bridge reduces outstanding but not cash due", func(t *testing.T) {
		r := newTestReceivable(t, 1000)
		require.NoError(t, r.ApplyCashSettlement(valueobject.NewMoneyPHPFromFloat(850)))
		require.NoError(t, r.ApplyBridgeSettlement(valueobject.NewMoneyPHPFromFloat(150)))

		assert.True(t, r.Outstanding().IsZero())
		assert.True(t, r.CashDue().Equal(decimal.NewFromInt(150)))
		assert.Equal(t, ReceivableStatusSettled, r.Status)
	})

	t.Run("rejects bridge above outstanding", func(t *testing.T) {
		r := newTestReceivable(t, 100)
		err := r.ApplyBridgeSettlement(valueobject.NewMoneyPHPFromFloat(100.01))
		assert.Error(t, err)
	})

	t.Run("emits bridge posted event", func(t *testing.T) {
		r := newTestReceivable(t, 100)
		r.ClearDomainEvents()
		require.NoError(t, r.ApplyBridgeSettlement(valueobject.NewMoneyPHPFromFloat(40)))

		types := make([]string, 0)
		for _, e := range r.GetDomainEvents() {
			types = append(types, e.EventType())
		}
		assert.Contains(t, types, "BridgePosted")
	})
}

func TestReceivableRecordCollection(t *testing.T) {
	t.Run("accumulates reported collections", func(t *testing.T) {
		r := newTestReceivable(t, 1000)
		require.NoError(t, r.RecordCollection(valueobject.NewMoneyPHPFromFloat(600)))
		require.NoError(t, r.RecordCollection(valueobject.NewMoneyPHPFromFloat(400)))

		assert.True(t, r.CollectedAmount.Equal(decimal.NewFromInt(1000)))
	})

	t.Run("caps collected at frozen charge for reconciliation", func(t *testing.T) {
		r := newTestReceivable(t, 1000)
		require.NoError(t, r.RecordCollection(valueobject.NewMoneyPHPFromFloat(1200)))

		assert.True(t, r.CollectedAmount.Equal(decimal.NewFromInt(1200)))
		assert.True(t, r.CollectedCapped().Equal(decimal.NewFromInt(1000)))
	})

	t.Run("rejects negative collection", func(t *testing.T) {
		r := newTestReceivable(t, 1000)
		assert.Error(t, r.RecordCollection(valueobject.NewMoneyPHPFromFloat(-1)))
	})
}

func TestReceivableRemitLock(t *testing.T) {
	t.Run("claim and release round trip", func(t *testing.T) {
		r := newTestReceivable(t, 100)
		require.NoError(t, r.ClaimRemitLock("op-1"))

		assert.True(t, r.IsRemitLocked())
		assert.True(t, r.IsRemitLockedBy("op-1"))
		assert.NotNil(t, r.RemitLockedAt)

		r.ReleaseRemitLock("op-1")
		assert.False(t, r.IsRemitLocked())
	})

	t.Run("reclaim by same token is a no-op", func(t *testing.T) {
		r := newTestReceivable(t, 100)
		require.NoError(t, r.ClaimRemitLock("op-1"))
		require.NoError(t, r.ClaimRemitLock("op-1"))
		assert.True(t, r.IsRemitLockedBy("op-1"))
	})

	t.Run("claim by another operator conflicts", func(t *testing.T) {
		r := newTestReceivable(t, 100)
		require.NoError(t, r.ClaimRemitLock("op-1"))

		err := r.ClaimRemitLock("op-2")
		assert.ErrorIs(t, err, ErrLockConflict)
		assert.True(t, r.IsRemitLockedBy("op-1"))
	})

	t.Run("release by non-holder is a no-op", func(t *testing.T) {
		r := newTestReceivable(t, 100)
		require.NoError(t, r.ClaimRemitLock("op-1"))

		r.ReleaseRemitLock("op-2")
		assert.True(t, r.IsRemitLockedBy("op-1"))
	})

	t.Run("rejects empty token", func(t *testing.T) {
		r := newTestReceivable(t, 100)
		assert.Error(t, r.ClaimRemitLock(""))
	})
}
