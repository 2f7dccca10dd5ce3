package bundle

import (
	"testing"

	"shop-service/internal/apperr"
	"shop-service/internal/cart"
	"shop-service/internal/catalog"
	"shop-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBuilder(t *testing.T) (*Builder, *cart.Cart, *catalog.Catalog) {
	t.Helper()
	cat := catalog.New(catalog.DefaultProducts())
	c := cart.New(cat)
	return NewBuilder(cat, c), c, cat
}

func composing(t *testing.T, b *Builder, size int) {
	t.Helper()
	require.NoError(t, b.ChooseSize(size))
	require.NoError(t, b.EnterComposing())
}

func TestChooseSize(t *testing.T) {
	b, _, _ := newTestBuilder(t)
	assert.Equal(t, StateIdle, b.State())

	assert.True(t, apperr.IsValidation(b.ChooseSize(4)))
	assert.Equal(t, StateIdle, b.State())

	require.NoError(t, b.ChooseSize(5))
	assert.Equal(t, StateSizeChosen, b.State())
	assert.Equal(t, 5, b.Size())
}

func TestChooseSizeClearsSelectionFromAnyState(t *testing.T) {
	b, _, _ := newTestBuilder(t)
	composing(t, b, 3)
	require.NoError(t, b.Increment("vanille"))

	require.NoError(t, b.ChooseSize(5))
	assert.Equal(t, 0, b.Units())
	assert.Equal(t, StateSizeChosen, b.State())
}

func TestTransitionsOutsideComposing(t *testing.T) {
	b, _, _ := newTestBuilder(t)

	assert.ErrorIs(t, b.EnterComposing(), apperr.ErrInvalidTransition)
	assert.ErrorIs(t, b.Increment("vanille"), apperr.ErrInvalidTransition)
	assert.ErrorIs(t, b.Decrement("vanille"), apperr.ErrInvalidTransition)
	assert.ErrorIs(t, b.Reset(), apperr.ErrInvalidTransition)
	assert.ErrorIs(t, b.Back(), apperr.ErrInvalidTransition)
	_, err := b.Commit()
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
}

func TestIncrementCapsAtSize(t *testing.T) {
	b, _, _ := newTestBuilder(t)
	composing(t, b, 3)

	for i := 0; i < 3; i++ {
		require.NoError(t, b.Increment("coton"))
	}
	before := b.Lines()

	err := b.Increment("vanille")
	assert.ErrorIs(t, err, apperr.ErrBundleFull)
	assert.Equal(t, before, b.Lines())
	assert.Equal(t, 3, b.Units())
}

func TestIncrementLimitedByBuilderAvailability(t *testing.T) {
	b, c, _ := newTestBuilder(t)
	require.NoError(t, c.AddSingle("santal", 4))
	composing(t, b, 3)

	require.NoError(t, b.Increment("santal"))
	assert.Equal(t, 0, b.Availability("santal").ForBundle)

	err := b.Increment("santal")
	assert.True(t, apperr.IsStockConflict(err))
	assert.Equal(t, 1, b.Tentative("santal"))

	// the selection is not a reservation
	assert.Equal(t, 1, c.AvailableStock("santal"))
	assert.Equal(t, 4, c.Ledger().ReservedTotal("santal"))
}

func TestIncrementUnknownProduct(t *testing.T) {
	b, _, _ := newTestBuilder(t)
	composing(t, b, 3)

	assert.ErrorIs(t, b.Increment("ghost"), apperr.ErrNotFound)
	assert.Equal(t, 0, b.Units())
}

func TestDecrementDropsZeroEntries(t *testing.T) {
	b, _, _ := newTestBuilder(t)
	composing(t, b, 5)
	require.NoError(t, b.Increment("figue"))
	require.NoError(t, b.Increment("figue"))

	require.NoError(t, b.Decrement("figue"))
	assert.Equal(t, 1, b.Tentative("figue"))
	require.NoError(t, b.Decrement("figue"))
	assert.Empty(t, b.Lines())
	require.NoError(t, b.Decrement("figue"))
	assert.Empty(t, b.Lines())
}

func TestResetAndBack(t *testing.T) {
	b, _, _ := newTestBuilder(t)
	composing(t, b, 5)
	require.NoError(t, b.Increment("ambre"))
	require.NoError(t, b.Increment("vanille"))

	require.NoError(t, b.Back())
	assert.Equal(t, StateSizeChosen, b.State())
	assert.Equal(t, 2, b.Units())

	require.NoError(t, b.EnterComposing())
	require.NoError(t, b.Reset())
	assert.Equal(t, StateComposing, b.State())
	assert.Equal(t, 0, b.Units())
}

func TestAbandon(t *testing.T) {
	b, c, _ := newTestBuilder(t)
	composing(t, b, 3)
	require.NoError(t, b.Increment("ambre"))

	b.Abandon()
	assert.Equal(t, StateIdle, b.State())
	assert.Equal(t, 0, b.Size())
	assert.Equal(t, 0, b.Units())
	assert.Empty(t, c.Record().Bundles)
}

func TestCommitScenarioB(t *testing.T) {
	b, c, _ := newTestBuilder(t)
	composing(t, b, 5)
	for _, id := range []string{"ambre", "vanille", "ambre", "vanille", "vanille"} {
		require.NoError(t, b.Increment(id))
	}

	committed, err := b.Commit()
	require.NoError(t, err)

	assert.Equal(t, []models.BundleLine{
		{ProductID: "vanille", Quantity: 3},
		{ProductID: "ambre", Quantity: 2},
	}, committed.Lines)
	assert.Equal(t, int64(9970), committed.GrossValue)
	assert.Equal(t, int64(3780), committed.FreeValue)
	assert.Equal(t, int64(6190), committed.NetTotal)

	assert.Equal(t, StateComposing, b.State())
	assert.Equal(t, 0, b.Units())
	assert.Len(t, c.Record().Bundles, 1)
	assert.Equal(t, 3, c.Ledger().ReservedTotal("vanille"))
}

func TestCommitIncomplete(t *testing.T) {
	b, c, _ := newTestBuilder(t)
	composing(t, b, 3)
	require.NoError(t, b.Increment("coton"))

	_, err := b.Commit()
	assert.ErrorIs(t, err, apperr.ErrBundleIncomplete)
	assert.Equal(t, 1, b.Units())
	assert.Empty(t, c.Record().Bundles)
}

func TestCommitRevalidatesAgainstCurrentStock(t *testing.T) {
	b, c, _ := newTestBuilder(t)
	composing(t, b, 3)
	for i := 0; i < 3; i++ {
		require.NoError(t, b.Increment("santal"))
	}

	// availability shifts after the picks were made
	require.NoError(t, c.AddSingle("santal", 3))
	before := c.Record()

	_, err := b.Commit()
	assert.True(t, apperr.IsStockConflict(err))
	assert.Equal(t, before, c.Record())
	assert.Equal(t, 3, b.Units())
	assert.Equal(t, StateComposing, b.State())
}

func TestCommitAfterStockDrop(t *testing.T) {
	b, c, cat := newTestBuilder(t)
	composing(t, b, 3)
	for i := 0; i < 3; i++ {
		require.NoError(t, b.Increment("figue"))
	}

	_, _, err := cat.Update("figue", catalog.ProductUpdate{Name: "Bougie Figue", Price: 20, Stock: 2})
	require.NoError(t, err)

	_, err = b.Commit()
	assert.True(t, apperr.IsStockConflict(err))
	assert.Empty(t, c.Record().Bundles)
}

func TestSnapshotPreview(t *testing.T) {
	b, _, _ := newTestBuilder(t)
	composing(t, b, 3)
	require.NoError(t, b.Increment("santal"))
	require.NoError(t, b.Increment("coton"))

	snap := b.Snapshot()
	assert.Equal(t, "Pack 3 (1 offerte)", snap.Name)
	assert.Equal(t, 2, snap.Units)
	assert.Equal(t, 1, snap.Remaining)
	assert.Equal(t, int64(4040), snap.Preview.Gross)
	assert.Equal(t, int64(0), snap.Preview.Free)
	assert.Equal(t, int64(4040), snap.Preview.Net)

	require.NoError(t, b.Increment("coton"))
	snap = b.Snapshot()
	assert.Equal(t, 0, snap.Remaining)
	assert.Equal(t, int64(1750), snap.Preview.Free)
	assert.Equal(t, int64(5790), snap.Preview.Gross)
	assert.Equal(t, int64(4040), snap.Preview.Net)
	assert.Equal(t, []models.BundleLine{
		{ProductID: "coton", Quantity: 2},
		{ProductID: "santal", Quantity: 1},
	}, snap.Lines)
}

func TestSnapshotIdle(t *testing.T) {
	b, _, _ := newTestBuilder(t)
	snap := b.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.Empty(t, snap.Name)
	assert.Empty(t, snap.Lines)
}
