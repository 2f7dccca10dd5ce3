package bundle

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"shop-service/internal/apperr"
	"shop-service/internal/cart"
	"shop-service/internal/catalog"
	"shop-service/internal/models"

	"github.com/cucumber/godog"
)

type bundleTestContext struct {
	catalog   *catalog.Catalog
	cart      *cart.Cart
	builder   *Builder
	committed *models.Bundle
	err       error
}

func (c *bundleTestContext) reset() {
	c.catalog = nil
	c.cart = nil
	c.builder = nil
	c.committed = nil
	c.err = nil
}

func (c *bundleTestContext) theDefaultCandleCatalog() error {
	c.catalog = catalog.New(catalog.DefaultProducts())
	return nil
}

func (c *bundleTestContext) anEmptyCart() error {
	c.cart = cart.New(c.catalog)
	c.builder = NewBuilder(c.catalog, c.cart)
	return nil
}

func (c *bundleTestContext) theCartHoldsSingle(qty int, id string) error {
	return c.cart.AddSingle(id, qty)
}

func (c *bundleTestContext) iChooseAPackOf(size int) error {
	return c.builder.ChooseSize(size)
}

func (c *bundleTestContext) iStartComposing() error {
	return c.builder.EnterComposing()
}

func (c *bundleTestContext) iAddTimes(id string, n int) error {
	c.err = nil
	for i := 0; i < n; i++ {
		if err := c.builder.Increment(id); err != nil {
			c.err = err
			return nil
		}
	}
	return nil
}

func (c *bundleTestContext) iCommitThePack() error {
	c.committed, c.err = c.builder.Commit()
	return nil
}

func (c *bundleTestContext) iGoBack() error {
	return c.builder.Back()
}

func (c *bundleTestContext) iResetTheSelection() error {
	return c.builder.Reset()
}

func (c *bundleTestContext) iRemoveTheCommittedPack() error {
	if c.committed == nil {
		return errors.New("no pack was committed")
	}
	return c.cart.RemoveBundle(c.committed.ID)
}

func (c *bundleTestContext) thePackIsCommittedWith(gross, free, net float64) error {
	if c.err != nil {
		return fmt.Errorf("expected a committed pack but got error: %v", c.err)
	}
	got := []int64{c.committed.GrossValue, c.committed.FreeValue, c.committed.NetTotal}
	want := []int64{catalog.ToCents(gross), catalog.ToCents(free), catalog.ToCents(net)}
	for i := range want {
		if got[i] != want[i] {
			return fmt.Errorf("expected gross/free/net %v, got %v", want, got)
		}
	}
	return nil
}

func (c *bundleTestContext) theCartTotalIs(total float64) error {
	if got := c.cart.Totals().Total; got != catalog.ToCents(total) {
		return fmt.Errorf("expected cart total %d, got %d", catalog.ToCents(total), got)
	}
	return nil
}

func (c *bundleTestContext) unitsAreAvailable(n int, id string) error {
	if got := c.cart.AvailableStock(id); got != n {
		return fmt.Errorf("expected %d available %s, got %d", n, id, got)
	}
	return nil
}

func (c *bundleTestContext) theSelectionIsEmpty() error {
	return c.theSelectionHoldsUnits(0)
}

func (c *bundleTestContext) theSelectionHoldsUnits(n int) error {
	if got := c.builder.Units(); got != n {
		return fmt.Errorf("expected %d selected units, got %d", n, got)
	}
	return nil
}

func (c *bundleTestContext) theLastActionFailsBecauseThePackIsFull() error {
	if !errors.Is(c.err, apperr.ErrBundleFull) {
		return fmt.Errorf("expected pack full, got %v", c.err)
	}
	return nil
}

func (c *bundleTestContext) theLastActionFailsBecauseThePackIsIncomplete() error {
	if !errors.Is(c.err, apperr.ErrBundleIncomplete) {
		return fmt.Errorf("expected pack incomplete, got %v", c.err)
	}
	return nil
}

func (c *bundleTestContext) theLastActionFailsWithAStockConflict() error {
	if !apperr.IsStockConflict(c.err) {
		return fmt.Errorf("expected stock conflict, got %v", c.err)
	}
	return nil
}

func (c *bundleTestContext) theCartHoldsNoPacks() error {
	if n := len(c.cart.Record().Bundles); n != 0 {
		return fmt.Errorf("expected no packs, got %d", n)
	}
	return nil
}

func (c *bundleTestContext) theWorkflowIsInState(state string) error {
	if got := c.builder.State(); string(got) != state {
		return fmt.Errorf("expected state %s, got %s", state, got)
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &bundleTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	// Given steps
	ctx.Step(`^the default candle catalog$`, tc.theDefaultCandleCatalog)
	ctx.Step(`^an empty cart$`, tc.anEmptyCart)
	ctx.Step(`^the cart holds (\d+) single "([^"]*)"$`, tc.theCartHoldsSingle)
	ctx.Step(`^I choose a pack of (\d+)$`, tc.iChooseAPackOf)
	ctx.Step(`^I start composing$`, tc.iStartComposing)

	// When steps
	ctx.Step(`^I add "([^"]*)" (\d+) times$`, tc.iAddTimes)
	ctx.Step(`^I commit the pack$`, tc.iCommitThePack)
	ctx.Step(`^I go back$`, tc.iGoBack)
	ctx.Step(`^I reset the selection$`, tc.iResetTheSelection)
	ctx.Step(`^I remove the committed pack$`, tc.iRemoveTheCommittedPack)

	// Then steps
	ctx.Step(`^the pack is committed with gross (\d+\.\d+), free (\d+\.\d+) and net (\d+\.\d+)$`, tc.thePackIsCommittedWith)
	ctx.Step(`^the cart total is (\d+\.\d+)$`, tc.theCartTotalIs)
	ctx.Step(`^(\d+) units of "([^"]*)" are available$`, tc.unitsAreAvailable)
	ctx.Step(`^the selection is empty$`, tc.theSelectionIsEmpty)
	ctx.Step(`^the selection holds (\d+) units$`, tc.theSelectionHoldsUnits)
	ctx.Step(`^the last action fails because the pack is full$`, tc.theLastActionFailsBecauseThePackIsFull)
	ctx.Step(`^the last action fails because the pack is incomplete$`, tc.theLastActionFailsBecauseThePackIsIncomplete)
	ctx.Step(`^the last action fails with a stock conflict$`, tc.theLastActionFailsWithAStockConflict)
	ctx.Step(`^the cart holds no packs$`, tc.theCartHoldsNoPacks)
	ctx.Step(`^the workflow is in state "([^"]*)"$`, tc.theWorkflowIsInState)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features/bundle.feature"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
