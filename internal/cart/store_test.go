package cart

import (
	"testing"

	pkgerrors "github.com/angelmondragon/grocerycart/pkg/errors"
	"github.com/angelmondragon/grocerycart/pkg/types"
	"github.com/shopspring/decimal"
)

func totalsOf(payable string) types.CartTotals {
	amount := decimal.RequireFromString(payable)
	return types.CartTotals{
		SubTotal:      amount,
		Discount:      decimal.Zero,
		NetAmount:     amount,
		Tax:           decimal.Zero,
		PayableAmount: amount,
	}
}

func line(productID, variantID int64, qty int) types.CartLine {
	return types.CartLine{ProductID: productID, VariantID: variantID, Quantity: qty, ProductName: "item"}
}

func TestReplaceAllCollapsesDuplicatesAndDropsZero(t *testing.T) {
	store := NewStore()
	store.SetPending(true)

	err := store.ReplaceAll([]types.CartLine{
		line(1, 1, 2),
		line(2, 1, 0),
		line(1, 1, 5),
		line(3, 1, 1),
	}, totalsOf("9"))
	if err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}

	state := store.Snapshot()
	if len(state.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %+v", state.Lines)
	}
	first, ok := state.Find(types.LineKey{ProductID: 1, VariantID: 1})
	if !ok || first.Quantity != 5 {
		t.Fatalf("duplicate should collapse to last occurrence, got %+v", first)
	}
	if _, ok := state.Find(types.LineKey{ProductID: 2, VariantID: 1}); ok {
		t.Fatal("zero quantity line should be dropped")
	}
	if state.Pending {
		t.Fatal("ReplaceAll should clear pending")
	}
	if first.LineID == "" {
		t.Fatal("expected local line id")
	}
}

func TestReplaceAllIsIdempotent(t *testing.T) {
	store := NewStore()
	input := []types.CartLine{line(1, 1, 2), line(3, 4, 1)}

	if err := store.ReplaceAll(input, totalsOf("3")); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}
	first := store.Snapshot()
	if err := store.ReplaceAll(input, totalsOf("3")); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}
	second := store.Snapshot()

	if len(first.Lines) != len(second.Lines) {
		t.Fatalf("line count changed: %d vs %d", len(first.Lines), len(second.Lines))
	}
	for i := range first.Lines {
		if first.Lines[i] != second.Lines[i] {
			t.Fatalf("line %d changed: %+v vs %+v", i, first.Lines[i], second.Lines[i])
		}
	}
	if !first.Totals.Equal(second.Totals) {
		t.Fatal("totals changed")
	}
}

func TestReplaceAllRejectsNegativeQuantity(t *testing.T) {
	store := NewStore()
	if err := store.ReplaceAll([]types.CartLine{line(1, 1, 1)}, totalsOf("1")); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}

	err := store.ReplaceAll([]types.CartLine{line(2, 2, 3), line(1, 1, -1)}, totalsOf("7"))
	if !pkgerrors.Is(err, pkgerrors.CodeInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}
	state := store.Snapshot()
	if len(state.Lines) != 1 || state.Lines[0].ProductID != 1 || !state.Totals.Equal(totalsOf("1")) {
		t.Fatalf("store should be untouched, got %+v", state)
	}
}

func TestApplyMutationResultUpsertsAndRemoves(t *testing.T) {
	store := NewStore()
	store.newLineID = func() string { return "local-1" }

	t1 := totalsOf("2")
	if err := store.ApplyMutationResult(5, 12, 1, &t1); err != nil {
		t.Fatalf("apply: %v", err)
	}
	got, ok := store.Line(types.LineKey{ProductID: 5, VariantID: 12})
	if !ok || got.Quantity != 1 || got.LineID != "local-1" {
		t.Fatalf("expected new line, got %+v", got)
	}

	t2 := totalsOf("4")
	if err := store.ApplyMutationResult(5, 12, 2, &t2); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got, _ := store.Line(types.LineKey{ProductID: 5, VariantID: 12}); got.Quantity != 2 {
		t.Fatalf("quantity should equal server quantity, got %d", got.Quantity)
	}
	if !store.Totals().Equal(t2) {
		t.Fatalf("totals should equal last fold, got %+v", store.Totals())
	}

	if err := store.ApplyMutationResult(5, 12, 0, nil); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if _, ok := store.Line(types.LineKey{ProductID: 5, VariantID: 12}); ok {
		t.Fatal("zero quantity should remove the line")
	}
	if !store.Totals().Equal(t2) {
		t.Fatal("nil totals should keep the current totals")
	}

	if err := store.ApplyMutationResult(9, 9, 0, nil); err != nil {
		t.Fatalf("removing an absent line should be a no-op: %v", err)
	}
}

func TestApplyMutationResultRejectsNegative(t *testing.T) {
	store := NewStore()
	t1 := totalsOf("1")
	_ = store.ApplyMutationResult(1, 1, 1, &t1)

	t2 := totalsOf("99")
	err := store.ApplyMutationResult(1, 1, -1, &t2)
	if !pkgerrors.Is(err, pkgerrors.CodeInternal) {
		t.Fatalf("expected logic error, got %v", err)
	}
	if got, _ := store.Line(types.LineKey{ProductID: 1, VariantID: 1}); got.Quantity != 1 {
		t.Fatalf("line should be untouched, got %d", got.Quantity)
	}
	if !store.Totals().Equal(t1) {
		t.Fatal("totals should be untouched")
	}
}

func TestLineIDSurvivesRefetch(t *testing.T) {
	store := NewStore()
	store.newLineID = func() string { return "local-1" }

	t1 := totalsOf("1.29")
	if err := store.ApplyMutationResult(5, 12, 1, &t1); err != nil {
		t.Fatalf("apply: %v", err)
	}

	fetched := line(5, 12, 1)
	fetched.LineID = "1"
	withServerID := line(7, 3, 2)
	withServerID.LineID = "2"
	if err := store.ReplaceAll([]types.CartLine{fetched, withServerID}, totalsOf("5")); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}

	known, _ := store.Line(types.LineKey{ProductID: 5, VariantID: 12})
	if known.LineID != "local-1" {
		t.Fatalf("known line should keep its id, got %q", known.LineID)
	}
	unseen, _ := store.Line(types.LineKey{ProductID: 7, VariantID: 3})
	if unseen.LineID != "2" {
		t.Fatalf("unseen line should take the server id, got %q", unseen.LineID)
	}
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	store := NewStore()
	price := decimal.RequireFromString("1.50")
	l := line(1, 1, 1)
	l.UnitPrice = &price
	_ = store.ReplaceAll([]types.CartLine{l}, totalsOf("1.5"))

	snap := store.Snapshot()
	snap.Lines[0].Quantity = 42
	*snap.Lines[0].UnitPrice = decimal.NewFromInt(100)

	got, _ := store.Line(types.LineKey{ProductID: 1, VariantID: 1})
	if got.Quantity != 1 || !got.UnitPrice.Equal(price) {
		t.Fatalf("snapshot aliased store internals: %+v", got)
	}
}

func TestSubscribeDeliversLatestState(t *testing.T) {
	store := NewStore()
	updates, cancel := store.Subscribe()

	t1 := totalsOf("1")
	_ = store.ApplyMutationResult(1, 1, 1, &t1)
	t2 := totalsOf("2")
	_ = store.ApplyMutationResult(1, 1, 2, &t2)
	store.SetPending(true)

	state := <-updates
	if !state.Pending || len(state.Lines) != 1 || state.Lines[0].Quantity != 2 {
		t.Fatalf("expected latest state, got %+v", state)
	}
	select {
	case extra := <-updates:
		t.Fatalf("expected no queued stale states, got %+v", extra)
	default:
	}

	cancel()
	cancel()
	if _, open := <-updates; open {
		t.Fatal("channel should be closed after cancel")
	}
	store.SetPending(false)
}
