package orders

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/enums"
	pkgerrors "github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/errors"
)

func TestEditFullReplacesLinesAndReconcilesTags(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lot := f.seedLot(t, f.area.ID, 20)

	kept := f.line(0, "10")
	kept.Tags = []TagInput{{TagTypeID: f.tagType.ID, AreaID: idp(f.area.ID), Quantity: 10}}
	dropped := f.line(1, "5")
	dropped.Tags = []TagInput{{TagTypeID: f.tagType.ID, AreaID: idp(f.area.ID), Quantity: 6}}
	order := f.create(t, kept, dropped)
	assert.Equal(t, 16, f.lot(t, lot.ID).ReservedQty)

	keptID := order.Lines[0].ID
	if order.Lines[0].ProductID != f.products[0].ID {
		keptID = order.Lines[1].ID
	}

	added := f.line(2, "3")
	added.PrimaryUnit = enums.UnitCX
	added.Tags = []TagInput{{TagTypeID: f.tagType.ID, AreaID: idp(f.area.ID), Quantity: 2}}
	edited, err := f.svc.EditFull(ctx, f.admin, order.ID, EditInput{
		Lines: []LineEdit{
			UpdateLine{
				LineID:       keptID,
				PredictedQty: dp("12"),
				Tags:         []TagInput{{TagTypeID: f.tagType.ID, AreaID: idp(f.area.ID), Quantity: 4}},
			},
			CreateLine{LineInput: added},
		},
	})
	require.NoError(t, err)
	require.Len(t, edited.Lines, 2)

	byProduct := map[string]int{}
	for _, line := range edited.Lines {
		total := 0
		for _, tag := range line.Tags {
			total += tag.Quantity
		}
		byProduct[line.ProductID.String()] = total
	}
	assert.Equal(t, 4, byProduct[f.products[0].ID.String()])
	assert.Equal(t, 2, byProduct[f.products[2].ID.String()])
	assert.Equal(t, 6, f.lot(t, lot.ID).ReservedQty)
	assert.Len(t, f.reservationsFor(t, order.ID), 2)
}

func TestEditFullWithoutLinesKeepsThem(t *testing.T) {
	f := newFixture(t)
	order := f.create(t, f.line(0, "10"), f.line(1, "3"))

	edited, err := f.svc.EditFull(context.Background(), f.admin, order.ID, EditInput{Freight: dp("15")})
	require.NoError(t, err)
	assert.Len(t, edited.Lines, 2)
	requireMoney(t, "15", edited.Freight)
}

func TestEditFullRejectsEmptyOrDuplicateLines(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.create(t, f.line(0, "10"))

	_, err := f.svc.EditFull(ctx, f.admin, order.ID, EditInput{Lines: []LineEdit{RemoveLine{LineID: order.Lines[0].ID}}})
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = f.svc.EditFull(ctx, f.admin, order.ID, EditInput{Lines: []LineEdit{
		UpdateLine{LineID: order.Lines[0].ID},
		CreateLine{LineInput: f.line(0, "2")},
	}})
	requireCode(t, err, pkgerrors.CodeConflict)
}

func TestEditFullNewLineNeedsPhaseFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := pricedOrder(t, f, "10", "2")

	_, err := f.svc.EditFull(ctx, f.admin, order.ID, EditInput{Lines: []LineEdit{
		UpdateLine{LineID: order.Lines[0].ID},
		CreateLine{LineInput: f.line(1, "4")},
	}})
	typed := requireCode(t, err, pkgerrors.CodeValidation)
	details := typed.Details().(map[string]any)
	assert.Equal(t, []string{"actual_qty_primary", "unit_price", "pricing_unit", "priced_qty"}, details["missing"])

	unit := enums.UnitKG
	edited, err := f.svc.EditFull(ctx, f.admin, order.ID, EditInput{Lines: []LineEdit{
		UpdateLine{LineID: order.Lines[0].ID},
		CreateLine{
			LineInput:        f.line(1, "4"),
			ActualQtyPrimary: dp("4"),
			UnitPrice:        dp("3"),
			PricingUnit:      &unit,
			PricedQty:        dp("4"),
		},
	}})
	require.NoError(t, err)
	require.Len(t, edited.Lines, 2)
	requireMoney(t, "32.00", edited.FinalValue)
	assert.Equal(t, enums.OrderStatusAwaitingPayment, edited.Status)
}

func TestEditFullRepricesFromActualQuantity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := pricedOrder(t, f, "10", "2")

	edited, err := f.svc.EditFull(ctx, f.admin, order.ID, EditInput{Lines: []LineEdit{
		UpdateLine{LineID: order.Lines[0].ID, ActualQtyPrimary: dp("12")},
	}})
	require.NoError(t, err)
	requireMoney(t, "24.00", edited.Lines[0].Total)
	requireMoney(t, "24.00", edited.FinalValue)
}

func TestEditFullBelowReceivedIsInvalidState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := pricedOrder(t, f, "10", "2")
	_, err := f.svc.AddPayment(ctx, f.admin, order.ID, PaymentInput{Amount: d("15"), Method: enums.PaymentMethodPix})
	require.NoError(t, err)

	_, err = f.svc.EditFull(ctx, f.admin, order.ID, EditInput{Discount: dp("6")})
	typed := requireCode(t, err, pkgerrors.CodeStateConflict)
	details := typed.Details().(map[string]any)
	assert.Equal(t, "1.00", details["required_reduction"])
}

func TestEditFullHarvestingLinesAdvancesStatus(t *testing.T) {
	f := newFixture(t)
	order := f.create(t, f.line(0, "10"))

	edited, err := f.svc.EditFull(context.Background(), f.admin, order.ID, EditInput{Lines: []LineEdit{
		UpdateLine{LineID: order.Lines[0].ID, ActualQtyPrimary: dp("9")},
	}})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusHarvestDone, edited.Status)
	require.NotNil(t, edited.HarvestedAt)
}

func TestEditFullMovesTagsToAnEarlierLineOnAFullLot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lot := f.seedLot(t, f.area.ID, 10)
	order := f.create(t, f.line(0, "10"), f.line(1, "5"))
	first, second := order.Lines[0].ID, order.Lines[1].ID
	whole := []TagInput{{TagTypeID: f.tagType.ID, LotID: idp(lot.ID), Quantity: 10}}

	_, err := f.svc.EditFull(ctx, f.admin, order.ID, EditInput{Lines: []LineEdit{
		UpdateLine{LineID: first},
		UpdateLine{LineID: second, Tags: whole},
	}})
	require.NoError(t, err)
	assert.Equal(t, 0, f.lot(t, lot.ID).Available())

	// the earlier line is reconciled first, against a lot that is still fully held
	edited, err := f.svc.EditFull(ctx, f.admin, order.ID, EditInput{Lines: []LineEdit{
		UpdateLine{LineID: second, Tags: []TagInput{}},
		UpdateLine{LineID: first, Tags: whole},
	}})
	require.NoError(t, err)

	held := map[string]int{}
	for _, line := range edited.Lines {
		for _, tag := range line.Tags {
			held[line.ID.String()] += tag.Quantity
		}
	}
	assert.Equal(t, 10, held[first.String()])
	assert.Equal(t, 0, held[second.String()])
	assert.Equal(t, 10, f.lot(t, lot.ID).ReservedQty)
	assert.Len(t, f.reservationsFor(t, order.ID), 1)
}
