package validation

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/db/models"
	pkgerrors "github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/errors"
)

type lineInput struct {
	ProductID uuid.UUID       `json:"product_id" validate:"required"`
	Quantity  decimal.Decimal `json:"quantity" validate:"dec_gt0"`
	Unit      string          `json:"unit" validate:"uom"`
}

type orderInput struct {
	ClientID uuid.UUID        `json:"client_id" validate:"required"`
	Discount *decimal.Decimal `json:"discount" validate:"omitempty,dec_gte0"`
	Method   string           `json:"method" validate:"omitempty,paymethod"`
	Lines    []lineInput      `json:"lines" validate:"required,min=1,dive"`
}

func TestStructReportsFieldPaths(t *testing.T) {
	negative := decimal.NewFromInt(-1)
	err := Struct(orderInput{
		Discount: &negative,
		Method:   "barter",
		Lines:    []lineInput{{ProductID: uuid.New(), Quantity: decimal.Zero, Unit: "LB"}},
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())

	details, ok := typed.Details().(map[string]string)
	require.True(t, ok)
	require.Equal(t, "is required", details["client_id"])
	require.Equal(t, "must not be negative", details["discount"])
	require.Equal(t, "must be a known payment method", details["method"])
	require.Equal(t, "must be greater than zero", details["lines[0].quantity"])
	require.Equal(t, "must be a known unit of measure", details["lines[0].unit"])
}

func TestStructAcceptsValidInput(t *testing.T) {
	err := Struct(orderInput{
		ClientID: uuid.New(),
		Method:   "pix",
		Lines:    []lineInput{{ProductID: uuid.New(), Quantity: decimal.NewFromInt(100), Unit: "kg"}},
	})
	require.NoError(t, err)
}

func TestDuplicateProducts(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	require.NoError(t, DuplicateProducts([]uuid.UUID{a, b}))

	err := DuplicateProducts([]uuid.UUID{a, b, a, a})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeConflict, typed.Code())
	details := typed.Details().(map[string]any)
	require.Equal(t, []uuid.UUID{a}, details["duplicated_products"])
}

func TestAreaRules(t *testing.T) {
	owned, supplier := uuid.New(), uuid.New()

	both := []AreaRef{{OwnedAreaID: &owned, SupplierAreaID: &supplier}}
	requireCode(t, AreaExclusivity(both, true), pkgerrors.CodeValidation)

	placeholder := []AreaRef{{}}
	require.NoError(t, AreaExclusivity(placeholder, true))
	requireCode(t, AreaExclusivity(placeholder, false), pkgerrors.CodeValidation)
	requireCode(t, RequireResolvedArea(placeholder), pkgerrors.CodeValidation)

	mixed := []AreaRef{{}, {SupplierAreaID: &supplier}}
	require.NoError(t, RequireResolvedArea(mixed))

	requireCode(t, RequireAreas(nil), pkgerrors.CodeValidation)
	require.NoError(t, RequireAreas(mixed))
}

func TestStockCheckerCreateMode(t *testing.T) {
	conn := newTestDB(t)
	tagType, area := uuid.New(), uuid.New()
	lotA := seedLot(t, conn, tagType, area, 30)
	seedLot(t, conn, tagType, area, 20)
	seedReservation(t, conn, uuid.New(), lotA, 15)

	checker := NewStockChecker()
	ctx := context.Background()

	require.NoError(t, checker.Check(ctx, conn, uuid.Nil, []StockRequest{
		{TagTypeID: tagType, AreaID: &area, Quantity: 20},
		{TagTypeID: tagType, AreaID: &area, Quantity: 15},
	}, StockForCreate))

	err := checker.Check(ctx, conn, uuid.Nil, []StockRequest{
		{TagTypeID: tagType, AreaID: &area, Quantity: 36},
	}, StockForCreate)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeInsufficient, typed.Code())
	details := typed.Details().(map[string]any)
	require.Equal(t, 35, details["available"])
	require.Equal(t, 36, details["requested"])
	require.Equal(t, area, details["area_id"])
}

func TestStockCheckerEditModeAddsOwnReservations(t *testing.T) {
	conn := newTestDB(t)
	tagType, area := uuid.New(), uuid.New()
	lot := seedLot(t, conn, tagType, area, 10)
	orderID := uuid.New()
	seedReservation(t, conn, orderID, lot, 10)

	checker := NewStockChecker()
	ctx := context.Background()
	req := []StockRequest{{TagTypeID: tagType, LotID: &lot.ID, Quantity: 4}}

	requireCode(t, checker.Check(ctx, conn, orderID, req, StockForCreate), pkgerrors.CodeInsufficient)
	require.NoError(t, checker.Check(ctx, conn, orderID, req, StockForEdit))
}

func TestStockCheckerUnknownLot(t *testing.T) {
	conn := newTestDB(t)
	missing := uuid.New()
	err := NewStockChecker().Check(context.Background(), conn, uuid.Nil, []StockRequest{
		{TagTypeID: uuid.New(), LotID: &missing, Quantity: 1},
	}, StockForCreate)
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestStockCheckerUnknownAreaIsInsufficient(t *testing.T) {
	conn := newTestDB(t)
	area := uuid.New()
	err := NewStockChecker().Check(context.Background(), conn, uuid.Nil, []StockRequest{
		{TagTypeID: uuid.New(), AreaID: &area, Quantity: 1},
	}, StockForCreate)
	requireCode(t, err, pkgerrors.CodeInsufficient)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:validation_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.TagLot{}, &models.TagAssignment{}); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return conn
}

func seedLot(t *testing.T, conn *gorm.DB, tagType, area uuid.UUID, total int) models.TagLot {
	t.Helper()
	lot := models.TagLot{TagTypeID: tagType, AreaID: area, TotalQty: total}
	require.NoError(t, conn.Create(&lot).Error)
	return lot
}

func seedReservation(t *testing.T, conn *gorm.DB, orderID uuid.UUID, lot models.TagLot, qty int) {
	t.Helper()
	require.NoError(t, conn.Create(&models.TagAssignment{
		LineID:    uuid.New(),
		OrderID:   orderID,
		TagTypeID: lot.TagTypeID,
		LotID:     lot.ID,
		AreaID:    lot.AreaID,
		Quantity:  qty,
	}).Error)
	require.NoError(t, conn.Model(&models.TagLot{}).Where("id = ?", lot.ID).
		Update("reserved_qty", gorm.Expr("reserved_qty + ?", qty)).Error)
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	typed := pkgerrors.As(err)
	if typed == nil {
		t.Fatalf("expected %s error, got %v", code, err)
	}
	if typed.Code() != code {
		t.Fatalf("expected %s, got %s (%v)", code, typed.Code(), err)
	}
}
