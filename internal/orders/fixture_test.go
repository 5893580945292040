package orders

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/internal/audit"
	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/internal/notifications"
	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/internal/registry"
	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/internal/reservation"
	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/db"
	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/db/models"
	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/enums"
	pkgerrors "github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/errors"
)

var fixedNow = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	mu     sync.Mutex
	events []notifications.Event
	err    error
}

func (n *recordingNotifier) Notify(_ context.Context, event notifications.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return n.err
}

func (n *recordingNotifier) types() []enums.NotificationType {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]enums.NotificationType, 0, len(n.events))
	for _, e := range n.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	conn     *gorm.DB
	svc      Service
	notifier *recordingNotifier
	admin    Actor
	client   models.Client
	products []models.Product
	area     models.OwnedArea
	supplier models.SupplierArea
	tagType  models.TagType
	crew     models.LaborCrew
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := "file:orders_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}

	f := &fixture{conn: conn, notifier: &recordingNotifier{}}
	admin := models.User{Name: "Admin", Role: enums.ActorRoleAdmin}
	f.client = models.Client{Name: "Mercado Central", Active: true}
	f.products = []models.Product{
		{Name: "Banana Prata", DefaultUnit: enums.UnitKG},
		{Name: "Banana Nanica", DefaultUnit: enums.UnitKG},
		{Name: "Mamao", DefaultUnit: enums.UnitCX},
	}
	f.area = models.OwnedArea{Name: "Lote 3"}
	f.supplier = models.SupplierArea{Name: "Sitio Novo", SupplierName: "Antonio"}
	f.tagType = models.TagType{Name: "Fita Vermelha"}
	f.crew = models.LaborCrew{Name: "Turma B"}
	for _, row := range []any{&admin, &f.client, &f.area, &f.supplier, &f.tagType, &f.crew} {
		require.NoError(t, conn.Create(row).Error)
	}
	for i := range f.products {
		require.NoError(t, conn.Create(&f.products[i]).Error)
	}
	f.admin = Actor{UserID: admin.ID, Role: enums.ActorRoleAdmin}

	engine, err := reservation.NewEngine(reservation.EngineParams{Repo: reservation.NewRepository(conn)})
	require.NoError(t, err)
	recorder, err := audit.NewRecorder(audit.NewRepository(conn))
	require.NoError(t, err)
	svc, err := NewService(ServiceParams{
		Repo:     NewRepository(conn),
		Tx:       db.Wrap(conn),
		Registry: registry.New(conn),
		Engine:   engine,
		Audit:    recorder,
		Notifier: f.notifier,
		Clock:    func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

func (f *fixture) seedLot(t *testing.T, areaID uuid.UUID, total int) models.TagLot {
	t.Helper()
	lot := models.TagLot{TagTypeID: f.tagType.ID, AreaID: areaID, TotalQty: total}
	require.NoError(t, f.conn.Create(&lot).Error)
	return lot
}

func (f *fixture) lot(t *testing.T, id uuid.UUID) models.TagLot {
	t.Helper()
	var lot models.TagLot
	require.NoError(t, f.conn.First(&lot, "id = ?", id).Error)
	return lot
}

func (f *fixture) ownedAreas() []AreaInput {
	id := f.area.ID
	return []AreaInput{{OwnedAreaID: &id}}
}

func (f *fixture) line(product int, qty string) LineInput {
	return LineInput{
		ProductID:    f.products[product].ID,
		PredictedQty: d(qty),
		PrimaryUnit:  enums.UnitKG,
		Areas:        f.ownedAreas(),
	}
}

func (f *fixture) create(t *testing.T, lines ...LineInput) *models.Order {
	t.Helper()
	order, err := f.svc.Create(context.Background(), f.admin, CreateOrderInput{ClientID: f.client.ID, Lines: lines})
	require.NoError(t, err)
	return order
}

// harvestAll reports every line of the order as fully harvested on the owned area.
func (f *fixture) harvestAll(t *testing.T, order *models.Order) *models.Order {
	t.Helper()
	in := HarvestInput{}
	for _, line := range order.Lines {
		qty := line.PredictedQty
		in.Lines = append(in.Lines, HarvestLineInput{LineID: line.ID, ActualQtyPrimary: &qty, Areas: f.ownedAreas()})
	}
	harvested, err := f.svc.UpdateHarvest(context.Background(), f.admin, order.ID, in)
	require.NoError(t, err)
	return harvested
}

func (f *fixture) priceAll(t *testing.T, order *models.Order, price string) *models.Order {
	t.Helper()
	in := PricingInput{}
	for _, line := range order.Lines {
		in.Lines = append(in.Lines, PricingLineInput{LineID: line.ID, UnitPrice: d(price)})
	}
	priced, err := f.svc.UpdatePricing(context.Background(), f.admin, order.ID, in)
	require.NoError(t, err)
	return priced
}

func (f *fixture) reservationsFor(t *testing.T, orderID uuid.UUID) []models.TagAssignment {
	t.Helper()
	var rows []models.TagAssignment
	require.NoError(t, f.conn.Where("order_id = ?", orderID).Find(&rows).Error)
	return rows
}

func d(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func dp(value string) *decimal.Decimal {
	v := d(value)
	return &v
}

func idp(id uuid.UUID) *uuid.UUID {
	return &id
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) *pkgerrors.Error {
	t.Helper()
	typed := pkgerrors.As(err)
	if typed == nil {
		t.Fatalf("expected %s error, got %v", code, err)
	}
	if typed.Code() != code {
		t.Fatalf("expected %s, got %s (%v)", code, typed.Code(), err)
	}
	return typed
}

func requireMoney(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	if !got.Equal(d(want)) {
		t.Fatalf("expected %s, got %s", want, got.StringFixed(2))
	}
}

var errNotifyDown = errors.New("notifier down")
