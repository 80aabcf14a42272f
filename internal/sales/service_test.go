package sales

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/apprl/dashboard-backend/internal/cuts"
	"github.com/apprl/dashboard-backend/internal/distribution"
	"github.com/apprl/dashboard-backend/internal/earnings"
	"github.com/apprl/dashboard-backend/internal/publishers"
	"github.com/apprl/dashboard-backend/pkg/config"
	"github.com/apprl/dashboard-backend/pkg/db"
	"github.com/apprl/dashboard-backend/pkg/db/models"
	"github.com/apprl/dashboard-backend/pkg/enums"
	pkgerrors "github.com/apprl/dashboard-backend/pkg/errors"
	"github.com/apprl/dashboard-backend/pkg/logger"
)

func setupSalesTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{
		`CREATE TABLE IF NOT EXISTS publishers (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL DEFAULT '',
  email TEXT,
  partner_group_id TEXT,
  owner_network_id TEXT,
  owner_network_cut TEXT NOT NULL DEFAULT '0',
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS cuts (
  id TEXT PRIMARY KEY,
  group_id TEXT NOT NULL,
  vendor_id TEXT NOT NULL,
  base_cut TEXT NOT NULL,
  referral_cut TEXT NOT NULL DEFAULT '0',
  click_cost TEXT,
  click_cost_currency TEXT,
  rules_exceptions TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS sales (
  id TEXT PRIMARY KEY,
  network TEXT NOT NULL,
  network_sale_id TEXT NOT NULL,
  vendor_id TEXT,
  publisher_id TEXT,
  sale_type TEXT NOT NULL DEFAULT 'cost_per_order',
  status TEXT NOT NULL DEFAULT 'incomplete',
  is_promo INTEGER NOT NULL DEFAULT 0,
  is_referral_sale INTEGER NOT NULL DEFAULT 0,
  referral_user_id TEXT,
  cut_applied TEXT,
  commission_amount TEXT NOT NULL DEFAULT '0',
  original_commission_amount TEXT NOT NULL DEFAULT '0',
  currency TEXT NOT NULL DEFAULT 'EUR',
  rejection_note TEXT,
  sale_date DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS earnings (
  id TEXT PRIMARY KEY,
  user_id TEXT,
  earning_type TEXT NOT NULL,
  sale_id TEXT NOT NULL,
  from_user_id TEXT,
  from_product_id TEXT,
  amount TEXT NOT NULL,
  status TEXT NOT NULL,
  paid_state TEXT NOT NULL DEFAULT 'pending',
  created_at DATETIME,
  updated_at DATETIME
);`,
	}
	for _, stmt := range statements {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return conn
}

func testSettlementConfig() config.SettlementConfig {
	return config.SettlementConfig{
		DefaultCut:         decimal.RequireFromString("0.67"),
		DefaultReferralCut: decimal.RequireFromString("0.15"),
		SignupBonus:        decimal.NewFromInt(50),
		MinPayout:          decimal.NewFromInt(100),
		Currency:           "EUR",
		MaxTributeDepth:    10,
	}
}

type salesFixture struct {
	conn     *gorm.DB
	service  Service
	earnings earnings.Repository
	sales    Repository
}

func newSalesFixture(t *testing.T) *salesFixture {
	t.Helper()

	conn := setupSalesTestDB(t)
	logg := logger.New(logger.Options{Level: zerolog.ErrorLevel})
	cfg := testSettlementConfig()

	resolver, err := cuts.NewResolver(publishers.NewRepository(conn), cuts.NewRepository(conn), cfg, logg)
	require.NoError(t, err)
	engine, err := distribution.NewEngine(resolver, cfg, logg)
	require.NoError(t, err)

	saleRepo := NewRepository(conn)
	earningRepo := earnings.NewRepository(conn)
	svc, err := NewService(db.FromConn(conn), saleRepo, earningRepo, engine, logg, nil)
	require.NoError(t, err)

	return &salesFixture{conn: conn, service: svc, earnings: earningRepo, sales: saleRepo}
}

func (f *salesFixture) createPublisher(t *testing.T, groupID *uuid.UUID) *models.Publisher {
	t.Helper()
	publisher := &models.Publisher{ID: uuid.New(), Name: "pub", PartnerGroupID: groupID, IsActive: true}
	require.NoError(t, f.conn.Create(publisher).Error)
	return publisher
}

func (f *salesFixture) createCut(t *testing.T, groupID, vendorID uuid.UUID, baseCut string) {
	t.Helper()
	cut := &models.Cut{
		ID:          uuid.New(),
		GroupID:     groupID,
		VendorID:    vendorID,
		BaseCut:     decimal.RequireFromString(baseCut),
		ReferralCut: decimal.RequireFromString("0.15"),
	}
	require.NoError(t, f.conn.Create(cut).Error)
}

func ingestInput(publisherID, vendorID *uuid.UUID, commission string) IngestSaleInput {
	return IngestSaleInput{
		Network:          "awin",
		NetworkSaleID:    uuid.NewString(),
		VendorID:         vendorID,
		PublisherID:      publisherID,
		SaleType:         enums.SaleTypeCostPerOrder,
		Status:           enums.SaleStatusPending,
		CommissionAmount: decimal.RequireFromString(commission),
		Currency:         "EUR",
	}
}

func TestService_IngestCreatesSaleAndEarnings(t *testing.T) {
	fixture := newSalesFixture(t)
	ctx := context.Background()

	groupID := uuid.New()
	vendorID := uuid.New()
	publisher := fixture.createPublisher(t, &groupID)
	fixture.createCut(t, groupID, vendorID, "0.6")

	sale, err := fixture.service.Ingest(ctx, ingestInput(&publisher.ID, &vendorID, "100"))
	require.NoError(t, err)
	require.NotNil(t, sale.CutApplied)

	rows, err := fixture.earnings.ListBySale(ctx, sale.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	total := decimal.Zero
	for _, row := range rows {
		total = total.Add(row.Amount)
		require.Equal(t, enums.SaleStatusPending, row.Status)
	}
	require.True(t, total.Equal(decimal.NewFromInt(100)))
}

func TestService_ReimportRewritesEarnings(t *testing.T) {
	fixture := newSalesFixture(t)
	ctx := context.Background()

	groupID := uuid.New()
	vendorID := uuid.New()
	publisher := fixture.createPublisher(t, &groupID)
	fixture.createCut(t, groupID, vendorID, "0.6")

	input := ingestInput(&publisher.ID, &vendorID, "100")
	sale, err := fixture.service.Ingest(ctx, input)
	require.NoError(t, err)

	input.CommissionAmount = decimal.RequireFromString("200")
	updated, err := fixture.service.Ingest(ctx, input)
	require.NoError(t, err)
	require.Equal(t, sale.ID, updated.ID)
	require.True(t, updated.CommissionAmount.Equal(decimal.NewFromInt(200)))
	// The first reported amount stays for auditing.
	require.True(t, updated.OriginalCommissionAmount.Equal(decimal.NewFromInt(100)))

	rows, err := fixture.earnings.ListBySale(ctx, sale.ID)
	require.NoError(t, err)
	total := decimal.Zero
	for _, row := range rows {
		total = total.Add(row.Amount)
	}
	require.True(t, total.Equal(decimal.NewFromInt(200)), "total %s", total)
}

func TestService_ReimportMovesConfirmedSaleStatus(t *testing.T) {
	fixture := newSalesFixture(t)
	ctx := context.Background()

	groupID := uuid.New()
	vendorID := uuid.New()
	publisher := fixture.createPublisher(t, &groupID)
	fixture.createCut(t, groupID, vendorID, "0.6")

	input := ingestInput(&publisher.ID, &vendorID, "100")
	sale, err := fixture.service.Ingest(ctx, input)
	require.NoError(t, err)

	_, err = fixture.service.Accept(ctx, sale.ID)
	require.NoError(t, err)

	// The network reverses the sale. The status moves back, the confirmed
	// amounts stay frozen.
	input.CommissionAmount = decimal.RequireFromString("500")
	input.Status = enums.SaleStatusDeclined
	updated, err := fixture.service.Ingest(ctx, input)
	require.NoError(t, err)
	require.Equal(t, enums.SaleStatusDeclined, updated.Status)
	require.True(t, updated.CommissionAmount.Equal(decimal.NewFromInt(100)))

	rows, err := fixture.earnings.ListBySale(ctx, sale.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, row := range rows {
		require.Equal(t, enums.SaleStatusDeclined, row.Status)
	}
}

func TestService_ReimportIgnoredWhileSettling(t *testing.T) {
	fixture := newSalesFixture(t)
	ctx := context.Background()

	groupID := uuid.New()
	vendorID := uuid.New()
	publisher := fixture.createPublisher(t, &groupID)
	fixture.createCut(t, groupID, vendorID, "0.6")

	input := ingestInput(&publisher.ID, &vendorID, "100")
	sale, err := fixture.service.Ingest(ctx, input)
	require.NoError(t, err)

	require.NoError(t, fixture.conn.Model(&models.Sale{}).
		Where("id = ?", sale.ID).
		Update("status", enums.SaleStatusReadyForPayment).Error)

	input.CommissionAmount = decimal.RequireFromString("500")
	input.Status = enums.SaleStatusPending
	updated, err := fixture.service.Ingest(ctx, input)
	require.NoError(t, err)
	require.Equal(t, enums.SaleStatusReadyForPayment, updated.Status)
	require.True(t, updated.CommissionAmount.Equal(decimal.NewFromInt(100)))
}

func TestService_AcceptPropagatesToEarnings(t *testing.T) {
	fixture := newSalesFixture(t)
	ctx := context.Background()

	groupID := uuid.New()
	vendorID := uuid.New()
	publisher := fixture.createPublisher(t, &groupID)
	fixture.createCut(t, groupID, vendorID, "0.6")

	sale, err := fixture.service.Ingest(ctx, ingestInput(&publisher.ID, &vendorID, "100"))
	require.NoError(t, err)

	confirmed, err := fixture.service.Accept(ctx, sale.ID)
	require.NoError(t, err)
	require.Equal(t, enums.SaleStatusConfirmed, confirmed.Status)

	rows, err := fixture.earnings.ListBySale(ctx, sale.ID)
	require.NoError(t, err)
	for _, row := range rows {
		require.Equal(t, enums.SaleStatusConfirmed, row.Status)
	}
}

func TestService_RejectBlockedWhenEarningsLocked(t *testing.T) {
	fixture := newSalesFixture(t)
	ctx := context.Background()

	groupID := uuid.New()
	vendorID := uuid.New()
	publisher := fixture.createPublisher(t, &groupID)
	fixture.createCut(t, groupID, vendorID, "0.6")

	sale, err := fixture.service.Ingest(ctx, ingestInput(&publisher.ID, &vendorID, "100"))
	require.NoError(t, err)

	require.NoError(t, fixture.conn.Model(&models.Earning{}).
		Where("sale_id = ?", sale.ID).
		Update("paid_state", enums.PaidStateReady).Error)

	_, err = fixture.service.Reject(ctx, sale.ID, "fraud")
	require.Error(t, err)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestService_RejectStoresNote(t *testing.T) {
	fixture := newSalesFixture(t)
	ctx := context.Background()

	groupID := uuid.New()
	vendorID := uuid.New()
	publisher := fixture.createPublisher(t, &groupID)
	fixture.createCut(t, groupID, vendorID, "0.6")

	sale, err := fixture.service.Ingest(ctx, ingestInput(&publisher.ID, &vendorID, "100"))
	require.NoError(t, err)

	declined, err := fixture.service.Reject(ctx, sale.ID, "returned goods")
	require.NoError(t, err)
	require.Equal(t, enums.SaleStatusDeclined, declined.Status)
	require.NotNil(t, declined.RejectionNote)
	require.Equal(t, "returned goods", *declined.RejectionNote)

	rows, err := fixture.earnings.ListBySale(ctx, sale.ID)
	require.NoError(t, err)
	for _, row := range rows {
		require.Equal(t, enums.SaleStatusDeclined, row.Status)
	}
}

func TestService_IngestKeepsSaleWhenPublisherMissing(t *testing.T) {
	fixture := newSalesFixture(t)
	ctx := context.Background()

	missing := uuid.New()
	vendorID := uuid.New()
	sale, err := fixture.service.Ingest(ctx, ingestInput(&missing, &vendorID, "100"))
	require.NoError(t, err)

	rows, err := fixture.earnings.ListBySale(ctx, sale.ID)
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestService_RedistributeRecovers(t *testing.T) {
	fixture := newSalesFixture(t)
	ctx := context.Background()

	missing := uuid.New()
	groupID := uuid.New()
	vendorID := uuid.New()
	fixture.createCut(t, groupID, vendorID, "0.6")
	sale, err := fixture.service.Ingest(ctx, ingestInput(&missing, &vendorID, "100"))
	require.NoError(t, err)

	// Publisher shows up later; a redistribution pass materializes earnings.
	publisher := &models.Publisher{ID: missing, Name: "late", PartnerGroupID: &groupID, IsActive: true}
	require.NoError(t, fixture.conn.Create(publisher).Error)

	_, err = fixture.service.Redistribute(ctx, sale.ID)
	require.NoError(t, err)

	rows, err := fixture.earnings.ListBySale(ctx, sale.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
}

func TestService_ReimportPicksUpNewCut(t *testing.T) {
	fixture := newSalesFixture(t)
	ctx := context.Background()

	groupID := uuid.New()
	vendorID := uuid.New()
	publisher := fixture.createPublisher(t, &groupID)

	// Without a cut the sale lands but distribution is deferred.
	input := ingestInput(&publisher.ID, &vendorID, "100")
	sale, err := fixture.service.Ingest(ctx, input)
	require.NoError(t, err)

	rows, err := fixture.earnings.ListBySale(ctx, sale.ID)
	require.NoError(t, err)
	require.Empty(t, rows)

	// The operator configures the cut and the nightly feed re-imports the
	// sale byte for byte. Earnings materialize even though nothing in the
	// import changed.
	fixture.createCut(t, groupID, vendorID, "0.6")
	_, err = fixture.service.Ingest(ctx, input)
	require.NoError(t, err)

	rows, err = fixture.earnings.ListBySale(ctx, sale.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
}

func TestService_HouseSaleSingleEarning(t *testing.T) {
	fixture := newSalesFixture(t)
	ctx := context.Background()

	vendorID := uuid.New()
	sale, err := fixture.service.Ingest(ctx, ingestInput(nil, &vendorID, "75"))
	require.NoError(t, err)
	require.Nil(t, sale.CutApplied)

	rows, err := fixture.earnings.ListBySale(ctx, sale.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Nil(t, rows[0].UserID)
	require.True(t, rows[0].Amount.Equal(decimal.NewFromInt(75)))
}
