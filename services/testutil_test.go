package services

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/soltony/bnpl-engine/models"
)

// newTestDB открывает изолированную базу sqlite в памяти
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.LoanProvider{},
		&models.LedgerAccount{},
		&models.LoanProduct{},
		&models.Tax{},
		&models.LoanApplication{},
		&models.Loan{},
		&models.Payment{},
		&models.JournalEntry{},
		&models.LedgerEntry{},
	))
	return db
}

// fixture содержит записи, созданные для теста выдачи займа
type fixture struct {
	provider    models.LoanProvider
	product     models.LoanProduct
	application models.LoanApplication
}

// fullChart возвращает полный план счетов для тестового провайдера
func fullChart() []models.LedgerAccount {
	return []models.LedgerAccount{
		{Name: "Principal receivable", Category: models.LedgerCategoryPrincipal, Type: models.LedgerTypeReceivable, Balance: decimal.Zero},
		{Name: "Funding cash", Category: models.LedgerCategoryFunding, Type: models.LedgerTypeCash, Balance: decimal.Zero},
		{Name: "Service fee receivable", Category: models.LedgerCategoryServiceFee, Type: models.LedgerTypeReceivable, Balance: decimal.Zero},
		{Name: "Service fee income", Category: models.LedgerCategoryServiceFee, Type: models.LedgerTypeIncome, Balance: decimal.Zero},
	}
}

// seedLendingFixture создает провайдера с планом счетов, продукт и одобренную заявку
func seedLendingFixture(t *testing.T, db *gorm.DB, balance string, accounts []models.LedgerAccount, serviceFee models.FeeSpec) *fixture {
	t.Helper()

	provider := models.LoanProvider{
		Name:           "Acme Capital",
		InitialBalance: decimal.RequireFromString(balance),
		LedgerAccounts: accounts,
	}
	require.NoError(t, db.Create(&provider).Error)

	product := models.LoanProduct{
		Name:       "BNPL 30",
		ProviderID: provider.ID,
		ServiceFee: serviceFee,
		PenaltyRules: models.PenaltyRuleList{
			{ThresholdDays: 5, Kind: models.FeeKindPercentage, Value: decimal.RequireFromString("0.05")},
		},
		Duration: 30,
	}
	require.NoError(t, db.Omit(clause.Associations).Create(&product).Error)

	application := models.LoanApplication{
		BorrowerID: 1,
		ProductID:  product.ID,
		Amount:     decimal.NewFromInt(1000),
		Status:     models.ApplicationStatusApproved,
	}
	require.NoError(t, db.Create(&application).Error)

	return &fixture{provider: provider, product: product, application: application}
}

// newApprovedApplication создает дополнительную одобренную заявку
func newApprovedApplication(t *testing.T, db *gorm.DB, productID uint) models.LoanApplication {
	t.Helper()

	application := models.LoanApplication{
		BorrowerID: 2,
		ProductID:  productID,
		Amount:     decimal.NewFromInt(1000),
		Status:     models.ApplicationStatusApproved,
	}
	require.NoError(t, db.Create(&application).Error)
	return application
}

// percentageFee возвращает процентную сервисную комиссию
func percentageFee(value string) models.FeeSpec {
	return models.FeeSpec{Kind: models.FeeKindPercentage, Value: decimal.RequireFromString(value)}
}
