package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/soltony/bnpl-engine/models"
)

var (
	testDisbursedDate = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	testDueDate       = testDisbursedDate.AddDate(0, 0, 30)
)

// disburseDTO возвращает корректный DTO выдачи для фикстуры
func disburseDTO(fx *fixture, amount int64) DisburseLoanDTO {
	return DisburseLoanDTO{
		BorrowerID:        fx.application.BorrowerID,
		ProductID:         fx.product.ID,
		LoanApplicationID: fx.application.ID,
		LoanAmount:        decimal.NewFromInt(amount),
		DisbursedDate:     testDisbursedDate,
		DueDate:           testDueDate,
	}
}

func TestDisburseSuccess(t *testing.T) {
	db := newTestDB(t)
	fx := seedLendingFixture(t, db, "10000", fullChart(), percentageFee("0.1"))
	svc := NewDisbursementService(db)

	loan, err := svc.Disburse(disburseDTO(fx, 1000))
	require.NoError(t, err)

	// Займ создан с зафиксированной комиссией и статусом UNPAID
	assert.True(t, loan.LoanAmount.Equal(decimal.NewFromInt(1000)))
	assert.True(t, loan.ServiceFee.Equal(decimal.NewFromInt(100)), "комиссия: %s", loan.ServiceFee)
	assert.Equal(t, models.RepaymentStatusUnpaid, loan.RepaymentStatus)
	assert.True(t, loan.RepaidAmount.IsZero())

	// Баланс провайдера уменьшился ровно на тело займа
	var provider models.LoanProvider
	require.NoError(t, db.First(&provider, fx.provider.ID).Error)
	assert.True(t, provider.InitialBalance.Equal(decimal.NewFromInt(9000)), "баланс: %s", provider.InitialBalance)

	// Заявка переведена в статус DISBURSED
	var application models.LoanApplication
	require.NoError(t, db.First(&application, fx.application.ID).Error)
	assert.Equal(t, models.ApplicationStatusDisbursed, application.Status)

	// Создана ровно одна проводка с четырьмя записями
	var journal models.JournalEntry
	require.NoError(t, db.Preload("Entries").Where("loan_id = ?", loan.ID).First(&journal).Error)
	assert.NotEmpty(t, journal.Reference)
	require.Len(t, journal.Entries, 4)

	// Сумма дебетов равна сумме кредитов
	debits, credits := decimal.Zero, decimal.Zero
	for _, entry := range journal.Entries {
		switch entry.Type {
		case models.LedgerEntryDebit:
			debits = debits.Add(entry.Amount)
		case models.LedgerEntryCredit:
			credits = credits.Add(entry.Amount)
		}
	}
	assert.True(t, debits.Equal(credits), "дебет %s, кредит %s", debits, credits)
	assert.True(t, debits.Equal(decimal.NewFromInt(1100)))

	// Балансы счетов увеличились на суммы проводки
	assertAccountBalance(t, db, fx.provider.ID, models.LedgerCategoryPrincipal, models.LedgerTypeReceivable, "1000")
	assertAccountBalance(t, db, fx.provider.ID, models.LedgerCategoryFunding, models.LedgerTypeCash, "1000")
	assertAccountBalance(t, db, fx.provider.ID, models.LedgerCategoryServiceFee, models.LedgerTypeReceivable, "100")
	assertAccountBalance(t, db, fx.provider.ID, models.LedgerCategoryServiceFee, models.LedgerTypeIncome, "100")
}

func TestDisburseInsufficientFundsLeavesNoTrace(t *testing.T) {
	db := newTestDB(t)
	fx := seedLendingFixture(t, db, "400", fullChart(), percentageFee("0.1"))
	svc := NewDisbursementService(db)

	_, err := svc.Disburse(disburseDTO(fx, 500))
	require.ErrorIs(t, err, models.ErrInsufficientFunds)

	// Отказ не оставляет ни займа, ни проводок, ни списания
	assertEmptyTables(t, db)

	var provider models.LoanProvider
	require.NoError(t, db.First(&provider, fx.provider.ID).Error)
	assert.True(t, provider.InitialBalance.Equal(decimal.NewFromInt(400)))

	var application models.LoanApplication
	require.NoError(t, db.First(&application, fx.application.ID).Error)
	assert.Equal(t, models.ApplicationStatusApproved, application.Status)
}

func TestDisburseZeroFeeCreatesTwoEntries(t *testing.T) {
	db := newTestDB(t)
	accounts := fullChart()[:2] // только дебиторка тела и касса фонда
	zeroFee := models.FeeSpec{Kind: models.FeeKindFixed, Value: decimal.Zero}
	fx := seedLendingFixture(t, db, "10000", accounts, zeroFee)
	svc := NewDisbursementService(db)

	loan, err := svc.Disburse(disburseDTO(fx, 1000))
	require.NoError(t, err)
	assert.True(t, loan.ServiceFee.IsZero())

	var journal models.JournalEntry
	require.NoError(t, db.Preload("Entries").Where("loan_id = ?", loan.ID).First(&journal).Error)
	assert.Len(t, journal.Entries, 2)
}

func TestDisburseMissingFeeAccounts(t *testing.T) {
	db := newTestDB(t)
	accounts := fullChart()[:2]
	fx := seedLendingFixture(t, db, "10000", accounts, percentageFee("0.1"))
	svc := NewDisbursementService(db)

	_, err := svc.Disburse(disburseDTO(fx, 1000))
	require.ErrorIs(t, err, models.ErrLedgerMisconfigured)

	assertEmptyTables(t, db)
}

func TestDisburseDepletesFundsExactly(t *testing.T) {
	db := newTestDB(t)
	fx := seedLendingFixture(t, db, "1000", fullChart(), percentageFee("0.1"))
	svc := NewDisbursementService(db)

	// Первая выдача забирает весь пул средств
	_, err := svc.Disburse(disburseDTO(fx, 1000))
	require.NoError(t, err)

	var provider models.LoanProvider
	require.NoError(t, db.First(&provider, fx.provider.ID).Error)
	assert.True(t, provider.InitialBalance.IsZero())

	// Вторая выдача по новой заявке отклоняется
	second := newApprovedApplication(t, db, fx.product.ID)
	dto := disburseDTO(fx, 1000)
	dto.BorrowerID = second.BorrowerID
	dto.LoanApplicationID = second.ID
	_, err = svc.Disburse(dto)
	require.ErrorIs(t, err, models.ErrInsufficientFunds)
}

func TestDisburseConcurrentDrainHitsGuardedUpdate(t *testing.T) {
	db := newTestDB(t)
	fx := seedLendingFixture(t, db, "1000", fullChart(), percentageFee("0.1"))
	svc := NewDisbursementService(db)

	// Имитируем конкурентную выдачу: средства провайдера списываются после
	// предварительной проверки, но до защитного условного UPDATE. Списание
	// выполняется на соединении транзакции, чтобы условный UPDATE его увидел.
	drained := false
	err := db.Callback().Update().Before("gorm:update").Register("drain_provider_funds", func(tx *gorm.DB) {
		if drained || tx.Statement.Table != "loan_applications" {
			return
		}
		drained = true
		_, execErr := tx.Statement.ConnPool.ExecContext(tx.Statement.Context,
			"UPDATE loan_providers SET initial_balance = initial_balance - 1000 WHERE id = ?", fx.provider.ID)
		require.NoError(t, execErr)
	})
	require.NoError(t, err)
	defer db.Callback().Update().Remove("drain_provider_funds")

	// Предварительная проверка проходит, отказывает именно условный UPDATE
	_, err = svc.Disburse(disburseDTO(fx, 1000))
	require.ErrorIs(t, err, models.ErrInsufficientFunds)
	require.True(t, drained)

	// Откат полный: ни займа, ни проводок, ни списания
	assertEmptyTables(t, db)

	var provider models.LoanProvider
	require.NoError(t, db.First(&provider, fx.provider.ID).Error)
	assert.True(t, provider.InitialBalance.Equal(decimal.NewFromInt(1000)))

	var application models.LoanApplication
	require.NoError(t, db.First(&application, fx.application.ID).Error)
	assert.Equal(t, models.ApplicationStatusApproved, application.Status)
}

func TestDisburseApplicationNotApproved(t *testing.T) {
	db := newTestDB(t)
	fx := seedLendingFixture(t, db, "10000", fullChart(), percentageFee("0.1"))
	svc := NewDisbursementService(db)

	pending := models.LoanApplication{
		BorrowerID: 3,
		ProductID:  fx.product.ID,
		Amount:     decimal.NewFromInt(1000),
		Status:     models.ApplicationStatusPending,
	}
	require.NoError(t, db.Create(&pending).Error)

	dto := disburseDTO(fx, 1000)
	dto.LoanApplicationID = pending.ID
	_, err := svc.Disburse(dto)
	require.ErrorIs(t, err, models.ErrInvalidConfiguration)
}

func TestDisburseProductNotFound(t *testing.T) {
	db := newTestDB(t)
	fx := seedLendingFixture(t, db, "10000", fullChart(), percentageFee("0.1"))
	svc := NewDisbursementService(db)

	dto := disburseDTO(fx, 1000)
	dto.ProductID = 9999
	_, err := svc.Disburse(dto)
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestDisburseTxRollsBackWithCaller(t *testing.T) {
	db := newTestDB(t)
	fx := seedLendingFixture(t, db, "10000", fullChart(), percentageFee("0.1"))
	svc := NewDisbursementService(db)

	// Выдача внутри внешней транзакции, которую вызывающая сторона откатывает
	tx := db.Begin()
	require.NoError(t, tx.Error)
	_, err := svc.DisburseTx(tx, disburseDTO(fx, 1000))
	require.NoError(t, err)
	require.NoError(t, tx.Rollback().Error)

	assertEmptyTables(t, db)

	var provider models.LoanProvider
	require.NoError(t, db.First(&provider, fx.provider.ID).Error)
	assert.True(t, provider.InitialBalance.Equal(decimal.NewFromInt(10000)))
}

func TestDisburseValidation(t *testing.T) {
	db := newTestDB(t)
	fx := seedLendingFixture(t, db, "10000", fullChart(), percentageFee("0.1"))
	svc := NewDisbursementService(db)

	// Нулевая сумма займа
	dto := disburseDTO(fx, 1000)
	dto.LoanAmount = decimal.Zero
	_, err := svc.Disburse(dto)
	require.Error(t, err)

	// Срок займа раньше даты выдачи
	dto = disburseDTO(fx, 1000)
	dto.DueDate = testDisbursedDate.AddDate(0, 0, -1)
	_, err = svc.Disburse(dto)
	require.Error(t, err)

	assertEmptyTables(t, db)
}

// assertAccountBalance проверяет баланс счета по паре (категория, тип)
func assertAccountBalance(t *testing.T, db *gorm.DB, providerID uint, category models.LedgerAccountCategory, accountType models.LedgerAccountType, expected string) {
	t.Helper()

	var account models.LedgerAccount
	require.NoError(t, db.Where("provider_id = ? AND category = ? AND type = ?",
		providerID, category, accountType).First(&account).Error)
	assert.True(t, account.Balance.Equal(decimal.RequireFromString(expected)),
		"счет %s/%s: баланс %s, ожидалось %s", category, accountType, account.Balance, expected)
}

// assertEmptyTables проверяет, что неудачная выдача не оставила записей
func assertEmptyTables(t *testing.T, db *gorm.DB) {
	t.Helper()

	var loans, journals, entries int64
	require.NoError(t, db.Model(&models.Loan{}).Count(&loans).Error)
	require.NoError(t, db.Model(&models.JournalEntry{}).Count(&journals).Error)
	require.NoError(t, db.Model(&models.LedgerEntry{}).Count(&entries).Error)
	assert.Zero(t, loans)
	assert.Zero(t, journals)
	assert.Zero(t, entries)
}
