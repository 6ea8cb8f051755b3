package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/soltony/bnpl-engine/models"
	"github.com/soltony/bnpl-engine/utils"
)

// DisburseLoanDTO представляет данные для выдачи займа
type DisburseLoanDTO struct {
	BorrowerID        uint            `json:"borrower_id" validate:"required"`
	ProductID         uint            `json:"product_id" validate:"required"`
	LoanApplicationID uint            `json:"loan_application_id" validate:"required"`
	LoanAmount        decimal.Decimal `json:"loan_amount"`
	DisbursedDate     time.Time       `json:"disbursed_date"`
	DueDate           time.Time       `json:"due_date"`
}

// DisbursementService выдает займы и ведет двойную бухгалтерскую запись
// движения средств провайдера
type DisbursementService struct {
	db        *gorm.DB
	validator *validator.Validate
}

// NewDisbursementService создает новый экземпляр DisbursementService
func NewDisbursementService(db *gorm.DB) *DisbursementService {
	return &DisbursementService{
		db:        db,
		validator: validator.New(),
	}
}

// posting описывает одну запись проводки до ее сохранения
type posting struct {
	account   *models.LedgerAccount
	entryType models.LedgerEntryType
	amount    decimal.Decimal
}

// Disburse выдает займ в собственной транзакции.
// Любая ошибка откатывает все: займ, проводку и балансы счетов.
func (s *DisbursementService) Disburse(dto DisburseLoanDTO) (*models.Loan, error) {
	startTime := time.Now()

	// Начинаем транзакцию
	tx := s.db.Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrTransactionAborted, tx.Error)
	}

	loan, err := s.DisburseTx(tx, dto)
	if err != nil {
		tx.Rollback()
		utils.GetMetrics().RecordDisbursement(err)
		utils.LogOperation("disburse", startTime, err)
		return nil, err
	}

	// Подтверждаем транзакцию
	if err := tx.Commit().Error; err != nil {
		err = fmt.Errorf("%w: %v", models.ErrTransactionAborted, err)
		utils.GetMetrics().RecordDisbursement(err)
		utils.LogOperation("disburse", startTime, err)
		return nil, err
	}

	utils.GetMetrics().RecordDisbursement(nil)
	utils.LogOperation("disburse", startTime, nil)
	return loan, nil
}

// DisburseTx выдает займ внутри переданной транзакции. Это позволяет
// встраивать выдачу в более крупную единицу работы, например подтверждение
// заказа. Откат транзакции при ошибке - обязанность вызывающей стороны.
func (s *DisbursementService) DisburseTx(tx *gorm.DB, dto DisburseLoanDTO) (*models.Loan, error) {
	// Валидируем DTO
	if err := s.validateDTO(dto); err != nil {
		return nil, err
	}

	// Загружаем продукт вместе с провайдером и его планом счетов
	var product models.LoanProduct
	if err := tx.Preload("Provider.LedgerAccounts").First(&product, dto.ProductID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: продукт %d", models.ErrNotFound, dto.ProductID)
		}
		if errors.Is(err, models.ErrInvalidConfiguration) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", models.ErrTransactionAborted, err)
	}

	// Загружаем заявку и проверяем, что она одобрена и еще не выдана
	var application models.LoanApplication
	if err := tx.First(&application, dto.LoanApplicationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: заявка %d", models.ErrNotFound, dto.LoanApplicationID)
		}
		return nil, fmt.Errorf("%w: %v", models.ErrTransactionAborted, err)
	}
	if application.Status != models.ApplicationStatusApproved {
		return nil, fmt.Errorf("%w: заявка %d в статусе %s, выдача невозможна",
			models.ErrInvalidConfiguration, application.ID, application.Status)
	}

	// Предварительная проверка средств: отказываем до каких-либо записей.
	// Авторитативная проверка повторяется условным UPDATE в конце.
	if product.Provider.InitialBalance.LessThan(dto.LoanAmount) {
		return nil, fmt.Errorf("%w: баланс %s меньше суммы займа %s",
			models.ErrInsufficientFunds, product.Provider.InitialBalance, dto.LoanAmount)
	}

	// Загружаем все налоги, отбор активных - дело калькулятора
	var taxes []models.Tax
	if err := tx.Find(&taxes).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrTransactionAborted, err)
	}

	// Оцениваем займ на дату выдачи по синтетической, еще не сохраненной записи
	draft := models.Loan{
		LoanAmount:    dto.LoanAmount,
		DisbursedDate: dto.DisbursedDate,
		DueDate:       dto.DueDate,
	}
	breakdown := CalculateTotalRepayable(&draft, &product, taxes, dto.DisbursedDate)
	serviceFee := breakdown.ServiceFee

	// Разрешаем план счетов и проверяем обязательные счета до первой записи
	chart, err := NewChartOfAccounts(&product.Provider)
	if err != nil {
		return nil, err
	}
	if err := chart.ValidateRequired(serviceFee); err != nil {
		return nil, err
	}
	principalReceivable, err := chart.Lookup(models.LedgerCategoryPrincipal, models.LedgerTypeReceivable)
	if err != nil {
		return nil, err
	}
	fundingCash, err := chart.Lookup(models.LedgerCategoryFunding, models.LedgerTypeCash)
	if err != nil {
		return nil, err
	}

	// Создаем займ
	loan := &models.Loan{
		BorrowerID:        dto.BorrowerID,
		ProductID:         dto.ProductID,
		LoanApplicationID: dto.LoanApplicationID,
		LoanAmount:        dto.LoanAmount,
		ServiceFee:        serviceFee,
		DisbursedDate:     dto.DisbursedDate,
		DueDate:           dto.DueDate,
		RepaymentStatus:   models.RepaymentStatusUnpaid,
		RepaidAmount:      decimal.Zero,
		PenaltyAmount:     decimal.Zero,
	}
	if err := tx.Omit(clause.Associations).Create(loan).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrTransactionAborted, err)
	}

	// Переводим заявку в статус DISBURSED
	if err := tx.Model(&models.LoanApplication{}).
		Where("id = ?", application.ID).
		Update("status", models.ApplicationStatusDisbursed).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrTransactionAborted, err)
	}

	// Формируем проводку: дебет тела займа на дебиторку, кредит на кассу фонда.
	// Сервисная комиссия признается одновременно активом и доходом, поэтому
	// ее дебет и кредит взаимно уравновешиваются.
	journal := &models.JournalEntry{
		Reference:   uuid.New().String(),
		ProviderID:  product.ProviderID,
		LoanID:      loan.ID,
		Date:        dto.DisbursedDate,
		Description: fmt.Sprintf("Loan disbursement #%d", loan.ID),
	}
	if err := tx.Omit(clause.Associations).Create(journal).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrTransactionAborted, err)
	}

	postings := []posting{
		{account: principalReceivable, entryType: models.LedgerEntryDebit, amount: dto.LoanAmount},
		{account: fundingCash, entryType: models.LedgerEntryCredit, amount: dto.LoanAmount},
	}
	if serviceFee.IsPositive() {
		feeReceivable, err := chart.Lookup(models.LedgerCategoryServiceFee, models.LedgerTypeReceivable)
		if err != nil {
			return nil, err
		}
		feeIncome, err := chart.Lookup(models.LedgerCategoryServiceFee, models.LedgerTypeIncome)
		if err != nil {
			return nil, err
		}
		postings = append(postings,
			posting{account: feeReceivable, entryType: models.LedgerEntryDebit, amount: serviceFee},
			posting{account: feeIncome, entryType: models.LedgerEntryCredit, amount: serviceFee},
		)
	}

	// Сохраняем записи проводки и двигаем балансы счетов
	for _, p := range postings {
		if err := s.post(tx, journal.ID, p); err != nil {
			return nil, err
		}
	}

	// Списываем сумму займа из пула средств провайдера. Условный UPDATE
	// атомарно повторяет проверку баланса: конкурентная выдача, успевшая
	// первой, оставит RowsAffected == 0, и транзакция откатится целиком.
	result := tx.Model(&models.LoanProvider{}).
		Where("id = ? AND initial_balance >= ?", product.ProviderID, dto.LoanAmount).
		Update("initial_balance", gorm.Expr("initial_balance - ?", dto.LoanAmount))
	if result.Error != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrTransactionAborted, result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: баланс провайдера %d изменился во время выдачи",
			models.ErrInsufficientFunds, product.ProviderID)
	}

	return loan, nil
}

// post сохраняет одну запись проводки и увеличивает баланс счета
func (s *DisbursementService) post(tx *gorm.DB, journalEntryID uint, p posting) error {
	entry := &models.LedgerEntry{
		JournalEntryID:  journalEntryID,
		LedgerAccountID: p.account.ID,
		Type:            p.entryType,
		Amount:          p.amount,
	}
	if err := tx.Create(entry).Error; err != nil {
		return fmt.Errorf("%w: %v", models.ErrTransactionAborted, err)
	}

	if err := tx.Model(&models.LedgerAccount{}).
		Where("id = ?", p.account.ID).
		Update("balance", gorm.Expr("balance + ?", p.amount)).Error; err != nil {
		return fmt.Errorf("%w: %v", models.ErrTransactionAborted, err)
	}
	return nil
}

// validateDTO проверяет данные для выдачи займа
func (s *DisbursementService) validateDTO(dto DisburseLoanDTO) error {
	if err := s.validator.Struct(dto); err != nil {
		validationErrors := err.(validator.ValidationErrors)
		var errorMessages []string
		for _, e := range validationErrors {
			switch e.Tag() {
			case "required":
				errorMessages = append(errorMessages, "поле "+e.Field()+" обязательно")
			}
		}
		return errors.New(strings.Join(errorMessages, "; "))
	}
	if !dto.LoanAmount.IsPositive() {
		return errors.New("сумма займа должна быть больше 0")
	}
	if dto.DisbursedDate.IsZero() || dto.DueDate.IsZero() {
		return errors.New("даты выдачи и срока займа обязательны")
	}
	if !dto.DueDate.After(dto.DisbursedDate) {
		return errors.New("срок займа должен быть позже даты выдачи")
	}
	return nil
}
