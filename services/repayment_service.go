package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/soltony/bnpl-engine/models"
	"github.com/soltony/bnpl-engine/utils"
)

// RecordRepaymentDTO представляет данные для учета платежа по займу
type RecordRepaymentDTO struct {
	LoanID  uint            `json:"-" validate:"required"`
	Amount  decimal.Decimal `json:"amount"`
	PayDate time.Time       `json:"pay_date"`
}

// LoanStateDTO представляет займ вместе с актуальной декомпозицией задолженности
type LoanStateDTO struct {
	Loan      *models.Loan       `json:"loan"`
	Breakdown RepaymentBreakdown `json:"breakdown"`
}

// RepaymentService учитывает платежи и отдает актуальное состояние задолженности.
// Балансы счетов плана счетов здесь не трогаются: их меняет только
// транзакция выдачи.
type RepaymentService struct {
	db        *gorm.DB
	validator *validator.Validate
}

// NewRepaymentService создает новый экземпляр RepaymentService
func NewRepaymentService(db *gorm.DB) *RepaymentService {
	return &RepaymentService{
		db:        db,
		validator: validator.New(),
	}
}

// RecordRepayment фиксирует платеж по займу.
// Снимок задолженности до платежа сохраняется в самой записи платежа.
func (s *RepaymentService) RecordRepayment(dto RecordRepaymentDTO) (*models.Payment, error) {
	// Валидируем DTO
	if err := s.validateDTO(dto); err != nil {
		return nil, err
	}

	// Начинаем транзакцию
	tx := s.db.Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrTransactionAborted, tx.Error)
	}

	payment, err := s.recordRepaymentTx(tx, dto)
	if err != nil {
		tx.Rollback()
		utils.GetMetrics().RecordRepayment(err)
		return nil, err
	}

	// Подтверждаем транзакцию
	if err := tx.Commit().Error; err != nil {
		utils.GetMetrics().RecordRepayment(err)
		return nil, fmt.Errorf("%w: %v", models.ErrTransactionAborted, err)
	}

	utils.GetMetrics().RecordRepayment(nil)
	return payment, nil
}

func (s *RepaymentService) recordRepaymentTx(tx *gorm.DB, dto RecordRepaymentDTO) (*models.Payment, error) {
	// Получаем займ вместе с продуктом
	var loan models.Loan
	if err := tx.Preload("Product").First(&loan, dto.LoanID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: займ %d", models.ErrNotFound, dto.LoanID)
		}
		if errors.Is(err, models.ErrInvalidConfiguration) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", models.ErrTransactionAborted, err)
	}

	if loan.RepaymentStatus == models.RepaymentStatusPaid {
		return nil, errors.New("займ уже погашен")
	}

	// Загружаем все налоги
	var taxes []models.Tax
	if err := tx.Find(&taxes).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrTransactionAborted, err)
	}

	// Считаем задолженность на дату платежа
	breakdown := CalculateTotalRepayable(&loan, &loan.Product, taxes, dto.PayDate)

	// Создаем запись о платеже со снимком задолженности
	payment := &models.Payment{
		LoanID:            loan.ID,
		Amount:            dto.Amount,
		PayDate:           dto.PayDate,
		OutstandingBefore: breakdown.Total,
	}
	if err := tx.Create(payment).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrTransactionAborted, err)
	}

	// Обновляем займ: погашенную сумму, кеш штрафа и статус
	repaidAmount := loan.RepaidAmount.Add(dto.Amount)
	status := loan.RepaymentStatus
	if !breakdown.Total.Sub(dto.Amount).IsPositive() {
		status = models.RepaymentStatusPaid
	}
	if err := tx.Model(&models.Loan{}).
		Where("id = ?", loan.ID).
		Updates(map[string]interface{}{
			"repaid_amount":    repaidAmount,
			"penalty_amount":   breakdown.Penalty,
			"repayment_status": status,
		}).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrTransactionAborted, err)
	}

	return payment, nil
}

// GetLoanState возвращает займ и декомпозицию задолженности на дату оценки
func (s *RepaymentService) GetLoanState(loanID uint, asOfDate time.Time) (*LoanStateDTO, error) {
	var loan models.Loan
	if err := s.db.Preload("Product").First(&loan, loanID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: займ %d", models.ErrNotFound, loanID)
		}
		return nil, err
	}

	var taxes []models.Tax
	if err := s.db.Find(&taxes).Error; err != nil {
		return nil, err
	}

	breakdown := CalculateTotalRepayable(&loan, &loan.Product, taxes, asOfDate)
	return &LoanStateDTO{Loan: &loan, Breakdown: breakdown}, nil
}

// GetLoans возвращает все займы
func (s *RepaymentService) GetLoans() ([]models.Loan, error) {
	var loans []models.Loan
	if err := s.db.Preload("Product").Find(&loans).Error; err != nil {
		return nil, err
	}
	return loans, nil
}

// GetPayments возвращает историю платежей по займу по возрастанию даты
func (s *RepaymentService) GetPayments(loanID uint) ([]models.Payment, error) {
	var payments []models.Payment
	if err := s.db.Where("loan_id = ?", loanID).
		Order("pay_date ASC").
		Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

// validateDTO проверяет данные платежа
func (s *RepaymentService) validateDTO(dto RecordRepaymentDTO) error {
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
	if !dto.Amount.IsPositive() {
		return errors.New("сумма платежа должна быть больше 0")
	}
	if dto.PayDate.IsZero() {
		return errors.New("дата платежа обязательна")
	}
	return nil
}
