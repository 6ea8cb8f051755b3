package services

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/soltony/bnpl-engine/models"
	"github.com/soltony/bnpl-engine/utils"
)

// OverdueSchedulerService периодически пересчитывает штрафы по просроченным займам
type OverdueSchedulerService struct {
	db       *gorm.DB
	interval time.Duration
	stop     chan struct{}
}

// NewOverdueSchedulerService создает новый экземпляр OverdueSchedulerService
func NewOverdueSchedulerService(db *gorm.DB, interval time.Duration) *OverdueSchedulerService {
	return &OverdueSchedulerService{
		db:       db,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Start запускает периодический пересчет штрафов
func (s *OverdueSchedulerService) Start() {
	ticker := time.NewTicker(s.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := s.ProcessOverdueLoans(time.Now()); err != nil {
					utils.LogError("Ошибка при пересчете штрафов: %v", err)
				}
			case <-s.stop:
				return
			}
		}
	}()
}

// Stop останавливает периодический пересчет
func (s *OverdueSchedulerService) Stop() {
	close(s.stop)
}

// ProcessOverdueLoans пересчитывает штрафы всех непогашенных просроченных займов
// на указанную дату и обновляет кеш penalty_amount. Сами ступени штрафа
// остаются авторитативным источником: кеш нужен только спискам и отчетам.
func (s *OverdueSchedulerService) ProcessOverdueLoans(asOfDate time.Time) error {
	// Начинаем транзакцию
	tx := s.db.Begin()
	if tx.Error != nil {
		return fmt.Errorf("%w: %v", models.ErrTransactionAborted, tx.Error)
	}

	// Получаем непогашенные займы с наступившим сроком
	var loans []models.Loan
	if err := tx.Where("repayment_status = ? AND due_date < ?", models.RepaymentStatusUnpaid, asOfDate).
		Preload("Product").
		Find(&loans).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("%w: %v", models.ErrTransactionAborted, err)
	}

	// Загружаем все налоги один раз на проход
	var taxes []models.Tax
	if err := tx.Find(&taxes).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("%w: %v", models.ErrTransactionAborted, err)
	}

	for i := range loans {
		loan := &loans[i]
		breakdown := CalculateTotalRepayable(loan, &loan.Product, taxes, asOfDate)

		// Обновляем только кеш штрафа
		if err := tx.Model(&models.Loan{}).
			Where("id = ?", loan.ID).
			Update("penalty_amount", breakdown.Penalty).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("%w: %v", models.ErrTransactionAborted, err)
		}
	}

	// Подтверждаем транзакцию
	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("%w: %v", models.ErrTransactionAborted, err)
	}

	if len(loans) > 0 {
		utils.LogInfo("Пересчитаны штрафы по %d просроченным займам", len(loans))
	}
	return nil
}
