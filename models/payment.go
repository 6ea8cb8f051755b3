package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Payment представляет событие частичного или полного погашения займа.
// Запись неизменяема после создания, история упорядочивается по дате платежа.
type Payment struct {
	gorm.Model
	LoanID  uint            `gorm:"not null;index"`
	Amount  decimal.Decimal `gorm:"type:numeric;not null"`
	PayDate time.Time       `gorm:"not null"`
	// OutstandingBefore - задолженность на момент платежа, до его учета
	OutstandingBefore decimal.Decimal `gorm:"type:numeric;not null"`
}

// TableName возвращает имя таблицы для модели Payment
func (Payment) TableName() string {
	return "payments"
}
