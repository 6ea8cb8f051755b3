package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RepaymentStatus представляет статус погашения займа
type RepaymentStatus string

const (
	RepaymentStatusUnpaid RepaymentStatus = "UNPAID"
	RepaymentStatusPaid   RepaymentStatus = "PAID"
)

// Loan представляет выданный займ
type Loan struct {
	gorm.Model
	BorrowerID        uint            `gorm:"not null;index"`
	ProductID         uint            `gorm:"not null;index"`
	Product           LoanProduct     `gorm:"foreignKey:ProductID"`
	LoanApplicationID uint            `gorm:"not null;index"`
	LoanAmount        decimal.Decimal `gorm:"type:numeric;not null"` // тело займа
	ServiceFee        decimal.Decimal `gorm:"type:numeric;not null"` // фиксируется при выдаче и больше не меняется
	DisbursedDate     time.Time       `gorm:"not null"`
	DueDate           time.Time       `gorm:"not null"`
	RepaymentStatus   RepaymentStatus `gorm:"type:varchar(20);not null;default:'UNPAID'"`
	RepaidAmount      decimal.Decimal `gorm:"type:numeric;not null"`
	// PenaltyAmount - кеш последнего расчета, не авторитативное значение:
	// актуальный штраф всегда пересчитывается от DueDate и даты оценки
	PenaltyAmount decimal.Decimal `gorm:"type:numeric;not null"`
	Payments      []Payment       `gorm:"foreignKey:LoanID"`
}

// TableName возвращает имя таблицы для модели Loan
func (Loan) TableName() string {
	return "loans"
}
