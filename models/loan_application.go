package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LoanApplicationStatus представляет статус заявки на займ
type LoanApplicationStatus string

const (
	ApplicationStatusPending   LoanApplicationStatus = "PENDING"
	ApplicationStatusApproved  LoanApplicationStatus = "APPROVED"
	ApplicationStatusRejected  LoanApplicationStatus = "REJECTED"
	ApplicationStatusDisbursed LoanApplicationStatus = "DISBURSED"
)

// LoanApplication представляет заявку на займ
type LoanApplication struct {
	gorm.Model
	BorrowerID uint                  `gorm:"not null;index"`
	ProductID  uint                  `gorm:"not null;index"`
	Amount     decimal.Decimal       `gorm:"type:numeric;not null"`
	Status     LoanApplicationStatus `gorm:"type:varchar(20);not null;default:'PENDING'"`
}

// TableName возвращает имя таблицы для модели LoanApplication
func (LoanApplication) TableName() string {
	return "loan_applications"
}
