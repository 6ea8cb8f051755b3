package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LoanProvider представляет кредитующую организацию с пулом средств
type LoanProvider struct {
	gorm.Model
	Name           string          `gorm:"not null;size:100"`
	InitialBalance decimal.Decimal `gorm:"type:numeric;not null"` // доступный капитал для кредитования
	LedgerAccounts []LedgerAccount `gorm:"foreignKey:ProviderID"`
}

// TableName возвращает имя таблицы для модели LoanProvider
func (LoanProvider) TableName() string {
	return "loan_providers"
}
