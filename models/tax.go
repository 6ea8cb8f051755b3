package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TaxStatus представляет статус налогового правила
type TaxStatus string

const (
	TaxStatusActive   TaxStatus = "ACTIVE"
	TaxStatusInactive TaxStatus = "INACTIVE"
)

// Tax представляет налоговое правило юрисдикции
type Tax struct {
	gorm.Model
	Name      string          `gorm:"not null;size:100"`
	Rate      decimal.Decimal `gorm:"type:numeric;not null"` // доля, например 0.15
	AppliedTo []FeeCategory   `gorm:"serializer:json"`       // категории комиссий, которые облагаются налогом
	Status    TaxStatus       `gorm:"type:varchar(20);not null;default:'ACTIVE'"`
}

// TableName возвращает имя таблицы для модели Tax
func (Tax) TableName() string {
	return "taxes"
}

// IsActive сообщает, участвует ли налог в расчетах
func (t Tax) IsActive() bool {
	return t.Status == TaxStatusActive
}

// Applies сообщает, облагается ли налогом указанная категория комиссии
func (t Tax) Applies(category FeeCategory) bool {
	for _, c := range t.AppliedTo {
		if c == category {
			return true
		}
	}
	return false
}
