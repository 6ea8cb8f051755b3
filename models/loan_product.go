package models

import (
	"gorm.io/gorm"
)

// LoanProduct представляет кредитный продукт с правилами ценообразования.
// Правила комиссий и штрафов хранятся в JSON-колонках и валидируются
// один раз при загрузке, а не при каждом расчете.
type LoanProduct struct {
	gorm.Model
	Name         string          `gorm:"not null;size:100"`
	ProviderID   uint            `gorm:"not null;index"`
	Provider     LoanProvider    `gorm:"foreignKey:ProviderID"`
	ServiceFee   FeeSpec         `gorm:"serializer:json"`
	DailyFee     *DailyFeeSpec   `gorm:"serializer:json"`
	PenaltyRules PenaltyRuleList `gorm:"serializer:json"`
	Duration     int             `gorm:"not null"` // срок займа в днях
}

// TableName возвращает имя таблицы для модели LoanProduct
func (LoanProduct) TableName() string {
	return "loan_products"
}

// AfterFind проверяет конфигурацию продукта сразу после загрузки из базы
func (p *LoanProduct) AfterFind(tx *gorm.DB) error {
	return p.ValidateConfig()
}

// ValidateConfig валидирует правила комиссий и штрафов продукта.
// Попутно упорядочивает ступени штрафа по возрастанию порога.
func (p *LoanProduct) ValidateConfig() error {
	if err := p.ServiceFee.Validate(); err != nil {
		return err
	}
	if p.DailyFee != nil {
		if err := p.DailyFee.Validate(); err != nil {
			return err
		}
	}
	return p.PenaltyRules.Validate()
}
