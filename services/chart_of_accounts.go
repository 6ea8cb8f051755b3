package services

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/soltony/bnpl-engine/models"
)

// accountKey однозначно определяет счет внутри плана счетов провайдера
type accountKey struct {
	Category models.LedgerAccountCategory
	Type     models.LedgerAccountType
}

// ChartOfAccounts - реестр счетов провайдера с ключом (категория, тип).
// Строится один раз из загруженных счетов вместо поиска перебором
// при каждой проводке.
type ChartOfAccounts struct {
	providerID uint
	accounts   map[accountKey]*models.LedgerAccount
}

// NewChartOfAccounts строит реестр из плана счетов провайдера.
// Дубликат пары (категория, тип) - ошибка конфигурации.
func NewChartOfAccounts(provider *models.LoanProvider) (*ChartOfAccounts, error) {
	chart := &ChartOfAccounts{
		providerID: provider.ID,
		accounts:   make(map[accountKey]*models.LedgerAccount, len(provider.LedgerAccounts)),
	}
	for i := range provider.LedgerAccounts {
		account := &provider.LedgerAccounts[i]
		key := accountKey{Category: account.Category, Type: account.Type}
		if _, exists := chart.accounts[key]; exists {
			return nil, fmt.Errorf("%w: дубликат счета %s/%s у провайдера %d",
				models.ErrInvalidConfiguration, account.Category, account.Type, provider.ID)
		}
		chart.accounts[key] = account
	}
	return chart, nil
}

// Lookup возвращает счет по паре (категория, тип)
func (c *ChartOfAccounts) Lookup(category models.LedgerAccountCategory, accountType models.LedgerAccountType) (*models.LedgerAccount, error) {
	account, ok := c.accounts[accountKey{Category: category, Type: accountType}]
	if !ok {
		return nil, fmt.Errorf("%w: у провайдера %d нет счета %s/%s",
			models.ErrLedgerMisconfigured, c.providerID, category, accountType)
	}
	return account, nil
}

// ValidateRequired проверяет наличие обязательных счетов до первой записи.
// Счета сервисной комиссии обязательны только при ненулевой комиссии.
func (c *ChartOfAccounts) ValidateRequired(serviceFee decimal.Decimal) error {
	if _, err := c.Lookup(models.LedgerCategoryPrincipal, models.LedgerTypeReceivable); err != nil {
		return err
	}
	if _, err := c.Lookup(models.LedgerCategoryFunding, models.LedgerTypeCash); err != nil {
		return err
	}
	if serviceFee.IsPositive() {
		if _, err := c.Lookup(models.LedgerCategoryServiceFee, models.LedgerTypeReceivable); err != nil {
			return err
		}
		if _, err := c.Lookup(models.LedgerCategoryServiceFee, models.LedgerTypeIncome); err != nil {
			return err
		}
	}
	return nil
}
