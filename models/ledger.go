package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LedgerAccountCategory представляет категорию счета в плане счетов
type LedgerAccountCategory string

const (
	LedgerCategoryPrincipal  LedgerAccountCategory = "PRINCIPAL"
	LedgerCategoryServiceFee LedgerAccountCategory = "SERVICE_FEE"
	LedgerCategoryFunding    LedgerAccountCategory = "FUNDING"
)

// LedgerAccountType представляет тип счета в плане счетов
type LedgerAccountType string

const (
	LedgerTypeReceivable LedgerAccountType = "RECEIVABLE"
	LedgerTypeIncome     LedgerAccountType = "INCOME"
	LedgerTypeCash       LedgerAccountType = "CASH"
)

// LedgerAccount представляет счет плана счетов, привязанный к провайдеру.
// Для каждой используемой движком пары (категория, тип) у провайдера
// должен существовать ровно один счет.
type LedgerAccount struct {
	gorm.Model
	ProviderID uint                  `gorm:"not null;index"`
	Name       string                `gorm:"not null;size:100"`
	Category   LedgerAccountCategory `gorm:"type:varchar(30);not null"`
	Type       LedgerAccountType     `gorm:"type:varchar(20);not null"`
	Balance    decimal.Decimal       `gorm:"type:numeric;not null"`
}

// TableName возвращает имя таблицы для модели LedgerAccount
func (LedgerAccount) TableName() string {
	return "ledger_accounts"
}

// JournalEntry представляет заголовок бухгалтерской проводки.
// Создается ровно одна на выдачу займа и группирует 2-4 строки LedgerEntry.
type JournalEntry struct {
	gorm.Model
	Reference   string        `gorm:"unique;not null;size:36"`
	ProviderID  uint          `gorm:"not null;index"`
	LoanID      uint          `gorm:"not null;index"`
	Date        time.Time     `gorm:"not null"`
	Description string        `gorm:"size:255"`
	Entries     []LedgerEntry `gorm:"foreignKey:JournalEntryID"`
}

// TableName возвращает имя таблицы для модели JournalEntry
func (JournalEntry) TableName() string {
	return "journal_entries"
}

// LedgerEntryType представляет сторону бухгалтерской записи
type LedgerEntryType string

const (
	LedgerEntryDebit  LedgerEntryType = "DEBIT"
	LedgerEntryCredit LedgerEntryType = "CREDIT"
)

// LedgerEntry представляет одну дебетовую или кредитовую запись.
// Внутри одной проводки сумма дебетов всегда равна сумме кредитов.
type LedgerEntry struct {
	gorm.Model
	JournalEntryID  uint            `gorm:"not null;index"`
	LedgerAccountID uint            `gorm:"not null;index"`
	Type            LedgerEntryType `gorm:"type:varchar(10);not null"`
	Amount          decimal.Decimal `gorm:"type:numeric;not null"`
}

// TableName возвращает имя таблицы для модели LedgerEntry
func (LedgerEntry) TableName() string {
	return "ledger_entries"
}
