package models

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// FeeKind определяет единицы значения комиссии
type FeeKind string

const (
	FeeKindPercentage FeeKind = "PERCENTAGE" // значение - доля от базы начисления
	FeeKindFixed      FeeKind = "FIXED"      // значение - фиксированная сумма
)

// DailyFeeBase определяет базу начисления ежедневной комиссии
type DailyFeeBase string

const (
	DailyFeeBasePrincipal       DailyFeeBase = "PRINCIPAL"
	DailyFeeBasePrincipalAndFee DailyFeeBase = "PRINCIPAL_PLUS_SERVICE_FEE"
)

// FeeCategory представляет категорию комиссии, к которой может применяться налог
type FeeCategory string

const (
	FeeCategoryServiceFee FeeCategory = "SERVICE_FEE"
	FeeCategoryDailyFee   FeeCategory = "DAILY_FEE"
	FeeCategoryPenalty    FeeCategory = "PENALTY"
)

// FeeSpec представляет правило расчета комиссии
type FeeSpec struct {
	Kind  FeeKind         `json:"kind"`
	Value decimal.Decimal `json:"value"`
}

// Amount вычисляет сумму комиссии от базы начисления
func (f FeeSpec) Amount(base decimal.Decimal) decimal.Decimal {
	if f.Kind == FeeKindPercentage {
		return base.Mul(f.Value)
	}
	return f.Value
}

// Validate проверяет корректность правила комиссии
func (f FeeSpec) Validate() error {
	if f.Kind != FeeKindPercentage && f.Kind != FeeKindFixed {
		return fmt.Errorf("%w: неизвестный вид комиссии %q", ErrInvalidConfiguration, f.Kind)
	}
	if f.Value.IsNegative() {
		return fmt.Errorf("%w: значение комиссии не может быть отрицательным", ErrInvalidConfiguration)
	}
	return nil
}

// DailyFeeSpec представляет правило ежедневной комиссии
type DailyFeeSpec struct {
	Kind  FeeKind         `json:"kind"`
	Value decimal.Decimal `json:"value"`
	Base  DailyFeeBase    `json:"base"`
}

// Validate проверяет корректность правила ежедневной комиссии
func (f DailyFeeSpec) Validate() error {
	if err := (FeeSpec{Kind: f.Kind, Value: f.Value}).Validate(); err != nil {
		return err
	}
	if f.Base != DailyFeeBasePrincipal && f.Base != DailyFeeBasePrincipalAndFee {
		return fmt.Errorf("%w: неизвестная база начисления %q", ErrInvalidConfiguration, f.Base)
	}
	return nil
}

// PenaltyRule представляет одну ступень прогрессивного штрафа
type PenaltyRule struct {
	ThresholdDays int             `json:"thresholdDays"`
	Kind          FeeKind         `json:"kind"`
	Value         decimal.Decimal `json:"value"`
}

// PenaltyRuleList представляет упорядоченный список ступеней штрафа
type PenaltyRuleList []PenaltyRule

// Validate проверяет ступени штрафа и упорядочивает их по возрастанию порога
func (rules PenaltyRuleList) Validate() error {
	for _, rule := range rules {
		if rule.ThresholdDays < 0 {
			return fmt.Errorf("%w: порог штрафа не может быть отрицательным", ErrInvalidConfiguration)
		}
		if err := (FeeSpec{Kind: rule.Kind, Value: rule.Value}).Validate(); err != nil {
			return err
		}
	}
	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].ThresholdDays < rules[j].ThresholdDays
	})
	return nil
}

// Match выбирает последнюю ступень, порог которой не превышает количество дней просрочки.
// Ступени не суммируются: применяется только ставка подошедшей ступени.
func (rules PenaltyRuleList) Match(overdueDays int) *PenaltyRule {
	var matched *PenaltyRule
	for i := range rules {
		if rules[i].ThresholdDays <= overdueDays {
			matched = &rules[i]
		}
	}
	return matched
}
