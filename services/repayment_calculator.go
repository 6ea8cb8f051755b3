package services

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/soltony/bnpl-engine/models"
)

// RepaymentBreakdown представляет декомпозицию текущей задолженности по займу
type RepaymentBreakdown struct {
	Principal  decimal.Decimal `json:"principal"`
	ServiceFee decimal.Decimal `json:"service_fee"`
	DailyFee   decimal.Decimal `json:"daily_fee"`
	Penalty    decimal.Decimal `json:"penalty"`
	TaxAmount  decimal.Decimal `json:"tax_amount"`
	// Total - остаток задолженности с учетом погашений. При переплате
	// значение становится отрицательным и не обрезается: вызывающая
	// сторона сама решает, что делать с переплатой.
	Total decimal.Decimal `json:"total"`
}

// CalculateTotalRepayable рассчитывает задолженность по займу на дату оценки.
// Чистая функция без I/O: одинаковые аргументы всегда дают одинаковый
// результат, поэтому ее безопасно вызывать конкурентно и кешировать снаружи.
// Налоги передаются полным набором, неактивные отбрасываются здесь.
func CalculateTotalRepayable(loan *models.Loan, product *models.LoanProduct, taxes []models.Tax, asOfDate time.Time) RepaymentBreakdown {
	breakdown := RepaymentBreakdown{
		Principal:  loan.LoanAmount,
		ServiceFee: serviceFeeAmount(loan, product),
		DailyFee:   dailyFeeAmount(loan, product, asOfDate),
		Penalty:    penaltyAmount(loan, product, asOfDate),
	}
	breakdown.TaxAmount = taxAmount(taxes, breakdown)
	breakdown.Total = breakdown.Principal.
		Sub(loan.RepaidAmount).
		Add(breakdown.ServiceFee).
		Add(breakdown.DailyFee).
		Add(breakdown.Penalty).
		Add(breakdown.TaxAmount)
	return breakdown
}

// serviceFeeAmount вычисляет сервисную комиссию. Она оценивает займ в момент
// выдачи и не зависит от даты оценки.
func serviceFeeAmount(loan *models.Loan, product *models.LoanProduct) decimal.Decimal {
	return product.ServiceFee.Amount(loan.LoanAmount)
}

// dailyFeeAmount вычисляет накопленную ежедневную комиссию на дату оценки.
// Начисление идет от даты выдачи до min(дата оценки, срок займа): после
// наступления срока ежедневная комиссия останавливается, просрочку
// покрывают ступени штрафа.
func dailyFeeAmount(loan *models.Loan, product *models.LoanProduct, asOfDate time.Time) decimal.Decimal {
	if product.DailyFee == nil || loan.DisbursedDate.IsZero() {
		return decimal.Zero
	}
	if asOfDate.Before(loan.DisbursedDate) {
		// займ еще не действует, отрицательных начислений не бывает
		return decimal.Zero
	}

	end := asOfDate
	if end.After(loan.DueDate) {
		end = loan.DueDate
	}
	days := daysBetween(loan.DisbursedDate, end)
	if days <= 0 {
		return decimal.Zero
	}

	base := loan.LoanAmount
	if product.DailyFee.Base == models.DailyFeeBasePrincipalAndFee {
		base = base.Add(serviceFeeAmount(loan, product))
	}
	perDay := models.FeeSpec{Kind: product.DailyFee.Kind, Value: product.DailyFee.Value}.Amount(base)
	return perDay.Mul(decimal.NewFromInt(int64(days)))
}

// penaltyAmount вычисляет штраф за просрочку на дату оценки.
// Штраф появляется только после срока займа: выбирается последняя ступень,
// порог которой не превышает целое число дней просрочки.
func penaltyAmount(loan *models.Loan, product *models.LoanProduct, asOfDate time.Time) decimal.Decimal {
	if len(product.PenaltyRules) == 0 || loan.DisbursedDate.IsZero() {
		return decimal.Zero
	}
	if !asOfDate.After(loan.DueDate) || asOfDate.Before(loan.DisbursedDate) {
		return decimal.Zero
	}

	overdueDays := daysBetween(loan.DueDate, asOfDate)
	rule := product.PenaltyRules.Match(overdueDays)
	if rule == nil {
		return decimal.Zero
	}
	return models.FeeSpec{Kind: rule.Kind, Value: rule.Value}.Amount(loan.LoanAmount)
}

// taxAmount суммирует налоги активных правил по облагаемым категориям комиссий
func taxAmount(taxes []models.Tax, breakdown RepaymentBreakdown) decimal.Decimal {
	total := decimal.Zero
	for _, tax := range taxes {
		if !tax.IsActive() {
			continue
		}
		if tax.Applies(models.FeeCategoryServiceFee) {
			total = total.Add(tax.Rate.Mul(breakdown.ServiceFee))
		}
		if tax.Applies(models.FeeCategoryDailyFee) {
			total = total.Add(tax.Rate.Mul(breakdown.DailyFee))
		}
		if tax.Applies(models.FeeCategoryPenalty) {
			total = total.Add(tax.Rate.Mul(breakdown.Penalty))
		}
	}
	return total
}

// daysBetween возвращает целое число суток между датами, отбрасывая время
func daysBetween(from, to time.Time) int {
	fromDay := from.UTC().Truncate(24 * time.Hour)
	toDay := to.UTC().Truncate(24 * time.Hour)
	return int(toDay.Sub(fromDay).Hours() / 24)
}

// Money округляет сумму до 2 знаков банковским округлением для отображения.
// Внутренние расчеты ведутся без округления, чтобы не накапливать дрейф.
func Money(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(2)
}
