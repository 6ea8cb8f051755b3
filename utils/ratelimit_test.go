package utils

import (
	"fmt"
	"testing"
	"time"

	"github.com/soltony/bnpl-engine/models"
)

func TestRateLimiterAllow(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !rl.Allow("client") {
			t.Errorf("запрос %d должен быть разрешен", i+1)
		}
	}

	if rl.Allow("client") {
		t.Error("запрос сверх лимита должен быть отклонен")
	}

	// Лимит считается отдельно по каждому ключу
	if !rl.Allow("other") {
		t.Error("запрос другого клиента должен быть разрешен")
	}
}

func TestRateLimiterWindowExpiry(t *testing.T) {
	rl := NewRateLimiter(1, 10*time.Millisecond)

	if !rl.Allow("client") {
		t.Fatal("первый запрос должен быть разрешен")
	}
	if rl.Allow("client") {
		t.Fatal("второй запрос должен быть отклонен")
	}

	// После истечения окна лимит освобождается
	time.Sleep(20 * time.Millisecond)
	if !rl.Allow("client") {
		t.Error("запрос после истечения окна должен быть разрешен")
	}
}

func TestRateLimiterGetRemaining(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)

	if got := rl.GetRemaining("client"); got != 2 {
		t.Errorf("осталось %d запросов, ожидалось 2", got)
	}

	rl.Allow("client")
	rl.Allow("client")
	rl.Allow("client")

	if got := rl.GetRemaining("client"); got != 0 {
		t.Errorf("осталось %d запросов, ожидалось 0", got)
	}

	rl.Reset("client")
	if got := rl.GetRemaining("client"); got != 2 {
		t.Errorf("после сброса осталось %d запросов, ожидалось 2", got)
	}
}

func TestMetricsRecordDisbursement(t *testing.T) {
	m := &Metrics{ErrorTypes: make(map[string]int64)}

	m.RecordDisbursement(nil)
	m.RecordDisbursement(fmt.Errorf("%w: баланс меньше суммы займа", models.ErrInsufficientFunds))

	if m.TotalDisbursements != 2 {
		t.Errorf("всего выдач %d, ожидалось 2", m.TotalDisbursements)
	}
	if m.FailedDisbursements != 1 {
		t.Errorf("неудачных выдач %d, ожидалось 1", m.FailedDisbursements)
	}
	if m.InsufficientFundsRejections != 1 {
		t.Errorf("отказов по средствам %d, ожидалось 1", m.InsufficientFundsRejections)
	}

	m.ResetMetrics()
	if m.TotalDisbursements != 0 || m.ErrorCount != 0 {
		t.Error("метрики должны обнуляться после сброса")
	}
}
