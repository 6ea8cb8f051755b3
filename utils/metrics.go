package utils

import (
	"errors"
	"sync"
	"time"

	"github.com/soltony/bnpl-engine/models"
)

// Metrics содержит метрики финансового движка
type Metrics struct {
	mu sync.RWMutex

	// Метрики запросов
	TotalRequests   int64
	FailedRequests  int64
	RequestLatency  time.Duration
	AverageLatency  time.Duration
	LastRequestTime time.Time

	// Метрики выдачи займов
	TotalDisbursements          int64
	FailedDisbursements         int64
	InsufficientFundsRejections int64
	LastDisbursementTime        time.Time

	// Метрики погашений
	TotalRepayments  int64
	FailedRepayments int64

	// Метрики ошибок
	ErrorCount    int64
	LastErrorTime time.Time
	ErrorTypes    map[string]int64
}

var (
	metrics     *Metrics
	metricsOnce sync.Once
)

// GetMetrics возвращает экземпляр метрик
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		metrics = &Metrics{
			ErrorTypes: make(map[string]int64),
		}
	})
	return metrics
}

// RecordRequest записывает метрики HTTP-запроса
func (m *Metrics) RecordRequest(duration time.Duration, failed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.TotalRequests++
	m.RequestLatency += duration
	m.AverageLatency = m.RequestLatency / time.Duration(m.TotalRequests)
	m.LastRequestTime = time.Now()

	if failed {
		m.FailedRequests++
	}
}

// RecordDisbursement записывает метрики операции выдачи займа
func (m *Metrics) RecordDisbursement(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.TotalDisbursements++
	m.LastDisbursementTime = time.Now()

	if err != nil {
		m.FailedDisbursements++
		if errors.Is(err, models.ErrInsufficientFunds) {
			m.InsufficientFundsRejections++
		}
		m.recordErrorLocked(err)
	}
}

// RecordRepayment записывает метрики операции погашения
func (m *Metrics) RecordRepayment(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.TotalRepayments++
	if err != nil {
		m.FailedRepayments++
		m.recordErrorLocked(err)
	}
}

// recordErrorLocked записывает метрики ошибки, вызывается под мьютексом
func (m *Metrics) recordErrorLocked(err error) {
	m.ErrorCount++
	m.LastErrorTime = time.Now()

	errorType := "unknown"
	if err != nil {
		errorType = err.Error()
	}
	m.ErrorTypes[errorType]++
}

// GetMetricsSnapshot возвращает снимок текущих метрик
func (m *Metrics) GetMetricsSnapshot() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	errorTypes := make(map[string]int64, len(m.ErrorTypes))
	for k, v := range m.ErrorTypes {
		errorTypes[k] = v
	}

	return map[string]interface{}{
		"total_requests":                m.TotalRequests,
		"failed_requests":               m.FailedRequests,
		"average_latency":               m.AverageLatency,
		"total_disbursements":           m.TotalDisbursements,
		"failed_disbursements":          m.FailedDisbursements,
		"insufficient_funds_rejections": m.InsufficientFundsRejections,
		"total_repayments":              m.TotalRepayments,
		"failed_repayments":             m.FailedRepayments,
		"error_count":                   m.ErrorCount,
		"last_error_time":               m.LastErrorTime,
		"error_types":                   errorTypes,
	}
}

// ResetMetrics сбрасывает все метрики
func (m *Metrics) ResetMetrics() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.TotalRequests = 0
	m.FailedRequests = 0
	m.RequestLatency = 0
	m.AverageLatency = 0
	m.TotalDisbursements = 0
	m.FailedDisbursements = 0
	m.InsufficientFundsRejections = 0
	m.TotalRepayments = 0
	m.FailedRepayments = 0
	m.ErrorCount = 0
	m.ErrorTypes = make(map[string]int64)
}
