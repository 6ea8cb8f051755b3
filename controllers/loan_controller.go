package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/soltony/bnpl-engine/models"
	"github.com/soltony/bnpl-engine/services"
	"github.com/soltony/bnpl-engine/utils"
)

// LoanController обрабатывает запросы, связанные с займами
type LoanController struct {
	disbursementService *services.DisbursementService
	repaymentService    *services.RepaymentService
}

// NewLoanController создает новый экземпляр LoanController
func NewLoanController(disbursement *services.DisbursementService, repayment *services.RepaymentService) *LoanController {
	return &LoanController{
		disbursementService: disbursement,
		repaymentService:    repayment,
	}
}

// Disburse обрабатывает запрос на выдачу займа
func (c *LoanController) Disburse(ctx *gin.Context) {
	var dto services.DisburseLoanDTO
	if err := ctx.ShouldBindJSON(&dto); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	loan, err := c.disbursementService.Disburse(dto)
	if err != nil {
		status, message := mapEngineError(err)
		ctx.JSON(status, gin.H{"error": message})
		return
	}

	ctx.JSON(http.StatusCreated, loan)
}

// GetLoans обрабатывает запрос на получение списка займов
func (c *LoanController) GetLoans(ctx *gin.Context) {
	loans, err := c.repaymentService.GetLoans()
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, loans)
}

// GetLoan обрабатывает запрос на получение займа с актуальной задолженностью.
// Дата оценки передается параметром as_of (RFC 3339), по умолчанию - сейчас.
func (c *LoanController) GetLoan(ctx *gin.Context) {
	loanID, err := parseID(ctx)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid loan ID"})
		return
	}

	asOfDate := time.Now()
	if raw := ctx.Query("as_of"); raw != "" {
		asOfDate, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid as_of date"})
			return
		}
	}

	state, err := c.repaymentService.GetLoanState(loanID, asOfDate)
	if err != nil {
		status, message := mapEngineError(err)
		ctx.JSON(status, gin.H{"error": message})
		return
	}

	ctx.JSON(http.StatusOK, state)
}

// Repay обрабатывает запрос на учет платежа по займу
func (c *LoanController) Repay(ctx *gin.Context) {
	loanID, err := parseID(ctx)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid loan ID"})
		return
	}

	var dto services.RecordRepaymentDTO
	if err := ctx.ShouldBindJSON(&dto); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	dto.LoanID = loanID
	if dto.PayDate.IsZero() {
		dto.PayDate = time.Now()
	}

	payment, err := c.repaymentService.RecordRepayment(dto)
	if err != nil {
		status, message := mapEngineError(err)
		ctx.JSON(status, gin.H{"error": message})
		return
	}

	ctx.JSON(http.StatusCreated, payment)
}

// GetPayments обрабатывает запрос на историю платежей по займу
func (c *LoanController) GetPayments(ctx *gin.Context) {
	loanID, err := parseID(ctx)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid loan ID"})
		return
	}

	payments, err := c.repaymentService.GetPayments(loanID)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, payments)
}

// GetMetrics обрабатывает запрос на снимок метрик движка
func (c *LoanController) GetMetrics(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, utils.GetMetrics().GetMetricsSnapshot())
}

// parseID извлекает ID из пути запроса
func parseID(ctx *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}

// mapEngineError сопоставляет ошибки движка с HTTP-статусами.
// Бизнес-отказы отдаются клиенту, ошибки конфигурации - операторские,
// наружу уходит только общий текст.
func mapEngineError(err error) (int, string) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, models.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, models.ErrLedgerMisconfigured), errors.Is(err, models.ErrInvalidConfiguration):
		utils.LogError("Ошибка конфигурации: %v", err)
		return http.StatusInternalServerError, "внутренняя ошибка конфигурации"
	case errors.Is(err, models.ErrTransactionAborted):
		utils.LogError("Транзакция прервана: %v", err)
		return http.StatusInternalServerError, "операция не выполнена, попробуйте еще раз"
	default:
		return http.StatusBadRequest, err.Error()
	}
}
