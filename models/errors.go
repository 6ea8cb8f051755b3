package models

import "errors"

// Ошибки финансового движка. Сервисы оборачивают их через fmt.Errorf("%w: ..."),
// контроллеры сопоставляют с HTTP-статусами через errors.Is.
var (
	// ErrInvalidConfiguration - конфигурация комиссий или штрафов продукта не прошла валидацию
	ErrInvalidConfiguration = errors.New("некорректная конфигурация продукта")

	// ErrInsufficientFunds - у провайдера недостаточно средств для выдачи займа
	ErrInsufficientFunds = errors.New("недостаточно средств у провайдера")

	// ErrLedgerMisconfigured - у провайдера отсутствует обязательный счет в плане счетов
	ErrLedgerMisconfigured = errors.New("план счетов провайдера настроен некорректно")

	// ErrNotFound - запрошенный продукт, провайдер или заявка не найдены
	ErrNotFound = errors.New("запись не найдена")

	// ErrTransactionAborted - транзакция хранилища прервана, можно безопасно повторить с нуля
	ErrTransactionAborted = errors.New("транзакция прервана")
)
