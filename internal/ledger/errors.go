package ledger

import (
	"errors"
	"fmt"
)

// ErrStorage — сбой хранилища (соединение, схема, неожиданное нарушение ограничений).
// Обычные бизнес-отказы (нет денег, уже в очереди, имя занято) ошибкой не являются.
var ErrStorage = errors.New("ошибка хранилища")

// errRejected откатывает транзакцию при бизнес-отказе внутри WithTx.
var errRejected = errors.New("операция отклонена")

func storageError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}

func storageRead[T any](v T, err error) (T, error) {
	if err != nil {
		var zero T
		return zero, storageError("чтение", err)
	}
	return v, nil
}
