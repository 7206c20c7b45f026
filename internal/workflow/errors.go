package workflow

import (
	"errors"
)

// Классы ошибок жизненного цикла осмотра. Обработчики сопоставляют их
// с HTTP-кодами через errors.Is: 403, 409, 404, 400 и 502 соответственно.
var (
	ErrUnauthorized      = errors.New("операция не разрешена для этой роли")
	ErrInvalidTransition = errors.New("недопустимый переход статуса осмотра")
	ErrNotFound          = errors.New("запись не найдена")
	ErrValidation        = errors.New("неверные входные данные")
	ErrUpstream          = errors.New("ошибка внешнего сервиса")
)
