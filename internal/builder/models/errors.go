package models

import "errors"

// ============================================================
// Error taxonomy
// ============================================================

var (
	// ErrMissingInput — отсутствует обязательная входная таблица или строка.
	// Фатально для стадии.
	ErrMissingInput = errors.New("missing input")

	// ErrToleranceUnmet — ни один кластер не прошел пороги. Стадия продолжается
	// с меньшим числом элементов.
	ErrToleranceUnmet = errors.New("tolerance unmet")

	// ErrUnsupportedShape — неизвестный вид фигуры. Фатально только для элемента.
	ErrUnsupportedShape = errors.New("unsupported shape")

	// ErrCorruption — длина байтов расходится с записанным счетчиком.
	ErrCorruption = errors.New("geometry corruption")

	// ErrDuplicateKey — object_type уже занят и замена не запрошена.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrNotFound — запрошенная сущность отсутствует.
	ErrNotFound = errors.New("not found")
)
