package domain

import "errors"

// Классы отказов. Слои ниже оборачивают их через %w, сессия и хендлеры
// различают их через errors.Is.
var (
	// ErrSourceUnavailable - файл (или иной источник) записей отсутствует
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrSourceMalformed - источник не удалось декодировать
	ErrSourceMalformed = errors.New("source malformed")
	// ErrUnresolvedIdentity - идентификатор не найден в справочнике, запись пропускается
	ErrUnresolvedIdentity = errors.New("unresolved identity")
	// ErrScoringUnavailable - модель недоступна или не хватает признаков
	ErrScoringUnavailable = errors.New("scoring unavailable")
	// ErrNotFound - удаляемой временной авторизации нет
	ErrNotFound = errors.New("not found")
	// ErrInvalidIdentifier - пустой идентификатор на входе админки
	ErrInvalidIdentifier = errors.New("invalid identifier")
)

// FaultClass возвращает имя класса отказа для события error.
func FaultClass(err error) string {
	switch {
	case errors.Is(err, ErrSourceUnavailable):
		return "SourceUnavailable"
	case errors.Is(err, ErrSourceMalformed):
		return "SourceMalformed"
	case errors.Is(err, ErrScoringUnavailable):
		return "ScoringUnavailable"
	default:
		return "ProcessingFault"
	}
}
