package params

import "errors"

// Ошибки чтения параметров.
var (
	// ErrRead — файл параметров не найден или не читается.
	ErrRead = errors.New("read parameters")

	// ErrConfigParse — значение параметра имеет неверный формат.
	ErrConfigParse = errors.New("invalid parameter value")
)
