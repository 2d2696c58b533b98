package domain

import "errors"

// Ошибки доменной модели.
var (
	// ErrUnknownStage — имя этапа не входит в PRE/RUN/POST.
	ErrUnknownStage = errors.New("unknown stage")

	// ErrInvalidTransition — переход между состояниями gate не разрешён.
	ErrInvalidTransition = errors.New("invalid gate transition")
)
