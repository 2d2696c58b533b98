package gate

import "errors"

// Ошибки gate.
var (
	// ErrDependencyUnmet — предыдущий этап не завершён успешно.
	ErrDependencyUnmet = errors.New("previous stage not completed")

	// ErrPublish — job-state сервис отклонил публикацию этапа.
	ErrPublish = errors.New("publish stage rejected")

	// ErrSaveState — движок не смог сохранить симуляцию.
	ErrSaveState = errors.New("save simulation state")

	// ErrNoHandler — для префикса скрипта нет обработчика.
	ErrNoHandler = errors.New("no handler for stage script")

	// ErrRecord — не удалось записать историю вызова.
	ErrRecord = errors.New("record stage run")

	// ErrEvent — не удалось опубликовать событие этапа.
	ErrEvent = errors.New("publish stage event")
)
