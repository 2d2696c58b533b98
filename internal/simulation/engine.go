// Package simulation описывает границу с движком симуляции.
//
// Движок владеет директорией сессии, выполняет скрипты этапа,
// сохраняет состояние симуляции и принимает диагностические строки
// в свою консоль. Gate ничего не знает о содержимом скриптов.
//
// Batch — реализация для солвера, запускаемого в пакетном режиме:
//
//	<binary> <args...> -batch <script> <simfile>
package simulation

import (
	"context"
)

// Engine — движок симуляции с точки зрения gate.
type Engine interface {
	// SessionDir — рабочая директория сессии.
	SessionDir() string

	// PresentationName — имя симуляции (файл <name>.sim в сессии).
	PresentationName() string

	// SetMaxSteps переопределяет максимальное число шагов солвера.
	SetMaxSteps(n int) error

	// Play выполняет скрипт и блокируется до завершения.
	Play(ctx context.Context, script string) (Playback, error)

	// SaveState сохраняет состояние симуляции в path.
	SaveState(ctx context.Context, path string) error

	// Println пишет диагностическую строку в консоль движка.
	Println(msg string)
}

// Playback — результат выполнения скрипта.
type Playback struct {
	// Interrupted — выполнение прервано исключением внутри движка.
	Interrupted bool

	// ExitCode — код выхода процесса движка (для Batch).
	ExitCode int
}
