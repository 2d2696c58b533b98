package domain

import (
	"fmt"
	"strings"
)

// Stage — этап workflow симуляции.
//
// Порядок этапов:
//
//	PRE → RUN → POST
//
// PRE не имеет предшественника.
type Stage string

const (
	// StagePre — подготовка (сетка, геометрия).
	StagePre Stage = "PRE"

	// StageRun — основной расчёт солвера.
	StageRun Stage = "RUN"

	// StagePost — постобработка результатов.
	StagePost Stage = "POST"
)

// Stages возвращает все этапы в порядке выполнения.
func Stages() []Stage {
	return []Stage{StagePre, StageRun, StagePost}
}

// ParseStage парсит имя этапа (регистр учитывается, как в именах директорий).
func ParseStage(s string) (Stage, error) {
	switch Stage(s) {
	case StagePre, StageRun, StagePost:
		return Stage(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStage, s)
	}
}

// StageFromPrefix определяет этап по префиксу имени скрипта:
// pre_, run_, post_ (без учёта регистра).
func StageFromPrefix(name string) (Stage, bool) {
	prefix, _, found := strings.Cut(strings.ToLower(name), "_")
	if !found {
		return "", false
	}
	switch prefix {
	case "pre":
		return StagePre, true
	case "run":
		return StageRun, true
	case "post":
		return StagePost, true
	default:
		return "", false
	}
}

// Previous возвращает предшествующий этап.
// Для PRE (и неизвестных значений) возвращает false.
func (s Stage) Previous() (Stage, bool) {
	switch s {
	case StageRun:
		return StagePre, true
	case StagePost:
		return StageRun, true
	default:
		return "", false
	}
}

// IsValid проверяет, что значение — один из известных этапов.
func (s Stage) IsValid() bool {
	_, err := ParseStage(string(s))
	return err == nil
}

// String возвращает строковое представление Stage.
func (s Stage) String() string {
	return string(s)
}
