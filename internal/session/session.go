// Package session работает с артефактами рабочей директории этапа.
//
// Структура workflow:
//
//	<workflow>/
//	├── PRE/   model.sim, pre_mesh.java, parameters.txt
//	├── RUN/   model.sim -> ../PRE/model.sim, run_solve.java, parameters.txt
//	└── POST/  model.sim -> ../RUN/model.sim, post_report.java
//
// Файл симуляции-symlink означает, что сессия связана с предыдущим этапом.
// FAILED — пустой маркер упавшего этапа.
// parameters_cleanup.txt — маркер cleanup-сессии.
package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/shaiso/StageGate/internal/domain"
	"github.com/shaiso/StageGate/internal/params"
)

// Имена артефактов сессии.
const (
	FailedName = "FAILED"
	SimExt     = ".sim"
)

// Resolve строит Invocation для сессии dir и файла симуляции name.
//
// Этап определяется по имени директории сессии, workflow — её родитель.
// name может быть указан с расширением .sim или без.
func Resolve(dir, name string) (domain.Invocation, error) {
	if name == "" {
		return domain.Invocation{}, ErrNoSimFile
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return domain.Invocation{}, fmt.Errorf("resolve session dir: %w", err)
	}

	stageName := filepath.Base(abs)
	stage, _ := domain.ParseStage(stageName)

	simFile := filepath.Join(abs, strings.TrimSuffix(name, SimExt)+SimExt)

	return domain.Invocation{
		ID:               uuid.New(),
		Stage:            stage,
		StageName:        stageName,
		WorkflowLocation: filepath.Dir(abs),
		SessionLocation:  abs,
		SimFile:          simFile,
		Chained:          isSymlink(simFile),
	}, nil
}

// isSymlink проверяет, что путь — symlink (сам путь, а не цель).
func isSymlink(path string) bool {
	fi, err := os.Lstat(path)
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeSymlink != 0
}

// Scripts возвращает скрипты этапов (pre_*, run_*, post_*) в лексическом порядке.
func Scripts(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read session dir: %w", err)
	}

	// os.ReadDir сортирует по имени — порядок детерминирован
	var scripts []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := domain.StageFromPrefix(e.Name()); ok {
			scripts = append(scripts, filepath.Join(dir, e.Name()))
		}
	}
	return scripts, nil
}

// DiscoverScript возвращает первый скрипт этапа.
// found=false, если скриптов нет.
func DiscoverScript(dir string) (script string, found bool, err error) {
	scripts, err := Scripts(dir)
	if err != nil {
		return "", false, err
	}
	if len(scripts) == 0 {
		return "", false, nil
	}
	return scripts[0], true, nil
}

// FindSimName возвращает имя первого *.sim файла в директории (без расширения).
func FindSimName(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read session dir: %w", err)
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), SimExt) {
			return strings.TrimSuffix(e.Name(), SimExt), nil
		}
	}
	return "", ErrNoSimFile
}

// ParamsPath — путь к parameters.txt.
func ParamsPath(dir string) string {
	return filepath.Join(dir, params.FileName)
}

// CleanupMarkerPath — путь к parameters_cleanup.txt.
func CleanupMarkerPath(dir string) string {
	return filepath.Join(dir, params.CleanupFileName)
}

// FailedPath — путь к маркеру FAILED.
func FailedPath(dir string) string {
	return filepath.Join(dir, FailedName)
}

// WriteFailed создаёт пустой маркер FAILED. Существующий маркер не ошибка.
func WriteFailed(dir string) error {
	f, err := os.OpenFile(FailedPath(dir), os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create FAILED: %w", err)
	}
	return f.Close()
}

// HasFailed проверяет наличие маркера FAILED.
func HasFailed(dir string) bool {
	return exists(FailedPath(dir))
}

// ClearFailed удаляет маркер FAILED, оставшийся от прошлой попытки.
func ClearFailed(dir string) (bool, error) {
	return remove(FailedPath(dir))
}

// HasCleanupMarker проверяет наличие parameters_cleanup.txt.
func HasCleanupMarker(dir string) bool {
	return exists(CleanupMarkerPath(dir))
}

// RemoveCleanupMarker удаляет parameters_cleanup.txt.
// removed=false, если маркера не было.
func RemoveCleanupMarker(dir string) (bool, error) {
	return remove(CleanupMarkerPath(dir))
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func remove(path string) (bool, error) {
	err := os.Remove(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("remove %s: %w", filepath.Base(path), err)
	}
	return true, nil
}
