// Package logscan ищет маркеры ошибок в логе солвера.
//
// Маркер — "error:", "Error:" или "ERROR:" в любом месте строки.
// "errorless run" маркером не является: сразу после слова нужно ':'.
package logscan

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// DefaultPrefix — префикс имени лога солвера: <prefix>_<job_id>.log.
const DefaultPrefix = "StarccmFlex"

var marker = regexp.MustCompile(`(error|Error|ERROR):`)

// Finding — первая строка лога с маркером ошибки.
type Finding struct {
	Line   int
	Text   string
	Path   string
	Marked bool
}

// LogPath возвращает путь к логу этапа по job id.
func LogPath(sessionDir, prefix string, jobID int) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return filepath.Join(sessionDir, fmt.Sprintf("%s_%d.log", prefix, jobID))
}

// Scan читает лог и возвращает первую строку с маркером ошибки.
// Finding.Marked=false, если маркер не найден.
func Scan(path string) (Finding, error) {
	f, err := os.Open(path)
	if err != nil {
		return Finding{Path: path}, err
	}
	defer f.Close()

	// Длина строки не ограничена: логи солвера содержат длинные таблицы
	rd := bufio.NewReader(f)
	n := 0
	for {
		raw, err := rd.ReadString('\n')
		if raw != "" {
			n++
			line := strings.TrimSpace(raw)
			if marker.MatchString(line) {
				return Finding{Line: n, Text: line, Path: path, Marked: true}, nil
			}
		}
		if errors.Is(err, io.EOF) {
			return Finding{Path: path}, nil
		}
		if err != nil {
			return Finding{Path: path}, fmt.Errorf("scan %s: %w", path, err)
		}
	}
}

// HasError — true, если в логе есть маркер ошибки.
// Отсутствующий или нечитаемый лог ошибкой не считается.
func HasError(logger *slog.Logger, path string) bool {
	finding, err := Scan(path)
	if err != nil {
		logger.Warn("cannot scan simulation log", "path", path, "error", err)
		return false
	}
	if finding.Marked {
		logger.Info("error marker found in simulation log",
			"path", path,
			"line", finding.Line,
			"text", finding.Text,
		)
	}
	return finding.Marked
}
