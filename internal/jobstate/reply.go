package jobstate

import (
	"fmt"
	"strconv"
	"strings"
)

// Вердикты сервиса.
const (
	verdictOK    = "OK"
	verdictError = "ERROR"
	verdictInfo  = "INFO"
)

// Reply — текстовый ответ сервиса: строки stdout, склеенные через пробел.
type Reply string

// newReply нормализует stdout процесса.
func newReply(stdout string) Reply {
	lines := strings.Split(strings.ReplaceAll(stdout, "\r\n", "\n"), "\n")
	return Reply(strings.TrimSpace(strings.Join(lines, " ")))
}

// OK — предыдущий этап завершён успешно.
func (r Reply) OK() bool {
	return strings.Contains(string(r), verdictOK)
}

// IsError — сервис сообщает об ошибке.
func (r Reply) IsError() bool {
	return strings.Contains(string(r), verdictError)
}

// IsInfo — информационный ответ, действие не требуется.
func (r Reply) IsInfo() bool {
	return strings.Contains(string(r), verdictInfo)
}

// JobID разбирает ответ Register как целое число.
func (r Reply) JobID() (int, error) {
	if r.IsError() {
		return 0, fmt.Errorf("%w: %s", ErrJobResolution, r)
	}
	id, err := strconv.Atoi(strings.TrimSpace(string(r)))
	if err != nil {
		return 0, fmt.Errorf("%w: not an integer: %q", ErrJobResolution, string(r))
	}
	return id, nil
}

// String возвращает текст ответа.
func (r Reply) String() string {
	return string(r)
}
