// Package params читает плоский файл параметров сессии (parameters.txt).
//
// Формат:
//
//	# комментарий
//	* тоже комментарий
//	[SECTION]
//	ITERATOR = 42
//	RUN_NUMBER: 038
//	PROJECT, PRD2526MT
//
// Строка делится по первому из разделителей ',', ':', '='.
// Ключ приводится к нижнему регистру, побеждает первое вхождение.
package params

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Имена файлов параметров в директории сессии.
const (
	FileName        = "parameters.txt"
	CleanupFileName = "parameters_cleanup.txt"
)

const delimiters = ",:="

// skipLine — пустые строки, комментарии (# или *) и заголовки секций.
var skipLine = regexp.MustCompile(`^\s*[#*]+.*$|^\s*$|^\s*\[.*\]$`)

// Map — параметры сессии: ключ в нижнем регистре → значение.
type Map map[string]string

// Read читает файл параметров.
//
// При ошибке ввода-вывода возвращает уже прочитанную часть (не nil)
// вместе с ошибкой ErrRead.
func Read(path string) (Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return Map{}, fmt.Errorf("%w: %v", ErrRead, err)
	}
	defer f.Close()

	m, err := Parse(f)
	if err != nil {
		return m, fmt.Errorf("%w: %s: %v", ErrRead, path, err)
	}
	return m, nil
}

// Parse разбирает параметры из reader.
func Parse(r io.Reader) (Map, error) {
	m := Map{}

	rd := bufio.NewReader(r)
	for {
		raw, err := rd.ReadString('\n')
		if raw != "" {
			m.add(raw)
		}
		if errors.Is(err, io.EOF) {
			return m, nil
		}
		if err != nil {
			return m, err
		}
	}
}

// add разбирает одну строку файла.
func (m Map) add(raw string) {
	line := strings.TrimSpace(raw)
	if skipLine.MatchString(line) {
		return
	}

	i := strings.IndexAny(line, delimiters)
	if i < 0 {
		return
	}

	key := strings.ToLower(strings.TrimSpace(line[:i]))
	if _, exists := m[key]; exists {
		return
	}
	m[key] = strings.TrimSpace(line[i+1:])
}

// Get возвращает значение параметра.
func (m Map) Get(key string) (string, bool) {
	v, ok := m[strings.ToLower(key)]
	return v, ok
}

// Int возвращает целочисленное значение параметра.
// ok=false, если параметр отсутствует; ErrConfigParse, если значение не число.
func (m Map) Int(key string) (int, bool, error) {
	v, ok := m.Get(key)
	if !ok {
		return 0, false, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, true, fmt.Errorf("%w: %s=%q", ErrConfigParse, key, v)
	}
	return n, true, nil
}

// Keys возвращает ключи в лексическом порядке.
func (m Map) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
