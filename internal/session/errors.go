package session

import "errors"

// ErrNoSimFile — в сессии нет файла симуляции.
var ErrNoSimFile = errors.New("no simulation file in session")
