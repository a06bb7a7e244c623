package clog

import "net/http"

type Level int

const (
	LevelDebug Level = iota + 1
	LevelInfo
	LevelWarn
	LevelError
)

// HTTPStatusToLevel maps a response status to the level the access log line
// is written at. Client errors are warnings, server errors are errors.
func HTTPStatusToLevel(status int) Level {
	switch {
	case status >= 100 && status < 400:
		return LevelInfo
	case status == 499:
		return LevelInfo
	case status == http.StatusUnauthorized || status == http.StatusNotFound:
		return LevelInfo
	case status >= 400 && status < 500:
		return LevelWarn
	default:
		return LevelError
	}
}
