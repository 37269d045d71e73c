// Package utils holds small helpers shared by the HTTP layer and the
// storage backends.
package utils

import (
	"io"

	"github.com/MrSnakeDoc/tonton/internal/logger"
)

// Close discards the error of c.Close. Only for cleanup paths that already
// return another error.
func Close(c io.Closer) {
	_ = c.Close()
}

// MustClose logs a failed close of what at warn level.
func MustClose(c io.Closer, log logger.Logger, what string) {
	if err := c.Close(); err != nil {
		log.Warn("close failed", logger.String("what", what), logger.Error(err))
	}
}
