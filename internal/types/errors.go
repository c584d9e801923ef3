package types

import (
	"errors"
	"fmt"
)

var (
	ErrPoolFull        = errors.New("pool is full")
	ErrInvalidPort     = errors.New("invalid port")
	ErrInvalidPriority = errors.New("invalid priority")
	ErrEmptyHost       = errors.New("empty host")
	ErrInvalidNetwork  = errors.New("invalid network")
	ErrInvalidRole     = errors.New("invalid role")

	ErrInvalidConfig = errors.New("invalid config")
)

func Err(typedError error, innerErr error, msgTemplate string, args ...any) error {
	if msgTemplate == "" {
		return errors.Join(typedError, innerErr)
	} else {
		return errors.Join(typedError, innerErr, fmt.Errorf(msgTemplate, args...))
	}
}
