package repository

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateSession = errors.New("session already exists")
	ErrUnknownSession   = errors.New("session not found")
)

// StorageError envuelve fallas de I/O del motor de base de datos.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}
