package domain

import (
	"errors"
	"fmt"
)

// ErrStorageConfiguration matches every StorageConfigurationError via errors.Is
var ErrStorageConfiguration = errors.New("storage configuration error")

// StorageConfigurationError is returned when a backend cannot be constructed for its root
type StorageConfigurationError struct {
	Root   string
	Reason string
	Err    error
}

func (e *StorageConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("storage %q: %s: %v", e.Root, e.Reason, e.Err)
	}
	return fmt.Sprintf("storage %q: %s", e.Root, e.Reason)
}

func (e *StorageConfigurationError) Unwrap() error {
	return e.Err
}

func (e *StorageConfigurationError) Is(target error) bool {
	return target == ErrStorageConfiguration
}
