package sqldb

import (
	"errors"
	"fmt"
)

var (
	ErrNoRows          = errors.New("sqldb: no rows in result set")
	ErrUnsupportedType = errors.New("sqldb: unsupported value type")
)

// ConfigurationError reports a caller contract violation, such as an upsert
// whose conflict column is not among its values.
type ConfigurationError struct {
	Op  string
	Msg string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("sqldb: %s: %s", e.Op, e.Msg)
}

// IsConfigurationError reports whether err wraps a *ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
