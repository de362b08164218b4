package models

import (
	"database/sql/driver"
	"fmt"
)

// OptionalID is a provider identifier stored as NULL while it is empty, so a
// unique index only applies once the value is known.
type OptionalID string

func (id OptionalID) String() string {
	return string(id)
}

func (id OptionalID) Value() (driver.Value, error) {
	if id == "" {
		return nil, nil
	}
	return string(id), nil
}

func (id *OptionalID) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*id = ""
	case string:
		*id = OptionalID(v)
	case []byte:
		*id = OptionalID(v)
	default:
		return fmt.Errorf("cannot scan %T into OptionalID", src)
	}
	return nil
}
