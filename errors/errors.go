package errors

import "fmt"

var (
	ErrInvalidValue         = fmt.Errorf("invalid value")
	ErrIdentityConflict     = fmt.Errorf("identity conflict")
	ErrBrokerUnavailable    = fmt.Errorf("broker unavailable")
	ErrSerializationFailure = fmt.Errorf("serialization failure")
)
