package lead

import "errors"

var (
	ErrLeadNotFound    = errors.New("lead not found")
	ErrInvalidCategory = errors.New("unknown category")
	ErrNotOwner        = errors.New("lead belongs to another client")
)
