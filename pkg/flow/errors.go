package flow

import "errors"

// ErrMissingStartNode is returned when a session must be created for a flow
// that has no start node. Validation rejects such flows at activation, but
// legacy data may still carry them.
var ErrMissingStartNode = errors.New("flow has no start node")
