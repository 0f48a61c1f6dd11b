package client

import (
	"fmt"

	"github.com/dmitrijs2005/feedsync/internal/common"
)

// ErrUnavailable is wrapped into every error for a request that got no
// response.
var ErrUnavailable = common.ErrUnavailable

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Message)
}

func (e *StatusError) StatusCode() int       { return e.Code }
func (e *StatusError) StatusMessage() string { return e.Message }
