package importer

import "fmt"

// UnreachableError indicates the import service could not be reached at all
// (connection failure, timeout). Distinguishable from a rejection so callers
// can map it to a 502-equivalent.
type UnreachableError struct {
	Err error
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("import service unreachable: %v", e.Err)
}

func (e *UnreachableError) Unwrap() error { return e.Err }

// StatusError indicates the import service responded with a non-2xx status.
// Status and Body are passed through verbatim.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("import service responded %d: %s", e.Status, e.Body)
}
