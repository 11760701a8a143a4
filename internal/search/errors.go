package search

import "errors"

// ErrNotFound marks a lookup failure the HTTP layer should surface as 404:
// an unknown index, or a sort field the schema never declared.
var ErrNotFound = errors.New("not found")

// ErrSortFieldNotFast marks a sort request against a field that exists in
// the schema but is not declared fast — a configuration error rather than
// a missing-resource one.
var ErrSortFieldNotFast = errors.New("sort field is not declared fast")
