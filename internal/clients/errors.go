package clients

import "errors"

// ErrNotFound is returned when a collaborator responds 404 for a lookup
// (e.g. an unknown project_id).
var ErrNotFound = errors.New("clients: not found")
