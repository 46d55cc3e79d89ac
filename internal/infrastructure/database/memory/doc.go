// Package memory provides process-local implementations of the domain
// repositories.  They are the default storage when no database is
// configured and back the HTTP tests.  Every read returns a copy, so callers
// may mutate what they get without touching the stored record.
package memory
