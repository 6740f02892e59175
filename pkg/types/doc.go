// Package types defines the Store interface, the User and Book entities,
// loan state, configuration, and the standard error taxonomy for the biblio
// circulation manager.
package types
