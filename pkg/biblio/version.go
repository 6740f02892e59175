// Package biblio holds module-wide constants.
package biblio

// Version is the release reported by the biblio binary and the HTTP API.
const Version = "0.4.0"
