package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/julienschmidt/httprouter"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// envelope is the top-level object of every response body.
type envelope map[string]any

// responseCodec encodes responses with encoding/json field semantics.
var responseCodec = jsoniter.ConfigCompatibleWithStandardLibrary

// requestCodec additionally rejects unknown fields.
var requestCodec = jsoniter.Config{
	EscapeHTML:             true,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
	DisallowUnknownFields:  true,
}.Froze()

// param returns the named URL parameter set by httprouter.
func param(r *http.Request, name string) string {
	return httprouter.ParamsFromContext(r.Context()).ByName(name)
}

// readString returns the query value of key, or def when it is empty.
func readString(qs url.Values, key, def string) string {
	if s := strings.TrimSpace(qs.Get(key)); s != "" {
		return s
	}
	return def
}

// writeJSON writes data as indented JSON with the given status.
func (s *Server) writeJSON(w http.ResponseWriter, status int, data envelope, headers http.Header) error {
	js, err := responseCodec.MarshalIndent(data, "", "\t")
	if err != nil {
		return err
	}
	js = append(js, '\n')

	for key, value := range headers {
		w.Header()[key] = value
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(js)
	return nil
}

// readJSON decodes exactly one JSON value from the request body into dst.
// Unknown fields, trailing data and bodies over maxBodyBytes are rejected.
func (s *Server) readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("body must not be larger than %d bytes", maxErr.Limit)
		}
		return err
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return errors.New("body must not be empty")
	}
	if err := requestCodec.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("body contains badly-formed JSON: %w", err)
	}
	return nil
}
