package wire

import "net/http"

// StatusText returns the canonical reason phrase for an HTTP status code,
// matching the original's royalbed::common::HttpStatus::message table
// (see original_source/tests/client/send-request-tests.cpp's
// ResponseMocReader::writeStartLine, which falls back to this table
// whenever a response's statusMessage is blank).
func StatusText(code int) string {
	if s := http.StatusText(code); s != "" {
		return s
	}
	return "Unknown Status"
}
