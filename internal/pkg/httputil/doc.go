// Package httputil holds the JSON response, error envelope and request
// helpers shared by the handlers in internal/api.
package httputil
