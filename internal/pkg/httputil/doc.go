// Package httputil holds the JSON response and request helpers used by the
// API handlers, so every endpoint shares one error envelope and encoding path.
package httputil
