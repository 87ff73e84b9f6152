// Package sms sends text messages through an HTTP SMS gateway that accepts
// form-encoded posts, or through a log-only driver for local runs.
package sms
