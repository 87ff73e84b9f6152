// Package mail sends email through SMTP (gomail) or, for local runs, by
// writing a summary to the log.
package mail
