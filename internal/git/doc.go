// Package git checks that a vault directory is used safely with git: the
// encrypted vault file should be committed, and any plaintext exports
// should be ignored.
package git
