// Package git reads commit history for the documents of a source tree.
//
// It answers one question: when was a file last committed. Pages use the
// answer as their "last updated" stamp when the build is configured with
// last_modified: git.
package git
