// Package posts implements the post resource and its vote counter.
//
// The vote transition rules live in one place (vote.go) and both store
// backends apply them inside their own unit of work, so the floor-at-zero
// invariant cannot drift between backends.
package posts
