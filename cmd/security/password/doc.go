// Package password implements Argon2id password hashing for the upvote service.
//
// Hashes use the PHC string format and are verified with strict decoding,
// constant-time comparison, and anti-DoS parameter bounds.
package password
