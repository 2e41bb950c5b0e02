// Package identity implements the upvote service's account foundation.
//
// It contains the Account model, the Store persistence boundary with Postgres
// and in-memory implementations, and the Service that mediates registration,
// credential lookup, and federated-identity upsert.
package identity
