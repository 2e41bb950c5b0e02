// Package feed broadcasts vote-count changes to connected websocket
// subscribers. It is a one-way ticker: clients subscribe and receive
// events, they never send domain traffic upstream.
package feed
