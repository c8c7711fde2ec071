// Package lifecycle applies worker status callbacks to the record store and
// serves the sanitized read view.
//
// Every operation is a single load, mutate, save cycle with no cross-request
// locking. Callbacks for different workers touch disjoint keys, but two
// concurrent callbacks for the same worker race and the later save wins.
package lifecycle
