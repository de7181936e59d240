// Package cli provides the interactive pocketlend command-line client.
//
// It wires configuration, the local store, the network monitor, the write
// queue and the offline-first pipeline into services, then runs a REPL on
// top of them. Loan commands work offline: reads come from the cache and
// writes are queued and replayed once the API is reachable again.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
