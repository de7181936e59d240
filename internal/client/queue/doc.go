// Package queue holds writes made while the remote API was unreachable
// and replays them, strictly in enqueue order, once it is reachable again.
//
// Entries live in the write_queue table and are only removed after the
// server confirmed them or definitively rejected them. Replay stops at the
// first network-class failure so a later write never overtakes an earlier
// one it may depend on.
package queue
