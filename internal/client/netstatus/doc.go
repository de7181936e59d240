// Package netstatus tracks whether the remote API is reachable.
//
// A Monitor holds the last observed connectivity state and a registry of
// listeners. It is constructed explicitly, initialised once with Init and
// torn down with Shutdown; consumers get it by injection. Observations come
// from a Probe polled in the background while anyone is subscribed, and
// from Report for platform-level connectivity callbacks.
package netstatus
