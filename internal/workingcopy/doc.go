// Package workingcopy maintains the single shared local clone of the
// registry repository at ~/.mintd/registry-repo. An exclusive file lock next
// to the clone is the sole serialization point between concurrent mintd
// invocations; every registration attempt, live or replayed from the pending
// queue, must hold it before touching the clone.
package workingcopy
