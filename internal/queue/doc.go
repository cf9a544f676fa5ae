// Package queue persists not-yet-delivered registration requests under
// ~/.mintd/pending, one JSON file per project name. It is the only state in
// mintd that must survive process exit: a registration that could not reach
// the registry lives here until `mintd sync` drains it.
package queue
