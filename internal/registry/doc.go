// Package registry implements the registration coordinator: the state
// machine that turns project metadata into a catalog entry on a dedicated
// register-{name} branch with a pull request against the registry default
// branch. Delivery is at-least-once: every transient failure lands the
// request in the durable pending queue, and `mintd sync` replays it through
// the same path. Only naming conflicts stop the pipeline, because they need
// a human decision.
package registry
