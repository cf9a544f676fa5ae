// Package shell wraps the two external CLI collaborators — git and the
// GitHub CLI — behind the Runner interface. The wrappers are deliberately
// thin: they translate non-zero exits into typed ToolError values with
// install or authentication hints, and leave all retry decisions to callers.
package shell
