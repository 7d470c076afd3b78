// Package edgegen turns a normalized nginx configuration model into source
// code for edge execution targets.
//
// Four sibling generators share one matching engine (host and path condition
// synthesis, location ordering, action planning) and differ in boilerplate,
// action emission syntax and capability checks. Every generator is a pure
// two-phase function over an immutable config: Validate collects all errors
// and warnings exhaustively, Generate refuses with one aggregate error when
// any validation error exists and otherwise returns byte-stable source text.
package edgegen
