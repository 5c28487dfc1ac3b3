// Package model builds hierarchical probability models as explicit graphs.
//
// A Model is an ordered set of named random variables. Each variable has a distribution
// family, a shape, and optionally observed data. Distribution parameters are expressions
// over earlier variables, so declaration order is a topological order and the graph is
// always acyclic:
//
//	m := model.New()
//	slope := m.Flat("slope", tensor.Shape{d})
//	tau := m.HalfFlat("tau", tensor.Shape{d})
//	mu := m.Normal("mu", model.Const(tensor.Scalar(0)), tau, tensor.Shape{d})
//	...
//	compiled, err := m.Compile()
//
// Compile turns the declaration into a differentiable log density over an unconstrained
// parameter vector. That is the contract the sampler consumes. Half-flat variables are
// sampled on the log scale, and the log-Jacobian is included. A latent Normal whose only
// use is the mean of one observed Normal is integrated out analytically. It is then
// redrawn from its exact conditional for every posterior draw, so it still appears in the
// trace.
//
// Declaration errors are sticky: declaring methods always return a usable expression, and
// the first error is reported by Err and Compile.
package model
