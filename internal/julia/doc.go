// Package julia implements the escape-time kernel for Julia sets and the
// geometry used to split one evaluation region into independent strips.
//
// Every function here is pure: a Region is a plain value, Sweep reads nothing
// but its argument, and Partition derives sub-regions by value. That is what
// lets the engine hand strips to separate workers without sharing state.
//
// # Kernel
//
//	k, escaped := julia.Classify(complex(0.5, 0.5), complex(-1, 0.1))
//
// Classify iterates z = z*z + c up to MaxIterations and reports the first
// iteration at which |z| exceeds EscapeRadius.
//
// # Sampling
//
// Sweep walks a regular grid of step Resolution starting at Min. A column
// (or row) is sampled only when it lies strictly below the region's upper
// bound, so adjacent strips produced by Partition never sample the same
// column twice.
package julia
