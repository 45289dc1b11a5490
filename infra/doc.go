// Package infra contains technical adapters such as input file loaders
// and result sinks. These packages should depend only on the
// interfaces defined in the core packages.
package infra
