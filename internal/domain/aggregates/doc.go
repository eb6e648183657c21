// Package aggregates defines the write boundaries of the Common Ground engine.
//
// Each contract names a unit of work whose invariants must hold atomically
// (survey submission, group provisioning, survey publication). The contracts
// carry no persistence details; internal/data/aggregates implements them.
package aggregates
