// Package commonground is the pure core of the alignment engine: it resolves
// raw answers against a survey definition, reduces them to per-topic means and
// compares two users' topic vectors. Nothing here touches storage.
package commonground
