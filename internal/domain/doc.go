// Package domain contains the core learning entities and value objects:
// learnable items with their scheduling and mastery state, practice
// sessions, and the per-learner progress snapshot. It also defines the
// error taxonomy shared by the scheduling packages beneath it.
//
// Everything in this package is plain data. The algorithms that read and
// update these records live in the subpackages srs, difficulty, mastery,
// and path, which take records by value and return updated copies.
package domain
