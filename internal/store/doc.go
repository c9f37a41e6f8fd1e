// Package store defines interfaces for data persistence operations.
// These interfaces abstract the underlying data storage mechanism from
// the learning service, so scheduling rules stay independent of the
// database technology: the content catalog, per-learner progress and
// practice sessions each get their own store.
package store
