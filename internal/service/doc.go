// Package service contains the learning use cases. It loads a learner's
// catalog, progress and sessions from the stores in internal/store, runs the
// scheduling core from internal/domain over them, persists the results and
// emits learning events.
//
// Write operations run in one database transaction that row-locks the
// learner's progress header, so concurrent requests for the same learner
// are applied one after the other. Read operations take no locks.
//
// Errors in the domain.ErrInvalidArgument and domain.ErrNotFound categories
// are returned unchanged so the API layer can classify them; any other
// failure is wrapped in a LearningServiceError.
package service
