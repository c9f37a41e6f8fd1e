// Package events carries learning events between the learning service and
// interested components such as logging and metrics.
//
// Services emit LearningEvent values through an EventEmitter without
// knowing which handlers consume them. Handler failures never roll back
// the operation that produced the event.
package events
