// Package api handles incoming HTTP requests, routing, request validation,
// and response formatting. It acts as an adapter between learners' clients
// and the learning service, translating HTTP concerns to learning
// operations.
package api
