// Package api handles incoming HTTP requests, request validation, and
// response formatting for task submission and status reporting. It acts as
// an adapter between external clients and the scheduler, translating HTTP
// concerns to task operations.
package api
