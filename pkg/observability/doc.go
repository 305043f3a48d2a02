/*
Package observability provides tools for monitoring experiment runs.

It includes Prometheus collectors and structured logging, both packaged as
run hooks so they can be attached to a Dish individually or joined with
domain.JoinHooks.
*/
package observability
