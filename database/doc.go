// Package database provides connection management, versioned migrations
// driven by a model registry, SQL seed files, query logging hooks, health
// checks and SQL error classification on top of Bun.
package database
