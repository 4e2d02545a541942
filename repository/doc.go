// Package repository provides a generic, session-scoped repository built on
// Bun: validated paging with last-page clamping, registered sort fields,
// eager include paths, and staged writes flushed through a unit of work.
package repository
