// Package common holds helpers shared by the client subcommands.
//
// It provides a lightweight gRPC client wrapper with timeouts and utilities to
// detect the current system actor (hostname/username) for the dose audit trail.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
