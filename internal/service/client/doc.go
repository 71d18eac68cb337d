// Package client implements the subcommands that talk to a running daemon
// on behalf of the person taking or supervising the medication: ack and
// pending.
package client
