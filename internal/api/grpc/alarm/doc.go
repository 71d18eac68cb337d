// Package alarm implements the gRPC transport of the medication alarm daemon.
//
// Requests and responses are protobuf Struct messages built with the pb/v1
// field names; the server converts them to domain types and calls into a
// provided business-service interface.
package alarm
