// Package v1 describes the medalarm.v1.AlarmService gRPC API.
//
// Messages are protobuf well-known types (Empty, StringValue, Struct) so the
// service needs no generated code; the field names of each Struct message are
// declared here next to the service descriptor.
package v1
