package v1

import (
	"time"

	"google.golang.org/protobuf/types/known/structpb"
)

// AlarmState message fields.
const (
	FieldPhase             = "phase"
	FieldEntry             = "entry"
	FieldScheduled         = "scheduled"
	FieldSince             = "since"
	FieldLastActor         = "last_actor"
	FieldFallbackAvailable = "fallback_available"
)

// Entry message fields.
const (
	FieldID             = "id"
	FieldOwnerID        = "owner_id"
	FieldMedicationID   = "medication_id"
	FieldMedicationName = "medication_name"
	FieldDosage         = "dosage"
	FieldKind           = "kind"
	FieldTime           = "time"
	FieldDays           = "days"
	FieldIntervalHours  = "interval_hours"
	FieldActive         = "active"
)

// Actor message fields.
const (
	FieldHostname = "hostname"
	FieldUsername = "username"
)

// Action message fields.
const (
	FieldActionID   = "action_id"
	FieldBackground = "background"
	FieldPayload    = "payload"
	FieldActor      = "actor"
)

// Acknowledge response and PendingDose message fields.
const (
	FieldAcknowledged   = "acknowledged"
	FieldState          = "state"
	FieldNothingPending = "nothing_pending"
	FieldEligible       = "eligible"
	FieldRemaining      = "remaining"
	FieldWindowStart    = "window_start"
	FieldWindowEnd      = "window_end"
)

// Message is a builder for Struct messages.
type Message struct {
	s *structpb.Struct
}

// NewMessage starts an empty message.
func NewMessage() *Message {
	return &Message{s: &structpb.Struct{Fields: make(map[string]*structpb.Value)}}
}

// Text sets a string field; empty strings are omitted.
func (m *Message) Text(key, value string) *Message {
	if value != "" {
		m.s.Fields[key] = structpb.NewStringValue(value)
	}

	return m
}

// Bool sets a boolean field.
func (m *Message) Bool(key string, value bool) *Message {
	m.s.Fields[key] = structpb.NewBoolValue(value)

	return m
}

// Number sets a numeric field.
func (m *Message) Number(key string, value float64) *Message {
	m.s.Fields[key] = structpb.NewNumberValue(value)

	return m
}

// Time sets an RFC 3339 timestamp field; the zero time is omitted.
func (m *Message) Time(key string, value time.Time) *Message {
	if !value.IsZero() {
		m.s.Fields[key] = structpb.NewStringValue(value.Format(time.RFC3339Nano))
	}

	return m
}

// Strings sets a list-of-strings field.
func (m *Message) Strings(key string, values []string) *Message {
	list := make([]*structpb.Value, 0, len(values))
	for _, v := range values {
		list = append(list, structpb.NewStringValue(v))
	}

	m.s.Fields[key] = structpb.NewListValue(&structpb.ListValue{Values: list})

	return m
}

// Struct sets a nested message field; nil is omitted.
func (m *Message) Struct(key string, value *structpb.Struct) *Message {
	if value != nil {
		m.s.Fields[key] = structpb.NewStructValue(value)
	}

	return m
}

// Build returns the underlying Struct.
func (m *Message) Build() *structpb.Struct {
	return m.s
}

// GetString returns a string field or "".
func GetString(s *structpb.Struct, key string) string {
	return s.GetFields()[key].GetStringValue()
}

// GetBool returns a boolean field or false.
func GetBool(s *structpb.Struct, key string) bool {
	return s.GetFields()[key].GetBoolValue()
}

// GetNumber returns a numeric field or 0.
func GetNumber(s *structpb.Struct, key string) float64 {
	return s.GetFields()[key].GetNumberValue()
}

// GetStruct returns a nested message or nil.
func GetStruct(s *structpb.Struct, key string) *structpb.Struct {
	return s.GetFields()[key].GetStructValue()
}

// GetStrings returns a list-of-strings field.
func GetStrings(s *structpb.Struct, key string) []string {
	values := s.GetFields()[key].GetListValue().GetValues()

	result := make([]string, 0, len(values))
	for _, v := range values {
		result = append(result, v.GetStringValue())
	}

	return result
}

// GetTime parses an RFC 3339 timestamp field; missing or malformed yields the zero time.
func GetTime(s *structpb.Struct, key string) time.Time {
	raw := GetString(s, key)
	if raw == "" {
		return time.Time{}
	}

	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}

	return t
}
