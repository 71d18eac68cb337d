package v1

import (
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/med-alarm/internal/domain/alarm"
	"github.com/oshokin/med-alarm/internal/domain/schedule"
)

// EncodeActor converts an actor to an Actor message; nil stays nil.
func EncodeActor(actor *alarm.Actor) *structpb.Struct {
	if actor == nil {
		return nil
	}

	return NewMessage().
		Text(FieldHostname, actor.Hostname).
		Text(FieldUsername, actor.Username).
		Build()
}

// DecodeActor converts an Actor message; nil or empty yields nil.
func DecodeActor(s *structpb.Struct) *alarm.Actor {
	if len(s.GetFields()) == 0 {
		return nil
	}

	return &alarm.Actor{
		Hostname: GetString(s, FieldHostname),
		Username: GetString(s, FieldUsername),
	}
}

// EncodeEntry converts a schedule entry to an Entry message; nil stays nil.
func EncodeEntry(entry *schedule.Entry) *structpb.Struct {
	if entry == nil {
		return nil
	}

	return NewMessage().
		Text(FieldID, entry.ID).
		Text(FieldOwnerID, entry.OwnerID).
		Text(FieldMedicationID, entry.MedicationID).
		Text(FieldMedicationName, entry.MedicationName).
		Text(FieldDosage, entry.Dosage).
		Text(FieldKind, string(entry.EffectiveKind())).
		Text(FieldTime, entry.TimeOfDay.String()).
		Strings(FieldDays, entry.Days.Codes()).
		Number(FieldIntervalHours, float64(entry.IntervalHours)).
		Bool(FieldActive, entry.Active).
		Build()
}

// DecodeEntry converts an Entry message. Malformed time or day codes are
// left at their zero values.
func DecodeEntry(s *structpb.Struct) *schedule.Entry {
	if s == nil {
		return nil
	}

	entry := &schedule.Entry{
		ID:             GetString(s, FieldID),
		OwnerID:        GetString(s, FieldOwnerID),
		MedicationID:   GetString(s, FieldMedicationID),
		MedicationName: GetString(s, FieldMedicationName),
		Dosage:         GetString(s, FieldDosage),
		Kind:           schedule.Kind(GetString(s, FieldKind)),
		IntervalHours:  int(GetNumber(s, FieldIntervalHours)),
		Active:         GetBool(s, FieldActive),
	}

	if clock, err := schedule.ParseClock(GetString(s, FieldTime)); err == nil {
		entry.TimeOfDay = clock
	}

	if days, err := schedule.ParseWeekdays(GetStrings(s, FieldDays)); err == nil {
		entry.Days = days
	}

	return entry
}

// EncodeState converts an alarm state to an AlarmState message.
func EncodeState(state *alarm.State) *Message {
	if state == nil {
		return NewMessage().Text(FieldPhase, string(alarm.PhaseIdle))
	}

	phase := state.Phase
	if phase == "" {
		phase = alarm.PhaseIdle
	}

	return NewMessage().
		Text(FieldPhase, string(phase)).
		Struct(FieldEntry, EncodeEntry(state.Current)).
		Time(FieldScheduled, state.Scheduled).
		Time(FieldSince, state.Since).
		Struct(FieldLastActor, EncodeActor(state.LastActor))
}

// DecodeState converts an AlarmState message.
func DecodeState(s *structpb.Struct) *alarm.State {
	phase := alarm.Phase(GetString(s, FieldPhase))
	if phase == "" {
		phase = alarm.PhaseIdle
	}

	return &alarm.State{
		Phase:     phase,
		Current:   DecodeEntry(GetStruct(s, FieldEntry)),
		Scheduled: GetTime(s, FieldScheduled),
		Since:     GetTime(s, FieldSince),
		LastActor: DecodeActor(GetStruct(s, FieldLastActor)),
	}
}
