package models

// SequenceName identifies a named identifier sequence.
type SequenceName string

const (
	SequenceOrder     SequenceName = "order"
	SequenceCustomJob SequenceName = "customJob"
)
