package model

import "time"

// NeutralSuccessRate is recorded with every knowledge entry. Knowledge is
// descriptive, not a score: entries never bias future runs automatically.
const NeutralSuccessRate = 0.5

// KnowledgeRecord is an append-only lesson captured after a reflection.
// Pattern groups lessons by jobType:name. Records are consulted by workers on
// a best-effort basis only, never automatically by the engine.
type KnowledgeRecord struct {
	ID             string
	Pattern        string
	LessonsLearned string
	SuccessRate    float64
	CreateTime     time.Time
}

// NewKnowledgeRecord creates a knowledge record for the given pattern.
func NewKnowledgeRecord(pattern, lesson string) *KnowledgeRecord {
	return &KnowledgeRecord{
		ID:             NewID(),
		Pattern:        pattern,
		LessonsLearned: lesson,
		SuccessRate:    NeutralSuccessRate,
		CreateTime:     time.Now(),
	}
}
