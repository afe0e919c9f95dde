package sql

import (
	"time"

	model "github.com/tigerroll/undertow/pkg/etl/core/domain/model"
)

// jobEntity is the persistence schema for Job. The definition is stored as a
// JSON document so schema migrations are not needed when job configuration
// grows new fields.
type jobEntity struct {
	ID             string `gorm:"primaryKey"`
	JobType        string
	Name           string
	DefinitionJSON string `gorm:"column:definition_json"`
	Status         string
	CreateTime     time.Time
	LastUpdated    time.Time
	Version        int
}

func (jobEntity) TableName() string {
	return "etl_job"
}

// jobRunEntity is the persistence schema for JobRun.
type jobRunEntity struct {
	ID               string `gorm:"primaryKey"`
	JobID            string `gorm:"index"`
	Status           string
	StartTime        time.Time
	EndTime          *time.Time
	RecordsProcessed int
	RecordsFailed    int
	Errors           model.ETLErrorList `gorm:"type:text"`
	PARIterations    int                `gorm:"column:par_iterations"`
	Improvements     model.StringList   `gorm:"type:text"`
	LastUpdated      time.Time
	Version          int
}

func (jobRunEntity) TableName() string {
	return "etl_job_run"
}

// knowledgeEntity is the persistence schema for the append-only knowledge log.
type knowledgeEntity struct {
	ID             string `gorm:"primaryKey"`
	Pattern        string `gorm:"index"`
	LessonsLearned string
	SuccessRate    float64
	CreateTime     time.Time
}

func (knowledgeEntity) TableName() string {
	return "etl_knowledge"
}
