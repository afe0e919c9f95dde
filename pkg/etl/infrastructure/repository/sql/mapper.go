package sql

import (
	"encoding/json"
	"fmt"

	model "github.com/tigerroll/undertow/pkg/etl/core/domain/model"
)

func fromDomainJob(job *model.Job) (*jobEntity, error) {
	defJSON, err := json.Marshal(job.Definition)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job definition: %w", err)
	}
	return &jobEntity{
		ID:             job.ID,
		JobType:        string(job.Definition.JobType),
		Name:           job.Definition.Name,
		DefinitionJSON: string(defJSON),
		Status:         string(job.Status),
		CreateTime:     job.CreateTime,
		LastUpdated:    job.LastUpdated,
		Version:        job.Version,
	}, nil
}

func toDomainJob(e *jobEntity) (*model.Job, error) {
	var def model.JobDefinition
	if err := json.Unmarshal([]byte(e.DefinitionJSON), &def); err != nil {
		return nil, fmt.Errorf("failed to unmarshal definition of job %s: %w", e.ID, err)
	}
	return &model.Job{
		ID:          e.ID,
		Definition:  def,
		Status:      model.JobStatus(e.Status),
		CreateTime:  e.CreateTime,
		LastUpdated: e.LastUpdated,
		Version:     e.Version,
	}, nil
}

func fromDomainJobRun(run *model.JobRun) *jobRunEntity {
	return &jobRunEntity{
		ID:               run.ID,
		JobID:            run.JobID,
		Status:           string(run.Status),
		StartTime:        run.StartTime,
		EndTime:          run.EndTime,
		RecordsProcessed: run.RecordsProcessed,
		RecordsFailed:    run.RecordsFailed,
		Errors:           run.Errors,
		PARIterations:    run.PARIterations,
		Improvements:     run.Improvements,
		LastUpdated:      run.LastUpdated,
		Version:          run.Version,
	}
}

func toDomainJobRun(e *jobRunEntity) *model.JobRun {
	return &model.JobRun{
		ID:               e.ID,
		JobID:            e.JobID,
		Status:           model.JobStatus(e.Status),
		StartTime:        e.StartTime,
		EndTime:          e.EndTime,
		RecordsProcessed: e.RecordsProcessed,
		RecordsFailed:    e.RecordsFailed,
		Errors:           e.Errors,
		PARIterations:    e.PARIterations,
		Improvements:     e.Improvements,
		LastUpdated:      e.LastUpdated,
		Version:          e.Version,
	}
}

func fromDomainKnowledge(record *model.KnowledgeRecord) *knowledgeEntity {
	return &knowledgeEntity{
		ID:             record.ID,
		Pattern:        record.Pattern,
		LessonsLearned: record.LessonsLearned,
		SuccessRate:    record.SuccessRate,
		CreateTime:     record.CreateTime,
	}
}

func toDomainKnowledge(e *knowledgeEntity) *model.KnowledgeRecord {
	return &model.KnowledgeRecord{
		ID:             e.ID,
		Pattern:        e.Pattern,
		LessonsLearned: e.LessonsLearned,
		SuccessRate:    e.SuccessRate,
		CreateTime:     e.CreateTime,
	}
}
