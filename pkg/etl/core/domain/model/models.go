package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	logger "github.com/tigerroll/undertow/pkg/etl/support/util/logger"
)

// JobType identifies the worker implementation that executes a job.
// The set of job types is closed: every type must be registered explicitly
// with the worker registry at process start.
type JobType string

const (
	JobTypeCSVImport  JobType = "csv_import"
	JobTypeJSONImport JobType = "json_import"
	JobTypeDataLoad   JobType = "data_load"
	JobTypeKGBuild    JobType = "kg_build"
	JobTypeAPIImport  JobType = "api_import"
)

// String returns the string representation of the JobType.
func (t JobType) String() string {
	return string(t)
}

// JobStatus represents the state of a job or of a single run.
type JobStatus string

const (
	JobStatusPending   JobStatus = "PENDING"
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusCompleted JobStatus = "COMPLETED"
	JobStatusFailed    JobStatus = "FAILED"
)

// String returns the string representation of the JobStatus.
func (s JobStatus) String() string {
	return string(s)
}

// IsFinished checks if the JobStatus represents a terminal state.
func (s JobStatus) IsFinished() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// WriteMode controls how rows are written to a relational destination table.
type WriteMode string

const (
	WriteModeInsert  WriteMode = "insert"
	WriteModeUpsert  WriteMode = "upsert"
	WriteModeReplace WriteMode = "replace"
)

// SourceKind tags the SourceConfig variant.
type SourceKind string

const (
	SourceKindInline   SourceKind = "inline"
	SourceKindRemote   SourceKind = "remote"
	SourceKindDatabase SourceKind = "database"
)

// InlineSource carries the raw content of an uploaded document.
type InlineSource struct {
	// Content is the raw payload (CSV text, JSON text, ...).
	Content string `yaml:"content" mapstructure:"content"`
}

// RemoteSource describes an HTTP endpoint to fetch the payload from.
type RemoteSource struct {
	URL     string            `yaml:"url" mapstructure:"url"`
	Method  string            `yaml:"method" mapstructure:"method"`
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`
	Body    string            `yaml:"body" mapstructure:"body"`
}

// DatabaseSource describes a database connection plus the query producing the dataset.
type DatabaseSource struct {
	Driver string `yaml:"driver" mapstructure:"driver"`
	DSN    string `yaml:"dsn" mapstructure:"dsn"`
	Query  string `yaml:"query" mapstructure:"query"`
}

// SourceConfig is the tagged variant describing where a job's input comes from.
// Exactly one of Inline, Remote, Database is set, selected by Kind.
type SourceConfig struct {
	Kind SourceKind `yaml:"kind" mapstructure:"kind"`
	// Format hints the payload format ("csv" or "json"). Workers may infer it
	// from the job type when empty.
	Format   string          `yaml:"format" mapstructure:"format"`
	Inline   *InlineSource   `yaml:"inline,omitempty" mapstructure:"inline"`
	Remote   *RemoteSource   `yaml:"remote,omitempty" mapstructure:"remote"`
	Database *DatabaseSource `yaml:"database,omitempty" mapstructure:"database"`
}

// Validate checks that the variant selected by Kind is actually populated.
func (sc SourceConfig) Validate() error {
	switch sc.Kind {
	case SourceKindInline:
		if sc.Inline == nil {
			return fmt.Errorf("source kind %q requires an inline section", sc.Kind)
		}
	case SourceKindRemote:
		if sc.Remote == nil || sc.Remote.URL == "" {
			return fmt.Errorf("source kind %q requires a remote section with a url", sc.Kind)
		}
	case SourceKindDatabase:
		if sc.Database == nil || sc.Database.Query == "" {
			return fmt.Errorf("source kind %q requires a database section with a query", sc.Kind)
		}
	default:
		return fmt.Errorf("unknown source kind %q", sc.Kind)
	}
	return nil
}

// TargetKind tags the StorageTargetConfig variant.
type TargetKind string

const (
	TargetKindSQLTable    TargetKind = "sql_table"
	TargetKindVectorStore TargetKind = "vector_store"
	TargetKindSearchIndex TargetKind = "search_index"
	TargetKindParquetFile TargetKind = "parquet_file"
)

// SQLTableTarget configures a relational destination table.
type SQLTableTarget struct {
	TableName string    `yaml:"table_name" mapstructure:"table_name"`
	Mode      WriteMode `yaml:"mode" mapstructure:"mode"`
	KeyColumn string    `yaml:"key_column" mapstructure:"key_column"`
}

// VectorStoreTarget configures a vector index destination.
type VectorStoreTarget struct {
	IndexName        string   `yaml:"index_name" mapstructure:"index_name"`
	EmbeddingColumns []string `yaml:"embedding_columns" mapstructure:"embedding_columns"`
	// ChunkSize is the maximum number of characters per embedded chunk. 0 disables chunking.
	ChunkSize int `yaml:"chunk_size" mapstructure:"chunk_size"`
	// ChunkOverlap is the number of characters shared between adjacent chunks.
	ChunkOverlap int `yaml:"chunk_overlap" mapstructure:"chunk_overlap"`
}

// SearchIndexTarget configures a full-text/semantic search destination.
type SearchIndexTarget struct {
	IndexName        string   `yaml:"index_name" mapstructure:"index_name"`
	EmbeddingColumns []string `yaml:"embedding_columns" mapstructure:"embedding_columns"`
	// Semantic holds provider-specific semantic configuration, passed through opaquely.
	Semantic map[string]interface{} `yaml:"semantic" mapstructure:"semantic"`
}

// ParquetFileTarget configures a local Parquet file export destination.
type ParquetFileTarget struct {
	Path        string `yaml:"path" mapstructure:"path"`
	Compression string `yaml:"compression" mapstructure:"compression"`
}

// StorageTargetConfig is the tagged variant describing one storage destination.
// Each target is independently addressable and independently fails.
type StorageTargetConfig struct {
	Kind    TargetKind         `yaml:"kind" mapstructure:"kind"`
	SQL     *SQLTableTarget    `yaml:"sql,omitempty" mapstructure:"sql"`
	Vector  *VectorStoreTarget `yaml:"vector,omitempty" mapstructure:"vector"`
	Search  *SearchIndexTarget `yaml:"search,omitempty" mapstructure:"search"`
	Parquet *ParquetFileTarget `yaml:"parquet,omitempty" mapstructure:"parquet"`
}

// Name returns a human-readable identifier for the destination, used in
// per-target reports and logs.
func (tc StorageTargetConfig) Name() string {
	switch tc.Kind {
	case TargetKindSQLTable:
		if tc.SQL != nil {
			return fmt.Sprintf("sql_table:%s", tc.SQL.TableName)
		}
	case TargetKindVectorStore:
		if tc.Vector != nil {
			return fmt.Sprintf("vector_store:%s", tc.Vector.IndexName)
		}
	case TargetKindSearchIndex:
		if tc.Search != nil {
			return fmt.Sprintf("search_index:%s", tc.Search.IndexName)
		}
	case TargetKindParquetFile:
		if tc.Parquet != nil {
			return fmt.Sprintf("parquet_file:%s", tc.Parquet.Path)
		}
	}
	return string(tc.Kind)
}

// TargetConfig describes where a job writes. It is either the legacy
// single-destination form (Table/Mode/KeyColumn) or the multi-target form
// (Targets). Normalize folds the legacy form into the multi-target one.
type TargetConfig struct {
	// Legacy single-destination form.
	Table     string    `yaml:"table,omitempty" mapstructure:"table"`
	Mode      WriteMode `yaml:"mode,omitempty" mapstructure:"mode"`
	KeyColumn string    `yaml:"key_column,omitempty" mapstructure:"key_column"`

	// Multi-target form.
	Targets []StorageTargetConfig `yaml:"targets,omitempty" mapstructure:"targets"`
}

// Normalize returns the list of storage targets for this configuration,
// folding the legacy single-table form into a one-element sql_table list.
func (tc TargetConfig) Normalize() []StorageTargetConfig {
	if len(tc.Targets) > 0 {
		return tc.Targets
	}
	if tc.Table == "" {
		return nil
	}
	mode := tc.Mode
	if mode == "" {
		mode = WriteModeInsert
	}
	return []StorageTargetConfig{{
		Kind: TargetKindSQLTable,
		SQL: &SQLTableTarget{
			TableName: tc.Table,
			Mode:      mode,
			KeyColumn: tc.KeyColumn,
		},
	}}
}

// TransformConfig carries optional worker-specific transformation options.
type TransformConfig struct {
	Options map[string]interface{} `yaml:"options" mapstructure:"options"`
}

// JobDefinition is the submission payload for one unit of ingestion work.
// It is immutable once a run starts.
type JobDefinition struct {
	JobType   JobType          `yaml:"job_type" mapstructure:"job_type"`
	Name      string           `yaml:"name" mapstructure:"name"`
	Source    SourceConfig     `yaml:"source" mapstructure:"source"`
	Target    TargetConfig     `yaml:"target" mapstructure:"target"`
	Transform *TransformConfig `yaml:"transform,omitempty" mapstructure:"transform"`
	Schedule  string           `yaml:"schedule,omitempty" mapstructure:"schedule"`
}

// Pattern returns the knowledge-record pattern key for this definition.
func (d JobDefinition) Pattern() string {
	return fmt.Sprintf("%s:%s", d.JobType, d.Name)
}

// Validate checks the definition for structural completeness.
func (d JobDefinition) Validate() error {
	if d.JobType == "" {
		return fmt.Errorf("job definition requires a job_type")
	}
	if d.Name == "" {
		return fmt.Errorf("job definition requires a name")
	}
	return d.Source.Validate()
}

// Job is the durable record of a job definition plus its lifecycle status.
type Job struct {
	ID          string
	Definition  JobDefinition
	Status      JobStatus
	CreateTime  time.Time
	LastUpdated time.Time
	Version     int
}

// NewJob creates a pending Job from a definition.
func NewJob(def JobDefinition) *Job {
	now := time.Now()
	return &Job{
		ID:          NewID(),
		Definition:  def,
		Status:      JobStatusPending,
		CreateTime:  now,
		LastUpdated: now,
	}
}

// isValidJobTransition checks if the state transition for a Job is valid.
func isValidJobTransition(current, next JobStatus) bool {
	switch current {
	case JobStatusPending:
		return next == JobStatusRunning || next == JobStatusFailed
	case JobStatusRunning:
		return next == JobStatusCompleted || next == JobStatusFailed
	case JobStatusCompleted, JobStatusFailed:
		// A completed or failed job may be re-executed.
		return next == JobStatusRunning
	default:
		return false
	}
}

// TransitionTo safely transitions the status of the Job.
func (j *Job) TransitionTo(next JobStatus) error {
	if !isValidJobTransition(j.Status, next) {
		return fmt.Errorf("Job (ID: %s): invalid state transition: %s -> %s", j.ID, j.Status, next)
	}
	j.Status = next
	j.LastUpdated = time.Now()
	return nil
}

// MarkAsRunning updates the Job status to RUNNING.
func (j *Job) MarkAsRunning() {
	if err := j.TransitionTo(JobStatusRunning); err != nil {
		logger.Warnf("Could not update Job (ID: %s) status to RUNNING: %v", j.ID, err)
		j.Status = JobStatusRunning
		j.LastUpdated = time.Now()
	}
}

// MarkAsCompleted updates the Job status to COMPLETED.
func (j *Job) MarkAsCompleted() {
	if err := j.TransitionTo(JobStatusCompleted); err != nil {
		logger.Warnf("Could not update Job (ID: %s) status to COMPLETED: %v", j.ID, err)
		j.Status = JobStatusCompleted
		j.LastUpdated = time.Now()
	}
}

// MarkAsFailed updates the Job status to FAILED.
func (j *Job) MarkAsFailed() {
	if err := j.TransitionTo(JobStatusFailed); err != nil {
		logger.Warnf("Could not update Job (ID: %s) status to FAILED: %v", j.ID, err)
		j.Status = JobStatusFailed
		j.LastUpdated = time.Now()
	}
}

// ExecutionMetrics aggregates the record counters of one action.
type ExecutionMetrics struct {
	RecordsProcessed int   `json:"recordsProcessed"`
	RecordsFailed    int   `json:"recordsFailed"`
	DurationMs       int64 `json:"durationMs"`
}

// Total returns the total number of records accounted for.
func (m ExecutionMetrics) Total() int {
	return m.RecordsProcessed + m.RecordsFailed
}

// SuccessRate returns the fraction of records processed successfully.
// An empty action (no records at all) counts as fully successful.
func (m ExecutionMetrics) SuccessRate() float64 {
	total := m.Total()
	if total == 0 {
		return 1.0
	}
	return float64(m.RecordsProcessed) / float64(total)
}

// StringList is a JSON-persisted list of strings (improvement notes).
type StringList []string

// Value implements driver.Valuer, converting the list to a JSON string.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner, converting a JSON string to a StringList.
func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = make(StringList, 0)
		return nil
	}
	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("unsupported Scan type for StringList: %T", value)
	}
	if len(b) == 0 {
		*l = make(StringList, 0)
		return nil
	}
	if err := json.Unmarshal(b, l); err != nil {
		return fmt.Errorf("failed to unmarshal StringList JSON: %w", err)
	}
	return nil
}

// JobRun is the durable record of one execution attempt of a job.
type JobRun struct {
	ID               string
	JobID            string
	Status           JobStatus
	StartTime        time.Time
	EndTime          *time.Time
	RecordsProcessed int
	RecordsFailed    int
	Errors           ETLErrorList
	PARIterations    int
	Improvements     StringList
	LastUpdated      time.Time
	Version          int
}

// NewJobRun creates a running JobRun for the specified job.
func NewJobRun(jobID string) *JobRun {
	now := time.Now()
	return &JobRun{
		ID:           NewID(),
		JobID:        jobID,
		Status:       JobStatusRunning,
		StartTime:    now,
		Errors:       make(ETLErrorList, 0),
		Improvements: make(StringList, 0),
		LastUpdated:  now,
	}
}

// MarkAsCompleted finalizes the run as COMPLETED.
func (r *JobRun) MarkAsCompleted() {
	now := time.Now()
	r.Status = JobStatusCompleted
	r.EndTime = &now
	r.LastUpdated = now
}

// MarkAsFailed finalizes the run as FAILED.
func (r *JobRun) MarkAsFailed() {
	now := time.Now()
	r.Status = JobStatusFailed
	r.EndTime = &now
	r.LastUpdated = now
}

// Duration returns the elapsed wall-clock time of the run.
func (r *JobRun) Duration() time.Duration {
	if r.EndTime == nil {
		return time.Since(r.StartTime)
	}
	return r.EndTime.Sub(r.StartTime)
}

// Result converts the run record into the caller-facing JobRunResult.
func (r *JobRun) Result() *JobRunResult {
	return &JobRunResult{
		JobID:                 r.JobID,
		RunID:                 r.ID,
		Status:                r.Status,
		StartedAt:             r.StartTime,
		CompletedAt:           r.EndTime,
		RecordsProcessed:      r.RecordsProcessed,
		RecordsFailed:         r.RecordsFailed,
		Errors:                append([]ETLError(nil), r.Errors...),
		PARIterations:         r.PARIterations,
		ReflexionImprovements: append([]string(nil), r.Improvements...),
		Metrics: ExecutionMetrics{
			RecordsProcessed: r.RecordsProcessed,
			RecordsFailed:    r.RecordsFailed,
			DurationMs:       r.Duration().Milliseconds(),
		},
	}
}

// JobRunResult is the execution outcome returned to callers.
type JobRunResult struct {
	JobID                 string           `json:"jobId"`
	RunID                 string           `json:"runId"`
	Status                JobStatus        `json:"status"`
	StartedAt             time.Time        `json:"startedAt"`
	CompletedAt           *time.Time       `json:"completedAt,omitempty"`
	RecordsProcessed      int              `json:"recordsProcessed"`
	RecordsFailed         int              `json:"recordsFailed"`
	Errors                []ETLError       `json:"errors"`
	PARIterations         int              `json:"parIterations"`
	ReflexionImprovements []string         `json:"reflexionImprovements"`
	Metrics               ExecutionMetrics `json:"metrics"`
}

// FirstErrorMessage returns the first recorded error message, or "" when the
// run recorded no errors. This is the user-visible failure summary.
func (res *JobRunResult) FirstErrorMessage() string {
	if len(res.Errors) == 0 {
		return ""
	}
	return res.Errors[0].Message
}

// NewID generates a new UUID string.
func NewID() string {
	return uuid.New().String()
}
