package driven

import "context"

// IngestionJob is one staged file handed to the pipeline.
type IngestionJob struct {
	ProjectID   string
	DisplayName string
	BlobKey     string
}

// IngestionPipeline submits jobs to the downstream ingestion service.
// The pipeline reports completion asynchronously through the callback.
type IngestionPipeline interface {
	// Submit enqueues a job. A non-success response fails with
	// domain.ErrSubmissionRejected.
	Submit(ctx context.Context, job IngestionJob) error
}
