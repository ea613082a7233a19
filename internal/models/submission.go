package models

// SubmissionSource identifies how a submission entered the system.
type SubmissionSource string

const (
	SourceEmail  SubmissionSource = "email"
	SourceUpload SubmissionSource = "upload"
)

// Submission is one inbound gradeable artifact. It owns RawBytes until the
// pipeline hands them to the text extractor, and is consumed exactly once.
type Submission struct {
	ArtifactID string
	FileName   string
	Source     SubmissionSource
	ReplyTo    string
	Subject    string
	RubricName string
	RawBytes   []byte
}
