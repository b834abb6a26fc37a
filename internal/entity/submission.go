package entity

// SubmissionKind tags the two phases a submitted document can be in.
type SubmissionKind string

const (
	SubmissionPreview   SubmissionKind = "preview"
	SubmissionConfirmed SubmissionKind = "confirmed"
)

// Submission is either a Preview (extracted, not persisted) or a
// Confirmed record returned by the store.
type Submission interface {
	Kind() SubmissionKind
	// Record returns the displayable record. A preview carries the
	// placeholder id and no estado.
	Record() RetentionRecord
}

// Preview is an extracted document that was not written to the store.
type Preview struct {
	Data     RetentionData
	FileName string
	ID       string
}

func (Preview) Kind() SubmissionKind { return SubmissionPreview }

func (p Preview) Record() RetentionRecord {
	return RetentionRecord{RetentionData: p.Data, ID: p.ID, FileName: p.FileName}
}

// Confirmed wraps a record the store has acknowledged.
type Confirmed struct {
	Stored RetentionRecord
}

func (Confirmed) Kind() SubmissionKind { return SubmissionConfirmed }

func (c Confirmed) Record() RetentionRecord { return c.Stored }
