package filestore

import (
	"encoding/json"
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"

	"github.com/catbridge/filestorage/store"
)

// Analysis persists the per-project fast-analysis payload as a single
// serialized blob. At most one live record exists per project at a
// time.
type Analysis struct {
	S store.Store
}

// ErrSerialization is returned by Fetch when a record exists but its
// payload cannot be decoded. It is distinct from store.ErrNotFound,
// which Fetch returns when no record exists at all.
var ErrSerialization = errors.New("cannot decode fast-analysis record")

const recordVersion = 1

// Record is the versioned fast-analysis payload for one project.
type Record struct {
	Version   int       `json:"version"`
	ProjectID int64     `json:"project_id"`
	Segments  []Segment `json:"segments"`
}

// Segment is one source segment waiting for analysis.
type Segment struct {
	FileID     int64   `json:"file_id"`
	InternalID string  `json:"internal_id"`
	Text       string  `json:"text"`
	WordCount  float64 `json:"word_count"`
	MatchType  string  `json:"match_type,omitempty"`
}

// analysisKey is the record's blob key for a project.
func analysisKey(projectID int64) string {
	return fmt.Sprintf("%s/waiting_analysis_%d.ser", FastAnalysisFolder, projectID)
}

// Store serializes the segments and uploads them as the project's
// fast-analysis record, replacing any previous one. A store-side
// failure is surfaced to the caller; it is not retried here.
func (a *Analysis) Store(projectID int64, segments []Segment) error {
	value, err := json.Marshal(Record{
		Version:   recordVersion,
		ProjectID: projectID,
		Segments:  segments,
	})
	if err != nil {
		return pkgerrors.Wrap(err, "encoding fast-analysis record")
	}
	if err = a.S.Put(analysisKey(projectID), value); err != nil {
		return pkgerrors.Wrapf(err, "storing segments for fast analysis of project %d", projectID)
	}
	return nil
}

// Fetch downloads and decodes the project's fast-analysis record. An
// absent record is store.ErrNotFound; a record that cannot be decoded
// is ErrSerialization.
func (a *Analysis) Fetch(projectID int64) (Record, error) {
	var record Record
	value, err := a.S.Get(analysisKey(projectID))
	if err != nil {
		return record, err
	}
	if err = json.Unmarshal(value, &record); err != nil {
		return Record{}, ErrSerialization
	}
	return record, nil
}

// Delete removes the project's fast-analysis record. Deleting a record
// that does not exist is not an error.
func (a *Analysis) Delete(projectID int64) error {
	return a.S.Delete(analysisKey(projectID))
}
