package amqp

import (
	"encoding/json"
	"time"
)

// Import kinds carried in ImportCompletedMessage.Kind.
const (
	KindExpenditures = "expenditures"
	KindTimecards    = "timecards"
)

// ImportCompletedMessage announces a finished spreadsheet import. It carries
// only counters and the touched project ids; consumers fetch whatever detail
// they need from the database.
type ImportCompletedMessage struct {
	Kind           string    `json:"kind"`
	FilesSeen      int       `json:"files_seen"`
	RecordsCreated int       `json:"records_created"`
	ProjectIDs     []int64   `json:"project_ids"`
	Timestamp      time.Time `json:"timestamp"`
}

func NewImportCompletedMessage(kind string, filesSeen, recordsCreated int, projectIDs []int64) *ImportCompletedMessage {
	return &ImportCompletedMessage{
		Kind:           kind,
		FilesSeen:      filesSeen,
		RecordsCreated: recordsCreated,
		ProjectIDs:     projectIDs,
		Timestamp:      time.Now(),
	}
}

func (m *ImportCompletedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ImportCompletedMessageFromJSON(data []byte) (*ImportCompletedMessage, error) {
	var msg ImportCompletedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
