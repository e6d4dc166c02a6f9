package amqp

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// ReportGeneratedMessage announces a stored run. The worker loads the run
// summary from history by id.
type ReportGeneratedMessage struct {
	RunID     string    `json:"run_id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewReportGeneratedMessage(runID string) *ReportGeneratedMessage {
	return &ReportGeneratedMessage{RunID: runID, Timestamp: time.Now()}
}

func (m *ReportGeneratedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ReportGeneratedMessageFromJSON(data []byte) (*ReportGeneratedMessage, error) {
	var msg ReportGeneratedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if strings.TrimSpace(msg.RunID) == "" {
		return nil, errors.New("message without run_id")
	}
	return &msg, nil
}
