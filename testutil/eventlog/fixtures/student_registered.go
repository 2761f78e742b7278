package fixtures

import (
	jsoniter "github.com/json-iterator/go"

	"github.com/dcbkit/tagged-eventlog-go/eventlog"
)

// StudentRegisteredEventType is the event type identifier.
const StudentRegisteredEventType = "StudentRegistered"

// StudentEntity is the tag entity for students.
const StudentEntity = "student"

// StudentRegisteredPayload is the payload of a StudentRegistered event.
type StudentRegisteredPayload struct {
	StudentID string `json:"studentId"`
	Name      string `json:"name"`
}

// BuildStudentRegistered creates a StudentRegistered event tagged with the student.
func BuildStudentRegistered(studentID string, name string) (eventlog.Event, error) {
	studentTag, tagErr := eventlog.NewTag(StudentEntity, studentID)
	if tagErr != nil {
		return eventlog.Event{}, tagErr
	}

	payload, marshalErr := jsoniter.ConfigFastest.Marshal(StudentRegisteredPayload{
		StudentID: studentID,
		Name:      name,
	})
	if marshalErr != nil {
		return eventlog.Event{}, marshalErr
	}

	return eventlog.BuildEvent(StudentRegisteredEventType, []eventlog.Tag{studentTag}, payload)
}
