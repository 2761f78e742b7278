package fixtures

import (
	jsoniter "github.com/json-iterator/go"

	"github.com/dcbkit/tagged-eventlog-go/eventlog"
)

// StudentSubscribedToCourseEventType is the event type identifier.
const StudentSubscribedToCourseEventType = "StudentSubscribedToCourse"

// StudentSubscribedToCoursePayload is the payload of a StudentSubscribedToCourse event.
type StudentSubscribedToCoursePayload struct {
	StudentID string `json:"studentId"`
	CourseID  string `json:"courseId"`
}

// BuildStudentSubscribedToCourse creates a StudentSubscribedToCourse event
// tagged with both the student and the course. The event belongs to the
// history of both entities.
func BuildStudentSubscribedToCourse(studentID string, courseID string) (eventlog.Event, error) {
	studentTag, studentTagErr := eventlog.NewTag(StudentEntity, studentID)
	if studentTagErr != nil {
		return eventlog.Event{}, studentTagErr
	}

	courseTag, courseTagErr := eventlog.NewTag(CourseEntity, courseID)
	if courseTagErr != nil {
		return eventlog.Event{}, courseTagErr
	}

	payload, marshalErr := jsoniter.ConfigFastest.Marshal(StudentSubscribedToCoursePayload{
		StudentID: studentID,
		CourseID:  courseID,
	})
	if marshalErr != nil {
		return eventlog.Event{}, marshalErr
	}

	return eventlog.BuildEvent(
		StudentSubscribedToCourseEventType,
		[]eventlog.Tag{studentTag, courseTag},
		payload,
	)
}
