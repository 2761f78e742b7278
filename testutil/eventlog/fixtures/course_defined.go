package fixtures

import (
	jsoniter "github.com/json-iterator/go"

	"github.com/dcbkit/tagged-eventlog-go/eventlog"
)

// CourseDefinedEventType is the event type identifier.
const CourseDefinedEventType = "CourseDefined"

// CourseEntity is the tag entity for courses.
const CourseEntity = "course"

// CourseDefinedPayload is the payload of a CourseDefined event.
type CourseDefinedPayload struct {
	CourseID string `json:"courseId"`
	Title    string `json:"title"`
	Capacity int    `json:"capacity"`
}

// BuildCourseDefined creates a CourseDefined event tagged with the course.
func BuildCourseDefined(courseID string, title string, capacity int) (eventlog.Event, error) {
	courseTag, tagErr := eventlog.NewTag(CourseEntity, courseID)
	if tagErr != nil {
		return eventlog.Event{}, tagErr
	}

	payload, marshalErr := jsoniter.ConfigFastest.Marshal(CourseDefinedPayload{
		CourseID: courseID,
		Title:    title,
		Capacity: capacity,
	})
	if marshalErr != nil {
		return eventlog.Event{}, marshalErr
	}

	return eventlog.BuildEvent(CourseDefinedEventType, []eventlog.Tag{courseTag}, payload)
}
