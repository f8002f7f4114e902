package gradereview

import (
	"fmt"
	"net/url"
	"path"
	"strconv"
	"time"
)

const EventCommentDeleted = "\\assignsubmission_gradereviews\\event\\comment_deleted"

// Event is the immutable record of something that happened to a grade review.
type Event struct {
	Name              string
	UserID            int
	ObjectID          int
	ContextID         int
	ContextInstanceID int // course module id
	Other             map[string]interface{}
	TimeCreated       time.Time
}

// Triggerable is an event ready to be logged.
type Triggerable interface {
	Record() Event
	URL(hostURL string) *url.URL
	Description() string
}

// EventSink receives triggered events. Implemented by the event services.
type EventSink interface {
	Trigger(ev Triggerable)
}

// CommentDeleted is triggered once a grade review has been deleted.
type CommentDeleted struct {
	Event
}

// NewCommentDeleted builds the event for cmt, deleted by viewer in course module cmID.
func NewCommentDeleted(viewer Viewer, cmt Comment, cmID int) CommentDeleted {
	return CommentDeleted{Event{
		Name:              EventCommentDeleted,
		UserID:            viewer.ID,
		ObjectID:          cmt.ID,
		ContextID:         cmt.ContextID,
		ContextInstanceID: cmID,
		Other:             map[string]interface{}{"itemid": cmt.ItemID},
		TimeCreated:       time.Now().UTC(),
	}}
}

var _ Triggerable = CommentDeleted{} // interface compliance check

func (ev CommentDeleted) Record() Event { return ev.Event }

// URL returns the assignment page the event relates to.
func (ev CommentDeleted) URL(hostURL string) *url.URL {
	return AssignmentURL(hostURL, ev.ContextInstanceID)
}

// AssignmentURL returns the host page of the assignment with course module id cmID.
func AssignmentURL(hostURL string, cmID int) *url.URL {
	u, err := url.Parse(hostURL)
	if err != nil {
		u = &url.URL{}
	}
	u.Path = path.Join("/", u.Path, "mod/assign/view.php")
	u.RawQuery = url.Values{"id": {strconv.Itoa(cmID)}}.Encode()
	return u
}

// Description returns a non-localised description of what happened.
func (ev CommentDeleted) Description() string {
	return fmt.Sprintf(
		"The user with id '%d' deleted the gradereview with id '%d' from the submission "+
			"with id '%v' for the assignment with course module id '%d'.",
		ev.UserID, ev.ObjectID, ev.Other["itemid"], ev.ContextInstanceID,
	)
}
