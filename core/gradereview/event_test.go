package gradereview

import (
	"testing"
)

func TestCommentDeleted(t *testing.T) {
	ev := NewCommentDeleted(Viewer{ID: 2}, Comment{ID: 17, ContextID: testContextID, ItemID: 5}, testCmID)

	rec := ev.Record()
	if rec.Name != EventCommentDeleted || rec.UserID != 2 || rec.ObjectID != 17 || rec.ContextID != testContextID {
		t.Errorf("Record() = %+v", rec)
	}
	if rec.Other["itemid"] != 5 {
		t.Errorf("Record().Other = %v, want itemid 5", rec.Other)
	}

	want := "The user with id '2' deleted the gradereview with id '17' from the submission " +
		"with id '5' for the assignment with course module id '11'."
	if got := ev.Description(); got != want {
		t.Errorf("Description() = %q, want %q", got, want)
	}
}

func TestAssignmentURL(t *testing.T) {
	tests := []struct {
		name    string
		hostURL string
		cmID    int
		want    string
	}{
		{name: "root install", hostURL: "https://lms.test", cmID: 11, want: "https://lms.test/mod/assign/view.php?id=11"},
		{name: "trailing slash", hostURL: "https://lms.test/", cmID: 11, want: "https://lms.test/mod/assign/view.php?id=11"},
		{name: "subdirectory install", hostURL: "https://uni.test/moodle", cmID: 3, want: "https://uni.test/moodle/mod/assign/view.php?id=3"},
		{name: "no host", hostURL: "", cmID: 3, want: "/mod/assign/view.php?id=3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AssignmentURL(tt.hostURL, tt.cmID).String(); got != tt.want {
				t.Errorf("AssignmentURL() = %v, want %v", got, tt.want)
			}
		})
	}
}
