package gradereview

import (
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// String keys
const (
	StrBlindMarkingName         = "blindmarkingname"
	StrBlindMarkingViewFullName = "blindmarkingviewfullname"
	StrCommentLinkText          = "commentlinktext"
	StrPluginName               = "pluginname"
	StrPrivacyCommentPurpose    = "privacy:metadata:commentpurpose"
	StrReviewPostedSubject      = "reviewpostedsubject"
)

var englishStrings = map[string]string{
	StrBlindMarkingName:         "Participant %s",
	StrBlindMarkingViewFullName: "Participant %s (%s)",
	StrCommentLinkText:          "Grade review",
	StrPluginName:               "Grade reviews",
	StrPrivacyCommentPurpose:    "Records comments made against a submission",
	StrReviewPostedSubject:      "New grade review on your submission",
}

func init() {
	for key, msg := range englishStrings {
		_ = message.SetString(language.English, key, msg)
	}
}

// Printer formats the language strings of this component.
type Printer struct {
	p *message.Printer
}

func NewPrinter(tag language.Tag) Printer {
	return Printer{p: message.NewPrinter(tag)}
}

// String returns the string for key, formatted with args.
func (pr Printer) String(key string, args ...interface{}) string {
	return pr.p.Sprintf(key, args...)
}

// BlindMarkingName is the pseudonym shown instead of a real name: "Participant N".
// Participant numbers are printed without digit grouping.
func (pr Printer) BlindMarkingName(participantNumber int) string {
	return pr.String(StrBlindMarkingName, strconv.Itoa(participantNumber))
}

// BlindMarkingViewFullName reveals both the pseudonym and the real name.
func (pr Printer) BlindMarkingViewFullName(participantNumber int, fullName string) string {
	return pr.String(StrBlindMarkingViewFullName, strconv.Itoa(participantNumber), fullName)
}
