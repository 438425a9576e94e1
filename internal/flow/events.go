package flow

import "github.com/visa-track/visa_portal/internal/casefile"

// Event is an input to Apply: a user action or the result of an intent.
type Event interface {
	event()
}

// Start probes for a stored session when a visitor is first seen.
// PendingCEU is the case number of a sign-in left at step two.
type Start struct {
	Session    casefile.Session
	PendingCEU string
}

// SubmitStep1 submits the credentials form.
type SubmitStep1 struct {
	Credentials casefile.Credentials
}

// Step1Done carries the result of CallStep1.
type Step1Done struct {
	Epoch    uint64
	Identity casefile.PendingIdentity
	Err      error
}

// ConfirmStep2 submits the identity form. CEU and RowID are taken from the
// pending record, not from the form.
type ConfirmStep2 struct {
	Identity casefile.PendingIdentity
}

// Step2Done carries the result of CallStep2.
type Step2Done struct {
	Epoch  uint64
	Token  string
	Record casefile.Record
	Err    error
}

// Back leaves step two for step one.
type Back struct{}

// CheckDone carries the result of CallCheckSession.
type CheckDone struct {
	Epoch  uint64
	Record casefile.Record
	Err    error
}

// Logout is a manual sign out.
type Logout struct{}

// Timeout is fired by the inactivity timer armed under Epoch.
type Timeout struct {
	Epoch uint64
}

// Activity is any monitored user input while signed in.
type Activity struct{}

// Upload stores Link in the Field slot. An empty link means no file was
// chosen. Problem carries a local rejection of the file itself.
type Upload struct {
	Field   casefile.DocumentField
	Link    string
	Problem string
}

// UploadDone carries the result of CallUpdateDocument.
type UploadDone struct {
	Epoch  uint64
	Field  casefile.DocumentField
	Record casefile.Record
	Err    error
}

// Download asks for the visa letter.
type Download struct{}

// ShowChecklist asks for the final checklist summary.
type ShowChecklist struct{}

func (Start) event()         {}
func (SubmitStep1) event()   {}
func (Step1Done) event()     {}
func (ConfirmStep2) event()  {}
func (Step2Done) event()     {}
func (Back) event()          {}
func (CheckDone) event()     {}
func (Logout) event()        {}
func (Timeout) event()       {}
func (Activity) event()      {}
func (Upload) event()        {}
func (UploadDone) event()    {}
func (Download) event()      {}
func (ShowChecklist) event() {}
