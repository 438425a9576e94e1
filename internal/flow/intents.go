package flow

import "github.com/visa-track/visa_portal/internal/casefile"

// Intent is a side effect requested by Apply.
type Intent interface {
	intent()
}

// CallStep1 issues the step1 RPC; its result comes back as Step1Done.
type CallStep1 struct {
	Epoch       uint64
	Credentials casefile.Credentials
}

// CallStep2 issues the step2 RPC; its result comes back as Step2Done.
type CallStep2 struct {
	Epoch    uint64
	Identity casefile.PendingIdentity
}

// CallCheckSession revalidates a stored token; result is CheckDone.
type CallCheckSession struct {
	Epoch uint64
	Token string
}

// CallLogout is best effort and produces no result event.
type CallLogout struct {
	Token string
}

// CallUpdateDocument issues updateDocument; result is UploadDone.
type CallUpdateDocument struct {
	Epoch uint64
	Token string
	Field casefile.DocumentField
	Link  string
}

// PersistSession stores the token and CEU for later revalidation.
type PersistSession struct {
	Session casefile.Session
}

// PersistPending remembers the CEU between step one and step two.
type PersistPending struct {
	CEU string
}

// ClearPending forgets the pending CEU.
type ClearPending struct{}

// ClearSession forgets the stored token and CEU.
type ClearSession struct{}

// ArmTimer (re)starts the inactivity timer. Its expiry is Timeout{Epoch}.
type ArmTimer struct {
	Epoch uint64
}

// StopTimer cancels the inactivity timer.
type StopTimer struct{}

// OpenLetter sends the visitor to the visa letter.
type OpenLetter struct {
	URL string
}

// EventKind names a session event worth recording.
type EventKind string

const (
	EventSignedIn        EventKind = "signed_in"
	EventSessionRestored EventKind = "session_restored"
	EventSessionRejected EventKind = "session_rejected"
	EventLoggedOut       EventKind = "logged_out"
	EventExpired         EventKind = "session_expired"
	EventDocumentUpdated EventKind = "document_updated"
	EventStep1Failed     EventKind = "step1_failed"
	EventStep2Failed     EventKind = "step2_failed"
)

// Emit records a session event for auditing and notification.
type Emit struct {
	Kind   EventKind
	CEU    string
	Detail string
}

func (CallStep1) intent()          {}
func (CallStep2) intent()          {}
func (CallCheckSession) intent()   {}
func (CallLogout) intent()         {}
func (CallUpdateDocument) intent() {}
func (PersistSession) intent()     {}
func (PersistPending) intent()     {}
func (ClearPending) intent()       {}
func (ClearSession) intent()       {}
func (ArmTimer) intent()           {}
func (StopTimer) intent()          {}
func (OpenLetter) intent()         {}
func (Emit) intent()               {}
