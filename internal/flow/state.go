// Package flow is the login and dashboard state machine. It performs no I/O:
// Apply takes the current State and an Event and returns the next State plus
// the Intents a driver must carry out.
package flow

import "github.com/visa-track/visa_portal/internal/casefile"

// Stage is the visible step of the flow.
type Stage int

const (
	// StageStep1 shows the credentials form.
	StageStep1 Stage = iota
	// StageProbing revalidates a stored session at startup.
	StageProbing
	// StagePending shows the identity confirmation form.
	StagePending
	// StageAuthenticated shows the dashboard.
	StageAuthenticated
)

func (s Stage) String() string {
	switch s {
	case StageStep1:
		return "step1"
	case StageProbing:
		return "probing"
	case StagePending:
		return "pending"
	case StageAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// NoticeKind classifies an informational message.
type NoticeKind string

const (
	NoticeNone              NoticeKind = ""
	NoticeLoggedOut         NoticeKind = "logged_out"
	NoticeExpired           NoticeKind = "session_expired"
	NoticeDocumentSaved     NoticeKind = "document_saved"
	NoticePaymentRequired   NoticeKind = "payment_required"
	NoticeLetterUnavailable NoticeKind = "letter_unavailable"
)

// Notice is an informational message for the current screen.
type Notice struct {
	Kind NoticeKind
	Text string
}

// State is the whole client-side session state of one visitor.
//
// Epoch increases on every stage change. Results of calls issued under an
// older epoch are discarded.
type State struct {
	Stage     Stage
	Epoch     uint64
	Pending   casefile.PendingIdentity
	Session   casefile.Session
	Record    casefile.Record
	Error     string
	Notice    Notice
	Checklist string
	// ResumeCEU prefills the credentials form after an unfinished sign-in.
	ResumeCEU string
}

// Initial is the state before Start has been applied.
func Initial() State {
	return State{Stage: StageStep1}
}

// Authenticated reports whether the dashboard may be shown.
func (s State) Authenticated() bool {
	return s.Stage == StageAuthenticated && s.Session.Valid()
}

// moveTo enters stage, bumps the epoch and drops stage-scoped data that the
// new stage must not carry.
func (s State) moveTo(stage Stage) State {
	s.Stage = stage
	s.Epoch++
	if stage != StageStep1 {
		s.ResumeCEU = ""
	}
	switch stage {
	case StageStep1:
		s.Pending = casefile.PendingIdentity{}
		s.Session = casefile.Session{}
		s.Record = casefile.Record{}
		s.Checklist = ""
	case StageProbing:
		s.Pending = casefile.PendingIdentity{}
		s.Record = casefile.Record{}
	case StagePending:
		s.Session = casefile.Session{}
		s.Record = casefile.Record{}
	case StageAuthenticated:
		s.Pending = casefile.PendingIdentity{}
	}
	return s
}

func (s State) clearMessages() State {
	s.Error = ""
	s.Notice = Notice{}
	s.Checklist = ""
	return s
}
