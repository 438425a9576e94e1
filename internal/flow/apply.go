package flow

import (
	"errors"
	"strings"

	"github.com/visa-track/visa_portal/internal/backend"
	"github.com/visa-track/visa_portal/internal/casefile"
)

// User-facing messages.
const (
	MsgStep1Failed       = "Authentication failed."
	MsgStep2Failed       = "Step two verification failed."
	MsgNetwork           = "Could not reach the server. Please try again."
	MsgSessionInvalid    = "Your session is no longer valid. Please sign in again."
	MsgUploadFailed      = "The document could not be saved."
	MsgChooseFile        = "Please choose a file to upload."
	MsgAlreadyUploaded   = "This document has already been uploaded."
	MsgPaymentRequired   = "To download the letter, please pay your visa application fee."
	MsgLetterUnavailable = "The visa letter is not available for download yet."
	MsgExpired           = "Your session expired due to inactivity."
	MsgLoggedOut         = "You have been signed out."
	MsgDocumentSaved     = "Document saved."
)

// Apply is the transition function. Events that do not apply to the current
// stage, and results carrying a stale epoch, leave the state untouched.
func Apply(s State, ev Event) (State, []Intent) {
	switch e := ev.(type) {
	case Start:
		return start(s, e)
	case SubmitStep1:
		return submitStep1(s, e)
	case Step1Done:
		return step1Done(s, e)
	case ConfirmStep2:
		return confirmStep2(s, e)
	case Step2Done:
		return step2Done(s, e)
	case Back:
		if s.Stage != StagePending {
			return s, nil
		}
		return s.clearMessages().moveTo(StageStep1), []Intent{ClearPending{}}
	case CheckDone:
		return checkDone(s, e)
	case Logout:
		if s.Stage != StageAuthenticated {
			return s, nil
		}
		return signOut(s, Notice{Kind: NoticeLoggedOut, Text: MsgLoggedOut}, EventLoggedOut)
	case Timeout:
		if s.Stage != StageAuthenticated || e.Epoch != s.Epoch {
			return s, nil
		}
		return signOut(s, Notice{Kind: NoticeExpired, Text: MsgExpired}, EventExpired)
	case Activity:
		if s.Stage != StageAuthenticated {
			return s, nil
		}
		return s, []Intent{ArmTimer{Epoch: s.Epoch}}
	case Upload:
		return upload(s, e)
	case UploadDone:
		return uploadDone(s, e)
	case Download:
		return download(s)
	case ShowChecklist:
		if s.Stage != StageAuthenticated {
			return s, nil
		}
		s = s.clearMessages()
		s.Checklist = casefile.Checklist(s.Record)
		return s, []Intent{ArmTimer{Epoch: s.Epoch}}
	}
	return s, nil
}

func start(s State, e Start) (State, []Intent) {
	if s.Stage != StageStep1 || s.Session.Token != "" {
		return s, nil
	}
	if e.Session.Token == "" {
		s.ResumeCEU = strings.TrimSpace(e.PendingCEU)
		return s, nil
	}
	if !e.Session.Valid() {
		// A token without its case reference cannot be trusted.
		return s, []Intent{ClearSession{}}
	}
	s = s.clearMessages().moveTo(StageProbing)
	s.Session = e.Session
	return s, []Intent{CallCheckSession{Epoch: s.Epoch, Token: e.Session.Token}}
}

func submitStep1(s State, e SubmitStep1) (State, []Intent) {
	if s.Stage != StageStep1 {
		return s, nil
	}
	s = s.clearMessages()
	creds := e.Credentials.Normalize()
	if err := creds.Validate(); err != nil {
		s.Error = err.Error()
		return s, nil
	}
	return s, []Intent{CallStep1{Epoch: s.Epoch, Credentials: creds}}
}

func step1Done(s State, e Step1Done) (State, []Intent) {
	if s.Stage != StageStep1 || e.Epoch != s.Epoch {
		return s, nil
	}
	if e.Err != nil {
		s.Error = errorText(e.Err, MsgStep1Failed)
		return s, []Intent{Emit{Kind: EventStep1Failed, CEU: e.Identity.CEU, Detail: s.Error}}
	}
	s = s.clearMessages().moveTo(StagePending)
	s.Pending = e.Identity
	return s, []Intent{PersistPending{CEU: e.Identity.CEU}}
}

func confirmStep2(s State, e ConfirmStep2) (State, []Intent) {
	if s.Stage != StagePending {
		return s, nil
	}
	s = s.clearMessages()
	id := e.Identity
	id.CEU = s.Pending.CEU
	id.RowID = s.Pending.RowID
	id = id.Normalize()
	// Keep what the applicant typed so the form re-renders with it.
	s.Pending = id
	if err := id.Validate(); err != nil {
		s.Error = err.Error()
		return s, nil
	}
	return s, []Intent{CallStep2{Epoch: s.Epoch, Identity: id}}
}

func step2Done(s State, e Step2Done) (State, []Intent) {
	if s.Stage != StagePending || e.Epoch != s.Epoch {
		return s, nil
	}
	if e.Err != nil {
		s.Error = errorText(e.Err, MsgStep2Failed)
		return s, []Intent{Emit{Kind: EventStep2Failed, CEU: s.Pending.CEU, Detail: s.Error}}
	}
	session := casefile.Session{Token: e.Token, CEU: s.Pending.CEU}
	if !session.Valid() {
		s.Error = MsgStep2Failed
		return s, nil
	}
	s = s.clearMessages().moveTo(StageAuthenticated)
	s.Session = session
	s.Record = e.Record
	return s, []Intent{
		PersistSession{Session: session},
		ClearPending{},
		ArmTimer{Epoch: s.Epoch},
		Emit{Kind: EventSignedIn, CEU: session.CEU},
	}
}

func checkDone(s State, e CheckDone) (State, []Intent) {
	if s.Stage != StageProbing || e.Epoch != s.Epoch {
		return s, nil
	}
	if e.Err != nil {
		ceu := s.Session.CEU
		s = s.moveTo(StageStep1)
		s.Error = MsgSessionInvalid
		if backend.IsTransport(e.Err) {
			s.Error = MsgNetwork
		}
		return s, []Intent{ClearSession{}, Emit{Kind: EventSessionRejected, CEU: ceu}}
	}
	session := s.Session
	s = s.moveTo(StageAuthenticated)
	s.Record = e.Record
	return s, []Intent{ArmTimer{Epoch: s.Epoch}, Emit{Kind: EventSessionRestored, CEU: session.CEU}}
}

func signOut(s State, notice Notice, kind EventKind) (State, []Intent) {
	session := s.Session
	s = s.clearMessages().moveTo(StageStep1)
	s.Notice = notice
	return s, []Intent{
		StopTimer{},
		CallLogout{Token: session.Token},
		ClearSession{},
		Emit{Kind: kind, CEU: session.CEU},
	}
}

func upload(s State, e Upload) (State, []Intent) {
	if s.Stage != StageAuthenticated {
		return s, nil
	}
	s = s.clearMessages()
	if s.Record.Uploaded(e.Field) {
		s.Error = MsgAlreadyUploaded
		return s, []Intent{ArmTimer{Epoch: s.Epoch}}
	}
	if e.Problem != "" {
		s.Error = e.Problem
		return s, []Intent{ArmTimer{Epoch: s.Epoch}}
	}
	if strings.TrimSpace(e.Link) == "" {
		s.Error = MsgChooseFile
		return s, []Intent{ArmTimer{Epoch: s.Epoch}}
	}
	return s, []Intent{
		ArmTimer{Epoch: s.Epoch},
		CallUpdateDocument{Epoch: s.Epoch, Token: s.Session.Token, Field: e.Field, Link: e.Link},
	}
}

func uploadDone(s State, e UploadDone) (State, []Intent) {
	if s.Stage != StageAuthenticated || e.Epoch != s.Epoch {
		return s, nil
	}
	if e.Err != nil {
		s.Error = errorText(e.Err, MsgUploadFailed)
		return s, nil
	}
	s.Record = e.Record
	s.Notice = Notice{Kind: NoticeDocumentSaved, Text: MsgDocumentSaved}
	return s, []Intent{Emit{Kind: EventDocumentUpdated, CEU: s.Session.CEU, Detail: string(e.Field)}}
}

func download(s State) (State, []Intent) {
	if s.Stage != StageAuthenticated {
		return s, nil
	}
	s = s.clearMessages()
	intents := []Intent{ArmTimer{Epoch: s.Epoch}}
	switch {
	case !s.Record.Paid():
		s.Notice = Notice{Kind: NoticePaymentRequired, Text: MsgPaymentRequired}
	case strings.HasPrefix(s.Record.LetterURL, "http"):
		intents = append(intents, OpenLetter{URL: s.Record.LetterURL})
	default:
		s.Notice = Notice{Kind: NoticeLetterUnavailable, Text: MsgLetterUnavailable}
	}
	return s, intents
}

// errorText picks the message shown for a failed call: a generic
// connectivity message, the server's own text, or fallback.
func errorText(err error, fallback string) string {
	if backend.IsTransport(err) {
		return MsgNetwork
	}
	if msg := backend.ServerMessage(err); msg != "" {
		return msg
	}
	var verr *casefile.ValidationError
	if errors.As(err, &verr) {
		return verr.Message
	}
	return fallback
}
