// Package render turns flow state into what the page shows. Build is pure;
// Renderer executes the embedded templates.
package render

import (
	"strings"

	"github.com/visa-track/visa_portal/internal/casefile"
	"github.com/visa-track/visa_portal/internal/flow"
)

// Screen is the visible part of the page.
type Screen string

const (
	ScreenStep1     Screen = "step1"
	ScreenStep2     Screen = "step2"
	ScreenDashboard Screen = "dashboard"
)

const (
	noCEU           = "—"
	noPhotoCaption  = "No photo available"
	downloadTooltip = "The visa letter can be downloaded once the application fee is paid."
	statusUploaded  = "uploaded"
	statusPending   = "pending"
	actionView      = "view"
	actionUpload    = "upload"
)

// DocumentRow is one upload slot on the dashboard.
type DocumentRow struct {
	Field    string
	Label    string
	Uploaded bool
	Status   string
	Action   string
	Link     string
}

// View is everything the templates need.
type View struct {
	Screen     Screen
	Error      string
	Notice     string
	NoticeKind string

	// Step1CEU prefills the case number on the credentials form.
	Step1CEU string
	// Step2 prefills the identity form.
	Step2 casefile.PendingIdentity

	FullName        string
	CEU             string
	Welcome         string
	PhotoURL        string
	PhotoCaption    string
	DownloadEnabled bool
	DownloadTooltip string
	Documents       []DocumentRow
	Checklist       string
}

// Build derives the view for s.
func Build(s flow.State) View {
	v := View{
		Error:      s.Error,
		Notice:     s.Notice.Text,
		NoticeKind: string(s.Notice.Kind),
	}
	switch {
	case s.Authenticated():
		v.Screen = ScreenDashboard
		fillDashboard(&v, s)
	case s.Stage == flow.StagePending:
		v.Screen = ScreenStep2
		v.Step2 = s.Pending
	default:
		v.Screen = ScreenStep1
		v.Step1CEU = s.ResumeCEU
	}
	return v
}

func fillDashboard(v *View, s flow.State) {
	r := s.Record
	v.FullName = r.FullName()
	v.CEU = "CEU: " + displayCEU(r, s.Session)
	v.Welcome = strings.TrimSpace("Welcome, " + v.FullName)

	if r.HasPhoto() {
		v.PhotoURL = strings.TrimSpace(r.PhotoURL)
	} else {
		v.PhotoCaption = noPhotoCaption
	}

	v.DownloadEnabled = r.Paid()
	if !v.DownloadEnabled {
		v.DownloadTooltip = downloadTooltip
	}

	for _, f := range casefile.Fields() {
		row := DocumentRow{Field: string(f), Label: f.Label(), Status: statusPending, Action: actionUpload}
		if r.Uploaded(f) {
			row.Uploaded = true
			row.Status = statusUploaded
			row.Action = actionView
			row.Link = strings.TrimSpace(r.Document(f))
		}
		v.Documents = append(v.Documents, row)
	}
	v.Checklist = s.Checklist
}

func displayCEU(r casefile.Record, session casefile.Session) string {
	if ceu := strings.TrimSpace(r.CEUNumber); ceu != "" {
		return ceu
	}
	if ceu := strings.TrimSpace(session.CEU); ceu != "" {
		return ceu
	}
	return noCEU
}
