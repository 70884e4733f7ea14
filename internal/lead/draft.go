// Package lead models the data collected during a lead conversation and
// turns it into a stored, immutable record.
package lead

import (
	"errors"
	"strings"

	"github.com/m3rciful/leadbot/internal/catalog"
)

// MaxFiles bounds the attachments a single lead may carry.
const MaxFiles = 10

// ErrTooManyFiles is returned when an attachment would exceed MaxFiles.
var ErrTooManyFiles = errors.New("lead: file limit reached")

// ErrWrongBranch is returned when a draft mutation does not apply to the
// draft's branch.
var ErrWrongBranch = errors.New("lead: operation not valid for this service")

// FileType classifies an attachment.
type FileType string

const (
	FilePhoto         FileType = "photo"
	FileVideo         FileType = "video"
	FileDocument      FileType = "document"
	FileDocumentImage FileType = "document_image"
)

// File is a Telegram attachment reference.
type File struct {
	Type FileType `json:"type" db:"file_type"`
	ID   string   `json:"id" db:"file_id"`
}

// RestorationType is the restoration sub-choice.
type RestorationType string

const (
	RestorePhoto RestorationType = "Photo"
	RestoreVideo RestorationType = "Video"
)

// Deadline is the raw deadline selection.
type Deadline struct {
	Key        string `json:"key,omitempty"`
	CustomText string `json:"custom_text,omitempty"`
}

// NeuroDraft holds the neuro photo session answers.
type NeuroDraft struct {
	Wishes string `json:"wishes,omitempty"`
}

// RestorationDraft holds the restoration answers.
type RestorationDraft struct {
	Type  RestorationType `json:"type,omitempty"`
	Task  string          `json:"task,omitempty"`
	Files []File          `json:"files,omitempty"`
}

// Model3DDraft holds the 3D model answers. FromCaption marks a description
// taken from the uploaded image caption.
type Model3DDraft struct {
	File        *File  `json:"file,omitempty"`
	Description string `json:"description,omitempty"`
	FromCaption bool   `json:"from_caption,omitempty"`
}

// PlainDraft holds the single free-text answer of the content, video
// greeting and default branches.
type PlainDraft struct {
	Text string `json:"text,omitempty"`
}

// Draft is the in-progress lead. Exactly one branch payload is set, chosen
// by NewDraft from the service's branch.
type Draft struct {
	ServiceID string         `json:"service_id,omitempty"`
	Service   string         `json:"service,omitempty"`
	Branch    catalog.Branch `json:"branch,omitempty"`
	Deadline  Deadline       `json:"deadline"`
	Contact   string         `json:"contact,omitempty"`

	Neuro       *NeuroDraft       `json:"neuro,omitempty"`
	Restoration *RestorationDraft `json:"restoration,omitempty"`
	Model3D     *Model3DDraft     `json:"model3d,omitempty"`
	Plain       *PlainDraft       `json:"plain,omitempty"`
}

// NewDraft starts an empty draft for a catalog service.
func NewDraft(e catalog.Entry) Draft {
	d := Draft{ServiceID: e.ID, Service: e.Title, Branch: e.Branch}
	switch e.Branch {
	case catalog.BranchNeuro:
		d.Neuro = &NeuroDraft{}
	case catalog.BranchRestoration:
		d.Restoration = &RestorationDraft{}
	case catalog.BranchModel3D:
		d.Model3D = &Model3DDraft{}
	default:
		d.Plain = &PlainDraft{}
	}
	return d
}

// Clone returns a deep copy.
func (d Draft) Clone() Draft {
	out := d
	if d.Neuro != nil {
		n := *d.Neuro
		out.Neuro = &n
	}
	if d.Restoration != nil {
		r := *d.Restoration
		r.Files = append([]File(nil), d.Restoration.Files...)
		out.Restoration = &r
	}
	if d.Model3D != nil {
		m := *d.Model3D
		if d.Model3D.File != nil {
			f := *d.Model3D.File
			m.File = &f
		}
		out.Model3D = &m
	}
	if d.Plain != nil {
		p := *d.Plain
		out.Plain = &p
	}
	return out
}

// Task returns the branch's free-text answer.
func (d Draft) Task() string {
	switch {
	case d.Neuro != nil:
		return d.Neuro.Wishes
	case d.Restoration != nil:
		return d.Restoration.Task
	case d.Model3D != nil:
		return d.Model3D.Description
	case d.Plain != nil:
		return d.Plain.Text
	}
	return ""
}

// SetTask stores the branch's free-text answer, trimmed.
func (d *Draft) SetTask(text string) error {
	text = strings.TrimSpace(text)
	switch {
	case d.Neuro != nil:
		d.Neuro.Wishes = text
	case d.Restoration != nil:
		d.Restoration.Task = text
	case d.Model3D != nil:
		d.Model3D.Description = text
		d.Model3D.FromCaption = false
	case d.Plain != nil:
		d.Plain.Text = text
	default:
		return ErrWrongBranch
	}
	return nil
}

// Files returns the attachments in arrival order.
func (d Draft) Files() []File {
	switch {
	case d.Restoration != nil:
		return append([]File(nil), d.Restoration.Files...)
	case d.Model3D != nil && d.Model3D.File != nil:
		return []File{*d.Model3D.File}
	}
	return nil
}

// AddFile appends a restoration attachment. The list never exceeds MaxFiles.
func (d *Draft) AddFile(f File) error {
	if d.Restoration == nil {
		return ErrWrongBranch
	}
	if len(d.Restoration.Files) >= MaxFiles {
		return ErrTooManyFiles
	}
	d.Restoration.Files = append(d.Restoration.Files, f)
	return nil
}

// SetModelFile stores the 3D source image. A non-empty caption becomes the
// description.
func (d *Draft) SetModelFile(f File, caption string) error {
	if d.Model3D == nil {
		return ErrWrongBranch
	}
	d.Model3D.File = &f
	if c := strings.TrimSpace(caption); c != "" {
		d.Model3D.Description = c
		d.Model3D.FromCaption = true
	} else {
		d.Model3D.Description = ""
		d.Model3D.FromCaption = false
	}
	return nil
}

// SetRestorationType stores the restoration sub-choice.
func (d *Draft) SetRestorationType(t RestorationType) error {
	if d.Restoration == nil {
		return ErrWrongBranch
	}
	d.Restoration.Type = t
	return nil
}

// FileKinds renders the distinct attachment kinds, e.g. "photo, video".
func FileKinds(files []File) string {
	seen := map[string]bool{}
	for _, f := range files {
		seen[kindLabel(f.Type)] = true
	}
	var out []string
	for _, k := range []string{"photo", "video", "document"} {
		if seen[k] {
			out = append(out, k)
		}
	}
	if len(out) == 0 {
		return "—"
	}
	return strings.Join(out, ", ")
}

func kindLabel(t FileType) string {
	if t == FileDocumentImage {
		return "document"
	}
	return string(t)
}
