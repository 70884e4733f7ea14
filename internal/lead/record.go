package lead

import (
	"strconv"
	"strings"
	"time"

	"github.com/m3rciful/leadbot/internal/catalog"
)

// DefaultFullName replaces an empty Telegram display name.
const DefaultFullName = "User"

// Identity describes the Telegram user submitting a lead.
type Identity struct {
	UserID   int64
	Username string
	FullName string
}

// Record is a submitted lead. It is never modified after creation.
type Record struct {
	ID               int64             `db:"id"`
	Ref              string            `db:"ref"`
	TelegramUserID   int64             `db:"tg_user_id"`
	TelegramUsername string            `db:"tg_username"`
	FullName         string            `db:"full_name"`
	ServiceID        string            `db:"service_id"`
	Service          string            `db:"service"`
	Branch           catalog.Branch    `db:"branch"`
	Task             string            `db:"task"`
	Deadline         string            `db:"deadline"`
	Budget           string            `db:"budget"`
	Contact          string            `db:"contact"`
	Extra            map[string]string `db:"-"`
	Files            []File            `db:"-"`
	CreatedAt        time.Time         `db:"created_at"`
}

// AdminText renders the notification sent to the administrator.
func (r Record) AdminText() string {
	var b strings.Builder
	b.WriteString("🆕 New request\n")
	b.WriteString("From: " + orDash(r.FullName))
	if r.TelegramUsername != "" {
		b.WriteString(" (@" + r.TelegramUsername + ")")
	}
	b.WriteString("\nService: " + r.Service)
	b.WriteString("\n" + r.Branch.TaskLabel() + ": " + r.Task)
	b.WriteString("\nDeadline: " + r.Deadline)
	b.WriteString("\nContact: " + orDash(r.Contact))
	if r.Budget != "" {
		b.WriteString("\nBudget: " + r.Budget)
	}
	if len(r.Files) > 0 {
		b.WriteString("\nFiles:")
		for _, f := range r.Files {
			b.WriteString("\n- " + orDash(string(f.Type)) + ": " + orDash(f.ID))
		}
	}
	return b.String()
}

func orDash(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "—"
	}
	return s
}

func extraFor(d Draft, files []File) map[string]string {
	extra := map[string]string{}
	switch {
	case d.Restoration != nil:
		extra["rest_type"] = orDash(string(d.Restoration.Type))
		extra["files_count"] = strconv.Itoa(len(files))
		extra["files_types"] = FileKinds(files)
	case d.Neuro != nil:
		extra["wishes"] = d.Neuro.Wishes
	case d.Model3D != nil && d.Model3D.FromCaption:
		extra["caption"] = d.Model3D.Description
	}
	return extra
}
