package flow

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/m3rciful/leadbot/core/telegram/format"
	"github.com/m3rciful/leadbot/internal/deadline"
	"github.com/m3rciful/leadbot/internal/lead"
)

// summary renders the confirmation card in Telegram HTML.
func summary(d lead.Draft) string {
	lines := []string{
		format.Bold("Check your request"),
		"",
		format.Field("Service", d.Service),
	}
	if d.Restoration != nil {
		lines = append(lines, format.Field("Restoration type", string(d.Restoration.Type)))
	}
	lines = append(lines,
		format.Field(d.Branch.TaskLabel(), d.Task()),
		format.Field("Deadline", deadline.Normalize(d.Deadline.Key, d.Deadline.CustomText)),
		format.Field("Contact", d.Contact),
	)
	files := d.Files()
	switch {
	case d.Restoration != nil:
		lines = append(lines, format.Field("Files", fmt.Sprintf("%d (types: %s)", len(files), lead.FileKinds(files))))
	case d.Model3D != nil:
		lines = append(lines, format.Field("Files", strconv.Itoa(len(files))))
	}
	lines = append(lines, "", "If everything is correct, press “✅ Send”.")
	return strings.Join(lines, "\n")
}
