package callbacks

import (
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"
)

// PayloadParts splits the callback payload into parts using the given separator.
func PayloadParts(c tele.Context, sep string) ([]string, error) {
	p := CallbackPayload(c)
	if p == "" {
		return nil, strconv.ErrSyntax
	}
	return strings.Split(p, sep), nil
}

// PayloadAction returns the first payload segment and the remainder,
// e.g. "open:3" yields ("open", "3").
func PayloadAction(c tele.Context) (string, string) {
	action, arg, _ := strings.Cut(CallbackPayload(c), ":")
	return action, arg
}

// PayloadIntAt parses the idx-th payload segment as int.
func PayloadIntAt(c tele.Context, sep string, idx int) (int, error) {
	parts, err := PayloadParts(c, sep)
	if err != nil {
		return 0, err
	}
	if idx < 0 || idx >= len(parts) {
		return 0, strconv.ErrRange
	}
	return strconv.Atoi(strings.TrimSpace(parts[idx]))
}
