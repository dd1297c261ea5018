package chat

import (
	"strconv"

	"github.com/a-h/templ"

	"github.com/johndosdos/huddle/internal/overlay"
)

func px(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "px"
}

// cardStyle places the card at pos with the fixed card size.
func cardStyle(pos overlay.Position) templ.Attributes {
	return templ.Attributes{
		"style": "top: " + px(pos.Top) + "; left: " + px(pos.Left) +
			"; width: " + px(overlay.CardWidth) + "; min-height: " + px(overlay.CardHeight) + ";",
	}
}
