package ui

import (
	"strings"

	"github.com/relkit/relkit/internal/output"
)

// Render formats an Output for the terminal: a status line, the details in
// order, then the next steps. Nothing is derived beyond what the Output
// carries.
func Render(o *output.Output) string {
	var b strings.Builder
	if o.Success {
		b.WriteString(passIcon() + " " + o.Message + "\n")
	} else {
		b.WriteString(failIcon() + " " + RenderFail(o.Message) + "\n")
	}

	for _, d := range o.Details {
		b.WriteString(renderDetail(d))
	}

	if len(o.NextSteps) > 0 {
		b.WriteString("\n" + RenderHeader("Next steps:") + "\n")
		for _, step := range o.NextSteps {
			b.WriteString(indent + nextIcon() + " " + step + "\n")
		}
	}
	return b.String()
}

func renderDetail(d output.Detail) string {
	switch d.Kind {
	case output.KindSpacer:
		return "\n"
	case output.KindKeyValue:
		return indent + RenderMuted(d.Key+":") + " " + d.Value + "\n"
	case output.KindVersionChange:
		return indent + RenderMuted(d.Old) + " " + nextIcon() + " " + RenderAccent(d.New) + "\n"
	case output.KindCheck:
		icon := passIcon()
		if !d.Success {
			icon = failIcon()
		}
		return indent + icon + " " + d.Name + ": " + d.Message + "\n"
	case output.KindToken:
		return indent + keyIcon() + " " + TokenStyle.Render(d.Key+"="+d.Value) + "\n"
	default:
		return indent + d.Content + "\n"
	}
}
