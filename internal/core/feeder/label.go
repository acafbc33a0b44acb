package feeder

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"feedfloat/internal/core/model"
	"feedfloat/internal/core/timefmt"

	"github.com/cbroglie/mustache"
)

// Labeler renders the display label of a draft from a mustache template.
// Available variables: mode, side, volume, milk, duration, is_breast, is_bottle.
type Labeler struct {
	template *mustache.Template
}

// NewLabeler parses source. An empty or invalid template yields a Labeler
// that always uses the built-in wording.
func NewLabeler(source string) *Labeler {
	labeler := &Labeler{}
	if strings.TrimSpace(source) == "" {
		return labeler
	}
	template, err := mustache.ParseString(source)
	if err != nil {
		slog.Warn("invalid label template, using built-in labels", "error", err)
		return labeler
	}
	labeler.template = template
	return labeler
}

// Label renders the label for draft.
func (labeler *Labeler) Label(draft model.SessionDraft) string {
	if labeler == nil || labeler.template == nil {
		return builtinLabel(draft)
	}
	data := map[string]any{
		"mode":      string(draft.Mode),
		"duration":  timefmt.FormatDuration(draft.Duration),
		"is_breast": draft.Mode == model.ModeBreast,
		"is_bottle": draft.Mode == model.ModeBottle,
	}
	if draft.Side != nil {
		data["side"] = string(*draft.Side)
	}
	if draft.VolumeMl != nil {
		data["volume"] = formatVolume(*draft.VolumeMl)
	}
	if draft.MilkType != nil {
		data["milk"] = string(*draft.MilkType)
	}
	rendered, err := labeler.template.Render(data)
	if err != nil || strings.TrimSpace(rendered) == "" {
		return builtinLabel(draft)
	}
	return strings.TrimSpace(rendered)
}

func builtinLabel(draft model.SessionDraft) string {
	switch draft.Mode {
	case model.ModeBreast:
		if draft.Side != nil {
			return fmt.Sprintf("Breastfeeding (%s)", *draft.Side)
		}
		return "Breastfeeding"
	case model.ModeBottle:
		label := "Bottle"
		if draft.VolumeMl != nil {
			label = fmt.Sprintf("Bottle %s ml", formatVolume(*draft.VolumeMl))
		}
		if draft.MilkType != nil {
			label = fmt.Sprintf("%s (%s)", label, *draft.MilkType)
		}
		return label
	default:
		return string(draft.Mode)
	}
}

func formatVolume(volume float64) string {
	return strconv.FormatFloat(volume, 'f', -1, 64)
}
