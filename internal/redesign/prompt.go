package redesign

import (
	"strings"

	"roomworks/server/internal/domain"
)

// styleDescriptors enrich the bare style name with the visual vocabulary the
// model responds to. The house-style quality suffix is appended later by the
// graph builder; this is only the semantic intent.
var styleDescriptors = map[domain.DesignStyle]string{
	domain.StyleModern:       "clean lines, neutral palette, statement lighting",
	domain.StyleMinimalist:   "uncluttered space, hidden storage, monochrome palette",
	domain.StyleIndustrial:   "exposed brick, raw metal fixtures, dark wood accents",
	domain.StyleScandinavian: "light wood furniture, soft neutral textiles, cozy hygge atmosphere",
	domain.StyleBohemian:     "layered textiles, rattan and plants, warm earthy colors",
	domain.StyleLuxury:       "marble surfaces, brass details, plush upholstery",
	domain.StyleTraditional:  "classic furniture silhouettes, rich wood tones, ornate detail",
	domain.StyleContemporary: "current-trend furniture, bold accents, open layout",
}

// BuildRedesignPrompt turns the structured room/style selection plus any
// free-text wishes into the positive prompt for the generation graph.
func BuildRedesignPrompt(room domain.RoomType, style domain.DesignStyle, extra string) string {
	roomLabel := strings.ReplaceAll(string(room), "_", " ")
	parts := []string{
		"A " + roomLabel + " redesigned in " + string(style) + " style",
	}
	if desc, ok := styleDescriptors[style]; ok {
		parts = append(parts, desc)
	}
	if extra = strings.TrimSpace(extra); extra != "" {
		parts = append(parts, extra)
	}
	return strings.Join(parts, ", ")
}
