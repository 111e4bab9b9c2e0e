package harvest

import (
	"net/url"
	"strings"
)

const targetMarker = "used_car"

// TargetFromURL derives the mark and model from the path segments following
// the used_car marker, e.g. /used_car/mazda/rx-7/ -> ("mazda", "rx-7").
// Either falls back to "unknown" when the marker or segment is absent.
func TargetFromURL(raw string) (mark, model string) {
	mark, model = "unknown", "unknown"

	u, err := url.Parse(raw)
	if err != nil {
		return
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, p := range parts {
		if p != targetMarker {
			continue
		}
		if i+1 < len(parts) && parts[i+1] != "" {
			mark = parts[i+1]
		}
		if i+2 < len(parts) && parts[i+2] != "" {
			model = parts[i+2]
		}
		return
	}
	return
}
