package harvest

import "testing"

func TestTargetFromURL(t *testing.T) {
	tests := []struct {
		url   string
		mark  string
		model string
	}{
		{"https://www.tc-v.com/used_car/mazda/rx-7/", "mazda", "rx-7"},
		{"https://www.tc-v.com/used_car/toyota/supra/?pn=3", "toyota", "supra"},
		{"https://www.tc-v.com/used_car/nissan/", "nissan", "unknown"},
		{"https://www.tc-v.com/used_car/", "unknown", "unknown"},
		{"https://www.tc-v.com/something/else/", "unknown", "unknown"},
		{"://broken", "unknown", "unknown"},
	}

	for _, tt := range tests {
		mark, model := TargetFromURL(tt.url)
		if mark != tt.mark || model != tt.model {
			t.Errorf("TargetFromURL(%q) = (%q, %q), want (%q, %q)",
				tt.url, mark, model, tt.mark, tt.model)
		}
	}
}
