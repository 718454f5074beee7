package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{"nested markup kept", "<p>Hello <b>world</b></p>", "Hello <b>world</b>"},
		{"attributes ignored", `<h1 class="title">Volcano</h1><p id="x">A  vent
in the crust.</p>`, "Volcano"},
		{"document order across tags", "<h2>Types</h2><p>Shield</p><h3>Hawaii</h3><p>Big  Island</p>", "Types Shield Hawaii Big Island"},
		{"entities not decoded", "<p>Fish &amp; chips</p>", "Fish &amp; chips"},
		{"other tags ignored", "<div>skip</div><span>me</span><h4>too</h4>", ""},
		{"empty input", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Text(tt.html))
		})
	}
}

func TestTextDoesNotSpanLines(t *testing.T) {
	// bodies split over lines do not match, like the paragraph in the
	// attributes case above
	assert.Equal(t, "", Text("<p>first\nsecond</p>"))
}

func TestTextDeterministic(t *testing.T) {
	page := strings.Repeat(`<h2>Section</h2><p>Lava <i>flows</i>   slowly.</p>`, 50)
	first := Text(page)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Text(page))
	}
	assert.True(t, strings.HasPrefix(first, "Section Lava <i>flows</i> slowly. Section"))
}
