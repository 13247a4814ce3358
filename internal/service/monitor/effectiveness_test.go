package monitor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEffectiveness(t *testing.T) {
	cases := []struct {
		alerts, responses, want int
	}{
		{0, 0, 100},
		{12, 11, 92},
		{4, 2, 50},
		{3, 2, 67},
		{8, 1, 13},
		{1, 0, 0},
		{5, 5, 100},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, Effectiveness(tc.alerts, tc.responses), "alerts=%d responses=%d", tc.alerts, tc.responses)
	}
}

func TestFormatElapsed(t *testing.T) {
	assert.Equal(t, "00:00:00", FormatElapsed(0))
	assert.Equal(t, "00:00:10", FormatElapsed(10))
	assert.Equal(t, "01:02:05", FormatElapsed(3725))
	assert.Equal(t, "00:00:00", FormatElapsed(-4))
}

func TestRouteCatalog(t *testing.T) {
	c := NewRouteCatalog([]string{"Lima - Cusco", " Lima - Cusco ", "", "Cusco - Puno"})

	assert.Equal(t, []string{"Lima - Cusco", "Cusco - Puno"}, c.List())
	assert.True(t, c.Contains("Lima - Cusco"))
	assert.True(t, c.Contains(" Cusco - Puno"))
	assert.False(t, c.Contains("lima - cusco"))
	assert.False(t, c.Contains(""))

	list := c.List()
	list[0] = "mutated"
	assert.True(t, c.Contains("Lima - Cusco"))
}

func TestSplitRoute(t *testing.T) {
	origin, dest := SplitRoute("Lima - Arequipa")
	assert.Equal(t, "Lima", origin)
	assert.Equal(t, "Arequipa", dest)

	origin, dest = SplitRoute("Cusco")
	assert.Empty(t, origin)
	assert.Equal(t, "Cusco", dest)
}
