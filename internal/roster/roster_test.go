package roster

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/matthewbaird/contractwizard/internal/types"
)

func units() []types.Option {
	return []types.Option{
		{Value: "10", Label: "Unit A"},
		{Value: "11", Label: "Unit B"},
		{Value: "12", Label: ""},
	}
}

func TestRoster_DocumentOrder(t *testing.T) {
	r := New(units())
	r.SetChecked("11", true)
	r.SetChecked("10", true)

	assert.Equal(t, []string{"10", "11"}, r.Values())
	assert.Equal(t, []string{"Unit A", "Unit B"}, r.Labels())
}

func TestRoster_LabelFallsBackToValue(t *testing.T) {
	r := New(units())
	r.SetChecked("12", true)
	assert.Equal(t, []Badge{{Value: "12", Label: "12"}}, r.Badges())
}

func TestRoster_ToggleRoundTrip(t *testing.T) {
	r := New(units())
	r.SetChecked("10", true)
	before := r.Badges()

	assert.True(t, r.Toggle("11"))
	assert.True(t, r.Toggle("11"))

	assert.Equal(t, before, r.Badges())
}

func TestRoster_RemoveUnchecks(t *testing.T) {
	r := New(units())
	r.Replace([]string{"10", "11"})

	assert.True(t, r.Remove("10"))
	assert.False(t, r.IsChecked("10"))
	assert.Equal(t, []string{"Unit B"}, r.Labels())

	// Removing an unchecked item is a no-op recompute.
	assert.True(t, r.Remove("10"))
	assert.Equal(t, 1, r.Len())
}

func TestRoster_UnknownValues(t *testing.T) {
	r := New(units())
	assert.False(t, r.SetChecked("99", true))
	assert.False(t, r.Remove("99"))

	r.Replace([]string{"99", "12"})
	assert.Equal(t, []string{"12"}, r.Values())
}

func TestRoster_BadgesAreCopies(t *testing.T) {
	r := New(units())
	r.SetChecked("10", true)
	b := r.Badges()
	b[0].Label = "mutated"
	assert.Equal(t, "Unit A", r.Badges()[0].Label)
}
