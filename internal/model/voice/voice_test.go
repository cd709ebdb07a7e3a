package voice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinCatalog(t *testing.T) {
	store := Builtin()

	for _, id := range []string{"en-US-claire", "en-US-ken", "en-US-natalie", "en-US-marcus"} {
		v, ok := store.FindByID(id)
		require.True(t, ok, "voice %s missing", id)
		assert.NotEmpty(t, v.Styles)
	}
	assert.Contains(t, store.Styles(), "Cheerful")

	claire, _ := store.FindByID("en-US-claire")
	assert.True(t, claire.SupportsStyle("cheerful"))
	assert.False(t, claire.SupportsStyle("Whispering"))
}

func TestParseFillsDefaultStyles(t *testing.T) {
	store, err := Parse([]byte(`
default_styles: [Neutral, Sad]
voices:
  - id: a
    name: A
`))
	require.NoError(t, err)

	v, ok := store.FindByID("a")
	require.True(t, ok)
	assert.Equal(t, []string{"Neutral", "Sad"}, v.Styles)
}

func TestParseRejectsDuplicates(t *testing.T) {
	_, err := Parse([]byte(`
voices:
  - id: a
  - id: a
`))
	require.Error(t, err)

	_, err = Parse([]byte(`voices: [{name: nobody}]`))
	require.Error(t, err)
}

func TestListReturnsCopy(t *testing.T) {
	store := NewMemoryStore([]Voice{{ID: "a"}}, nil)
	list := store.List()
	list[0].ID = "mutated"

	v, ok := store.FindByID("a")
	require.True(t, ok)
	assert.Equal(t, "a", v.ID)
}
