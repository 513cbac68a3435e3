package localized_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rise-and-shine/docclip/localized"
)

func TestPresenceIndexUpdate(t *testing.T) {
	var idx localized.PresenceIndex

	assert.True(t, idx.Empty())
	assert.True(t, idx.Update("avatar", "en", true))
	assert.True(t, idx.Update("avatar", "fr", true))
	assert.False(t, idx.Update("avatar", "en", true))
	assert.True(t, idx.Update("manual", "de", true))

	assert.Equal(t, []string{"en", "fr"}, idx.Locales("avatar"))
	assert.Equal(t, []string{"avatar", "manual"}, idx.Fields())
	assert.True(t, idx.Has("avatar", "fr"))
	assert.False(t, idx.Has("avatar", "de"))

	assert.True(t, idx.Update("avatar", "en", false))
	assert.False(t, idx.Update("avatar", "en", false))
	assert.Equal(t, []string{"fr"}, idx.Locales("avatar"))

	assert.True(t, idx.Update("manual", "de", false))
	assert.Equal(t, []string{"avatar"}, idx.Fields())
	assert.Nil(t, idx.Locales("manual"))
}

func TestPresenceIndexLocalesIsACopy(t *testing.T) {
	idx := localized.NewPresenceIndex()
	idx.Update("avatar", "en", true)

	locales := idx.Locales("avatar")
	locales[0] = "xx"

	assert.Equal(t, []string{"en"}, idx.Locales("avatar"))
}
