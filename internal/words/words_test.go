package words

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEmbeddedDataset(t *testing.T) {
	lib, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, []string{"Argentina", "Internacional"}, lib.Regions())
	require.NotEmpty(t, lib.Categories("Argentina"))
	require.NotEmpty(t, lib.Categories("Internacional"))

	for _, region := range lib.Regions() {
		for _, cat := range lib.Categories(region) {
			assert.NotEmpty(t, lib.Words(region, cat), "empty category %s/%s", region, cat)
		}
	}
}

func TestCategoryLookupIgnoresCaseAndAccents(t *testing.T) {
	lib, err := New([]byte(`{"Argentina": {"Fútbol": ["pelota"], "Música": ["tango"]}}`))
	require.NoError(t, err)

	assert.Equal(t, []string{"pelota"}, lib.Words("argentina", "futbol"))
	assert.Equal(t, []string{"pelota"}, lib.Words("Argentina", "FÚTBOL"))
	assert.Equal(t, []string{"tango"}, lib.Words("Argentina", "musica"))
}

func TestUnknownLookupsReturnNil(t *testing.T) {
	lib, err := Load("")
	require.NoError(t, err)

	assert.Nil(t, lib.Categories("Atlantis"))
	assert.Nil(t, lib.Words("Argentina", "no-such-category"))
	assert.Nil(t, lib.Words("Atlantis", "Comidas"))
}

func TestNewRejectsBadData(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{name: "not json", data: "nope"},
		{name: "no regions", data: "{}"},
		{name: "empty category", data: `{"Argentina": {"Comidas": []}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New([]byte(tc.data))
			assert.Error(t, err)
		})
	}
}
