package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_SampleCatalogShape(t *testing.T) {
	data := []byte(`[
		{
			"name": "Father Joe's Villages",
			"category": ["Emergency Shelter", "meals"],
			"lat": 32.7076,
			"lon": -117.1527,
			"phone": "(619) 446-2100",
			"address": "1501 Imperial Ave, San Diego, CA 92101",
			"hours": "24/7",
			"eligibility": "All adults"
		},
		{
			"name": "Corner Pantry",
			"category": "Groceries"
		}
	]`)

	records, dropped, err := Parse(data)
	require.NoError(t, err)
	require.Empty(t, dropped)
	require.Len(t, records, 2)

	fj := records[0]
	assert.Equal(t, "father joe's villages", fj.NameKey)
	assert.Equal(t, "father joe's villages", fj.ID, "missing id falls back to name key")
	assert.Equal(t, []string{"emergency shelter", "meals"}, fj.Tags)
	assert.True(t, fj.HasCoordinates())
	assert.Equal(t, "(619) 446-2100", fj.Phone)

	pantry := records[1]
	assert.Equal(t, []string{"food"}, pantry.Tags, "groceries canonicalizes to food")
	assert.False(t, pantry.HasCoordinates())
}

func TestParse_TagDeduplication(t *testing.T) {
	data := []byte(`[
		{"name": "X", "category": ["Food", "food", " FOOD ", "groceries"]}
	]`)

	records, _, err := Parse(data)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, []string{"food"}, records[0].Tags)
}

func TestParse_OutOfRangeCoordinatesKeptNonSpatial(t *testing.T) {
	data := []byte(`[
		{"name": "Broken Geo", "category": "food", "lat": 132.7, "lon": -117.1}
	]`)

	records, dropped, err := Parse(data)
	require.NoError(t, err)
	require.Empty(t, dropped, "bad coordinates do not drop the record")
	require.Len(t, records, 1)
	assert.False(t, records[0].HasCoordinates())
}
