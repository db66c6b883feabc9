package catalog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()

	rooms := c.List()
	require.Len(t, rooms, 8)
	assert.Equal(t, "Tropical Nest", rooms[0].ID)

	r, err := c.Get("Coral Bay Cottage")
	require.NoError(t, err)
	assert.Equal(t, 2, r.Capacity)
	assert.Equal(t, "₱16,000/night", r.PriceLabel())

	_, err = c.Get("Penthouse")
	assert.True(t, errors.Is(err, ErrRoomNotFound))
}

func TestCatalogReturnsCopies(t *testing.T) {
	c := Default()
	r, err := c.Get("Tropical Nest")
	require.NoError(t, err)
	r.Amenities[0] = "changed"

	again, err := c.Get("Tropical Nest")
	require.NoError(t, err)
	assert.Equal(t, "2 queen beds + sofa bed", again.Amenities[0])
}

func TestNewRejectsBadRooms(t *testing.T) {
	_, err := New([]RoomType{{ID: "A", Capacity: 0}}, nil)
	assert.Error(t, err)

	_, err = New([]RoomType{{ID: "A", Capacity: 1}, {ID: "A", Capacity: 2}}, nil)
	assert.Error(t, err)

	_, err = New([]RoomType{{ID: " ", Capacity: 1}}, nil)
	assert.Error(t, err)
}

func TestAddOns(t *testing.T) {
	c := Default()
	a, err := c.AddOn("bonfire")
	require.NoError(t, err)
	assert.Equal(t, "Bonfire setup (night)", a.Label)

	_, err = c.AddOn("spa")
	assert.True(t, errors.Is(err, ErrAddOnNotFound))
	assert.Len(t, c.AddOns(), 9)
}

func TestMoneyString(t *testing.T) {
	cases := []struct {
		in   Money
		want string
	}{
		{Money{Amount: 250000, Currency: "PHP"}, "₱2,500"},
		{Money{Amount: 4625000, Currency: "PHP"}, "₱46,250"},
		{Money{Amount: 99, Currency: "PHP"}, "₱0.99"},
		{Money{Amount: 123456789, Currency: "USD"}, "$1,234,567.89"},
		{Money{Amount: 100, Currency: "EUR"}, "EUR 1"},
		{Money{Amount: -50000, Currency: "PHP"}, "-₱500"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.in.String())
	}
}
