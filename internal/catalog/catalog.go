// Package catalog is the read-only registry of bookable room types and
// add-ons. It is seeded once at startup and never mutated afterwards.
package catalog

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrRoomNotFound  = errors.New("room type not found")
	ErrAddOnNotFound = errors.New("add-on not found")
)

// Money is an amount in minor currency units (centavos for PHP).
type Money struct {
	Amount   int64
	Currency string
}

var currencySymbols = map[string]string{
	"PHP": "₱",
	"USD": "$",
}

// String renders whole units with thousands separators, e.g. "₱16,000".
// Minor units are shown only when non-zero.
func (m Money) String() string {
	sym, ok := currencySymbols[m.Currency]
	if !ok {
		sym = m.Currency + " "
	}
	neg := m.Amount < 0
	amt := m.Amount
	if neg {
		amt = -amt
	}
	whole := groupThousands(strconv.FormatInt(amt/100, 10))
	out := sym + whole
	if cents := amt % 100; cents != 0 {
		out += fmt.Sprintf(".%02d", cents)
	}
	if neg {
		out = "-" + out
	}
	return out
}

func groupThousands(s string) string {
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	pre := len(s) % 3
	if pre > 0 {
		b.WriteString(s[:pre])
	}
	for i := pre; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// RoomType is a bookable category, not a physical unit. ID is the unique
// display title.
type RoomType struct {
	ID          string
	Description string
	Capacity    int
	Price       Money
	PriceUnit   string
	Amenities   []string
}

// PriceLabel is the price string stored on a reservation, e.g. "₱16,000/night".
func (r RoomType) PriceLabel() string {
	if r.PriceUnit == "" {
		return r.Price.String()
	}
	return r.Price.String() + "/" + r.PriceUnit
}

type AddOn struct {
	ID         string
	Label      string
	PriceLabel string
}

type Catalog struct {
	rooms  []RoomType
	byID   map[string]int
	addOns []AddOn
	addIdx map[string]int
}

// New builds a catalog. Room IDs and add-on IDs must be unique and every
// room must have a positive capacity.
func New(rooms []RoomType, addOns []AddOn) (*Catalog, error) {
	c := &Catalog{
		byID:   make(map[string]int, len(rooms)),
		addIdx: make(map[string]int, len(addOns)),
	}
	for _, r := range rooms {
		if strings.TrimSpace(r.ID) == "" {
			return nil, fmt.Errorf("catalog: room with empty id")
		}
		if r.Capacity < 1 {
			return nil, fmt.Errorf("catalog: room %q capacity must be >= 1", r.ID)
		}
		if _, dup := c.byID[r.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate room %q", r.ID)
		}
		r.Amenities = append([]string(nil), r.Amenities...)
		c.byID[r.ID] = len(c.rooms)
		c.rooms = append(c.rooms, r)
	}
	for _, a := range addOns {
		if _, dup := c.addIdx[a.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate add-on %q", a.ID)
		}
		c.addIdx[a.ID] = len(c.addOns)
		c.addOns = append(c.addOns, a)
	}
	return c, nil
}

func (c *Catalog) Get(id string) (RoomType, error) {
	i, ok := c.byID[id]
	if !ok {
		return RoomType{}, fmt.Errorf("%w: %q", ErrRoomNotFound, id)
	}
	return clone(c.rooms[i]), nil
}

func (c *Catalog) List() []RoomType {
	out := make([]RoomType, len(c.rooms))
	for i, r := range c.rooms {
		out[i] = clone(r)
	}
	return out
}

func (c *Catalog) AddOn(id string) (AddOn, error) {
	i, ok := c.addIdx[id]
	if !ok {
		return AddOn{}, fmt.Errorf("%w: %q", ErrAddOnNotFound, id)
	}
	return c.addOns[i], nil
}

func (c *Catalog) AddOns() []AddOn {
	return append([]AddOn(nil), c.addOns...)
}

func clone(r RoomType) RoomType {
	r.Amenities = append([]string(nil), r.Amenities...)
	return r
}

func php(whole int64) Money { return Money{Amount: whole * 100, Currency: "PHP"} }

// Default returns the Isla Mare room and package lineup.
func Default() *Catalog {
	c, err := New(defaultRooms, defaultAddOns)
	if err != nil {
		panic(err)
	}
	return c
}

var defaultRooms = []RoomType{
	{
		ID:          "Tropical Nest",
		Description: "Spacious and relaxing, great for bonding moments with the whole family.",
		Capacity:    6,
		Price:       php(25000),
		PriceUnit:   "night",
		Amenities:   []string{"2 queen beds + sofa bed", "Air-conditioning", "Living area with cable TV", "Kitchenette"},
	},
	{
		ID:          "Coral Bay Cottage",
		Description: "A cozy beachfront cottage perfect for two. Ideal for romantic getaways.",
		Capacity:    2,
		Price:       php(16000),
		PriceUnit:   "night",
		Amenities:   []string{"Queen-size bed", "Air-conditioning", "Private veranda with sea view"},
	},
	{
		ID:          "The Green Haven",
		Description: "Simple, clean, and peaceful. Ideal for solo travelers or digital nomads.",
		Capacity:    1,
		Price:       php(10000),
		PriceUnit:   "night",
		Amenities:   []string{"Single bed", "Air-conditioning", "Work desk"},
	},
	{
		ID:          "Day Use Package",
		Description: "For guests who want to experience the resort without an overnight stay.",
		Capacity:    10,
		Price:       php(2500),
		PriceUnit:   "pax",
		Amenities:   []string{"Access from 8:00 AM to 5:00 PM", "Welcome drink"},
	},
	{
		ID:          "Couple's Getaway Package",
		Description: "A romantic escape for two with special inclusions.",
		Capacity:    2,
		Price:       php(28750),
		PriceUnit:   "couple (2 nights)",
		Amenities:   []string{"Romantic dinner by the beach", "Breakfast for 2"},
	},
	{
		ID:          "Family Staycation Package",
		Description: "Create lasting memories with your loved ones.",
		Capacity:    4,
		Price:       php(46250),
		PriceUnit:   "family (2 nights)",
		Amenities:   []string{"Family room for 2 nights", "Daily breakfast for 4"},
	},
	{
		ID:          "Wellness & Relax Package",
		Description: "Rejuvenate your mind, body, and soul.",
		Capacity:    1,
		Price:       php(4500),
		PriceUnit:   "person (1 night)",
		Amenities:   []string{"1-hour massage", "Breakfast and light healthy dinner"},
	},
	{
		ID:          "Premium Ocean Villa",
		Description: "Panoramic ocean views and premium amenities.",
		Capacity:    4,
		Price:       php(35000),
		PriceUnit:   "night",
		Amenities:   []string{"Private infinity pool", "Butler service"},
	},
}

var defaultAddOns = []AddOn{
	{ID: "massage", Label: "In-room massage", PriceLabel: "₱800/hour"},
	{ID: "cabana", Label: "All-day cabana rental", PriceLabel: "₱1,000"},
	{ID: "bonfire", Label: "Bonfire setup (night)", PriceLabel: "₱1,200"},
	{ID: "gym", Label: "Gym use and shower", PriceLabel: "₱600"},
	{ID: "checkin", Label: "Early check-in / late check-out", PriceLabel: "₱1,000–₱2,000"},
	{ID: "decoration", Label: "Room decoration", PriceLabel: "₱1,500–₱3,000"},
	{ID: "extrabed", Label: "Extra bed or mattress", PriceLabel: "₱800–₱1,000/night"},
	{ID: "transfer", Label: "Airport/van transfers", PriceLabel: "₱2,500–₱3,500"},
	{ID: "laundry", Label: "Laundry service", PriceLabel: "Based on weight"},
}
