package timetable

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/koleo-cli/koleo/internal/koleo"
)

// ErrUnsupportedBrand is returned for brands without seat reservation data.
var ErrUnsupportedBrand = errors.New("brand does not support seat statistics")

// ErrInvalidSeatType is returned for unknown seat type names or IDs.
var ErrInvalidSeatType = errors.New("invalid seat type")

// brandSeatTypes maps brand IDs to the place types (seat classes) they sell.
// Brands: 1 TLK, 2 EIC, 28 IC, 29 EIP, 43 ŁS, 45 KD premium, 47 LEO.
var brandSeatTypes = map[int]map[int]string{
	45: {30: "Klasa 2", 31: "Z rowerem"},
	28: {4: "Klasa 1", 5: "Klasa 2"},
	1:  {4: "Klasa 1", 5: "Klasa 2"},
	29: {4: "Klasa 1", 5: "Klasa 2"},
	2:  {4: "Klasa 1", 5: "Klasa 2"},
	43: {11: "Klasa 2"},
	47: {17: "Economy", 18: "Business", 19: "Premium", 20: "Economy Plus"},
}

// SeatType is a place type ID with its display name.
type SeatType struct {
	ID   int
	Name string
}

// SeatTypes returns the seat classes of a brand ordered by ID.
func SeatTypes(brandID int) ([]SeatType, error) {
	m, ok := brandSeatTypes[brandID]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedBrand, brandID)
	}
	out := make([]SeatType, 0, len(m))
	for id, name := range m {
		out = append(out, SeatType{ID: id, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// SupportsSeats reports whether seat statistics exist for a brand.
func SupportsSeats(brandID int) bool {
	_, ok := brandSeatTypes[brandID]
	return ok
}

// ResolveSeatTypes selects the seat classes to query. An empty selector
// means all of them; otherwise it is a numeric ID or a class name.
func ResolveSeatTypes(brandID int, selector string) ([]SeatType, error) {
	all, err := SeatTypes(brandID)
	if err != nil {
		return nil, err
	}
	if selector == "" {
		return all, nil
	}
	id, numErr := strconv.Atoi(selector)
	for _, st := range all {
		if (numErr == nil && st.ID == id) || st.Name == selector {
			return []SeatType{st}, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidSeatType, selector)
}

// quietIcon marks quiet-zone compartments, which are not counted as special.
const quietIcon = "quiet"

// SeatCounts tallies seat states for one seat class.
type SeatCounts struct {
	Free     int
	Reserved int
	Blocked  int
	Special  int
}

// Total is the number of seats of the class.
func (c SeatCounts) Total() int {
	return c.Free + c.Reserved + c.Blocked
}

// Taken is the number of seats that cannot be booked.
func (c SeatCounts) Taken() int {
	return c.Reserved + c.Blocked
}

// Percent returns n as a percentage of Total, or 0 for an empty class.
func (c SeatCounts) Percent(n int) float64 {
	if c.Total() == 0 {
		return 0
	}
	return float64(n) / float64(c.Total()) * 100
}

// SpecialCompartments indexes the special compartment types across several
// availability responses, skipping quiet zones.
func SpecialCompartments(results ...koleo.SeatsAvailability) map[int]koleo.SpecialCompartmentType {
	out := make(map[int]koleo.SpecialCompartmentType)
	for _, r := range results {
		for _, sc := range r.SpecialCompartmentTypes {
			if sc.Icon == quietIcon {
				continue
			}
			out[sc.ID] = sc
		}
	}
	return out
}

// CountSeats tallies the seat states of one availability response. Seats in
// a special compartment are counted both by state and as Special.
func CountSeats(avail koleo.SeatsAvailability, special map[int]koleo.SpecialCompartmentType) SeatCounts {
	var c SeatCounts
	for _, seat := range avail.Seats {
		if _, ok := special[seat.SpecialCompartmentTypeID]; ok {
			c.Special++
		}
		switch seat.State {
		case koleo.SeatFree:
			c.Free++
		case koleo.SeatReserved:
			c.Reserved++
		case koleo.SeatBlocked:
			c.Blocked++
		}
	}
	return c
}

// classColors maps seat class names to display colors.
var classColors = map[string]string{
	"Klasa 2":      "10",
	"Economy":      "10",
	"Economy Plus": "10",
	"Klasa 1":      "14",
	"Business":     "14",
	"Premium":      "14",
}

// ClassColor returns the ANSI color for a seat class, or "" for none.
func ClassColor(name string) string {
	return classColors[name]
}
