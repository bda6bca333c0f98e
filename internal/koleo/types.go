package koleo

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Station types reported by the service.
const (
	StationTypeTopographicalPlace = "TopographicalPlace"
	StationTypeQuay               = "Quay"
	StationTypeStopPlace          = "StopPlace"
	StationTypeRailStopPlace      = "railStopPlace"
	StationTypeBusStopPlace       = "busStopPlace"
	StationTypeGroup              = "group"
)

// Seat states.
const (
	SeatFree     = "FREE"
	SeatReserved = "RESERVED"
	SeatBlocked  = "BLOCKED"
)

// Connection leg types returned by the v3 search.
const (
	LegTrain         = "train_leg"
	LegStationChange = "station_change_leg"
	LegWalk          = "walk_leg"
)

// Time is a timestamp that the service encodes either as an ISO-8601 string
// or as a bare wall clock {"hour","minute","second"} without a date.
type Time struct {
	t     time.Time
	clock bool
	raw   string
}

type clockJSON struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
	Second int `json:"second"`
}

// naiveLayout is used for ISO timestamps without a zone.
const naiveLayout = "2006-01-02T15:04:05"

// NewClock returns a wall-clock Time.
func NewClock(hour, minute, second int) Time {
	return Time{t: time.Date(0, 1, 1, hour, minute, second, 0, time.Local), clock: true}
}

// NewTime returns a full timestamp Time.
func NewTime(t time.Time) Time {
	return Time{t: t, raw: t.Format(time.RFC3339)}
}

// IsZero reports whether the value was absent or null.
func (t Time) IsZero() bool {
	return !t.clock && t.t.IsZero()
}

// IsClock reports whether only the time of day is known.
func (t Time) IsClock() bool {
	return t.clock
}

// On resolves t to a full timestamp. Wall-clock values take their date from
// base; full timestamps ignore it.
func (t Time) On(base time.Time) time.Time {
	if !t.clock {
		return t.t
	}
	y, m, d := base.Date()
	loc := base.Location()
	if base.IsZero() {
		y, m, d = time.Now().Date()
		loc = time.Local
	}
	return time.Date(y, m, d, t.t.Hour(), t.t.Minute(), t.t.Second(), 0, loc)
}

// Time returns the timestamp, using today's date for wall-clock values.
func (t Time) Time() time.Time {
	return t.On(time.Time{})
}

// UnmarshalJSON accepts null, an ISO string or a clock object.
func (t *Time) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = Time{}
		return nil
	}

	if data[0] == '{' {
		var c clockJSON
		if err := json.Unmarshal(data, &c); err != nil {
			return fmt.Errorf("clock time: %w", err)
		}
		*t = NewClock(c.Hour, c.Minute, c.Second)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("time must be a string or clock object: %w", err)
	}
	if s == "" {
		*t = Time{}
		return nil
	}
	parsed, err := parseISO(s)
	if err != nil {
		return err
	}
	*t = Time{t: parsed, raw: s}
	return nil
}

// MarshalJSON writes the value back in the form it was read.
func (t Time) MarshalJSON() ([]byte, error) {
	switch {
	case t.clock:
		return json.Marshal(clockJSON{Hour: t.t.Hour(), Minute: t.t.Minute(), Second: t.t.Second()})
	case t.t.IsZero():
		return []byte("null"), nil
	case t.raw != "":
		return json.Marshal(t.raw)
	default:
		return json.Marshal(t.t.Format(time.RFC3339))
	}
}

func parseISO(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return ts, nil
	}
	ts, err := time.ParseInLocation(naiveLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return ts, nil
}

// Station is the extended station record.
type Station struct {
	ID            int     `json:"id"`
	Name          string  `json:"name"`
	NameSlug      string  `json:"name_slug"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	Hits          int     `json:"hits"`
	IBNR          int     `json:"ibnr"`
	City          string  `json:"city"`
	Region        string  `json:"region"`
	Country       string  `json:"country"`
	LocalisedName string  `json:"localised_name"`
	IsGroup       bool    `json:"is_group"`
	Type          string  `json:"type"`
	TransportMode string  `json:"transport_mode"`
	TimeZone      string  `json:"time_zone"`
}

// SearchStation is a station search hit. Country is not reported.
type SearchStation struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	NameSlug      string `json:"name_slug"`
	IBNR          int    `json:"ibnr"`
	LocalisedName string `json:"localised_name"`
	OnDemand      bool   `json:"on_demand"`
	Type          string `json:"type"`
}

// StationDetails is the station information page.
type StationDetails struct {
	Address struct {
		Full string `json:"full"`
		Zip  string `json:"zip"`
	} `json:"address"`
	Lat          float64 `json:"lat"`
	Lon          float64 `json:"lon"`
	OpeningHours []struct {
		Day   int    `json:"day"`
		Open  string `json:"open"`
		Close string `json:"close"`
	} `json:"opening_hours"`
	Features []struct {
		ID        string `json:"id"`
		Name      string `json:"name"`
		Available bool   `json:"available"`
	} `json:"features"`
}

// StationOnTrain is a terminal station of a train listed on a board.
type StationOnTrain struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	NameSlug string `json:"name_slug"`
	TrainID  int    `json:"train_id"`
}

// Brand is a commercial train brand (IC, TLK, REG, ...).
type Brand struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	LogoText    string `json:"logo_text"`
	Color       string `json:"color"`
	CarrierID   int    `json:"carrier_id"`
}

// Carrier is a railway operator.
type Carrier struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	ShortName string `json:"short_name"`
	Slug      string `json:"slug"`
	LegalName string `json:"legal_name"`
}

// Discount is a passenger discount definition.
type Discount struct {
	ID                         int     `json:"id"`
	Name                       string  `json:"name"`
	PassengerPercentage        int     `json:"passenger_percentage"`
	DisplayPassengerPercentage float64 `json:"display_passenger_percentage"`
	DependentOnIDs             []int   `json:"dependent_on_ids"`
	Rank                       int     `json:"rank"`
	Displayable                bool    `json:"displayable"`
	IsCompany                  bool    `json:"is_company"`
}

// TrainOnStation is one row of a departures or arrivals board.
type TrainOnStation struct {
	Arrival       Time             `json:"arrival"`
	Departure     Time             `json:"departure"`
	Stations      []StationOnTrain `json:"stations"`
	TrainFullName string           `json:"train_full_name"`
	BrandID       int              `json:"brand_id"`
	Platform      string           `json:"platform"`
	Track         string           `json:"track"`
}

// TrainCalendar lists the dates a train runs on.
type TrainCalendar struct {
	ID           int            `json:"id"`
	TrainNr      int            `json:"train_nr"`
	TrainName    string         `json:"train_name"`
	TrainBrand   int            `json:"trainBrand"`
	Dates        []string       `json:"dates"`
	TrainIDs     []int          `json:"train_ids"`
	DateTrainMap map[string]int `json:"date_train_map"`
}

// TrainCalendarResponse wraps the calendars matching a brand and number.
type TrainCalendarResponse struct {
	TrainCalendars []TrainCalendar `json:"train_calendars"`
}

// TrainDetail describes a single train run.
type TrainDetail struct {
	ID              int               `json:"id"`
	TrainNr         int               `json:"train_nr"`
	Name            string            `json:"name"`
	TrainFullName   string            `json:"train_full_name"`
	RunDesc         string            `json:"run_desc"`
	CarrierID       int               `json:"carrier_id"`
	BrandID         int               `json:"brand_id"`
	DurationOffset  int               `json:"duration_offset"`
	DBTrainNr       int               `json:"db_train_nr"`
	TrainAttributes []json.RawMessage `json:"train_attributes"`
}

// TrainStop is a stop on a train's route.
type TrainStop struct {
	ID                 int    `json:"id"`
	StationID          int    `json:"station_id"`
	StationName        string `json:"station_name"`
	StationSlug        string `json:"station_slug"`
	TrainID            int    `json:"train_id"`
	Arrival            Time   `json:"arrival"`
	Departure          Time   `json:"departure"`
	Position           int    `json:"position"`
	BrandID            int    `json:"brand_id"`
	Distance           int    `json:"distance"`
	EntryOnly          bool   `json:"entry_only"`
	ExitOnly           bool   `json:"exit_only"`
	StationDisplayName string `json:"station_display_name"`
	Platform           string `json:"platform"`
	VehicleType        string `json:"vehicle_type"`
}

// TrainDetailResponse is a train with its full route.
type TrainDetailResponse struct {
	Train TrainDetail `json:"train"`
	Stops []TrainStop `json:"stops"`
}

// ConnectionStop is a stop of a train within a connection.
type ConnectionStop struct {
	Arrival   Time   `json:"arrival"`
	Departure Time   `json:"departure"`
	Distance  int    `json:"distance"`
	InPath    bool   `json:"in_path"`
	StationID int    `json:"station_id"`
	NextDay   bool   `json:"next_day"`
	Position  int    `json:"position"`
	TrainNr   int    `json:"train_nr"`
	BrandID   int    `json:"brand_id"`
	EntryOnly bool   `json:"entry_only"`
	ExitOnly  bool   `json:"exit_only"`
	Platform  string `json:"platform"`
	Track     string `json:"track"`
	OnDemand  bool   `json:"on_demand"`
}

// ConnectionTrain is one train used by a connection.
type ConnectionTrain struct {
	TrainID           int              `json:"train_id"`
	TrainNr           int              `json:"train_nr"`
	Name              string           `json:"name"`
	TrainFullName     string           `json:"train_full_name"`
	BrandID           int              `json:"brand_id"`
	CarrierID         int              `json:"carrier_id"`
	Arrival           Time             `json:"arrival"`
	Departure         Time             `json:"departure"`
	Stops             []ConnectionStop `json:"stops"`
	Bookable          bool             `json:"bookable"`
	TrainAttributeIDs []int            `json:"train_attribute_ids"`
	TravelTime        int              `json:"travel_time"`
	Direction         string           `json:"direction"`
	StartStationID    int              `json:"start_station_id"`
	EndStationID      int              `json:"end_station_id"`
}

// StartStop returns the stop where the passenger boards this train.
func (t *ConnectionTrain) StartStop() (ConnectionStop, bool) {
	return t.stopAt(t.StartStationID)
}

// EndStop returns the stop where the passenger leaves this train.
func (t *ConnectionTrain) EndStop() (ConnectionStop, bool) {
	return t.stopAt(t.EndStationID)
}

func (t *ConnectionTrain) stopAt(stationID int) (ConnectionStop, bool) {
	for _, s := range t.Stops {
		if s.StationID == stationID {
			return s, true
		}
	}
	return ConnectionStop{}, false
}

// ErrorDetail is a typed error message attached to a connection or price.
type ErrorDetail struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Connection is a journey from one station to another, possibly with changes.
type Connection struct {
	ID                int               `json:"id"`
	Distance          int               `json:"distance"`
	Purchasable       bool              `json:"purchasable"`
	PurchasableErrors []ErrorDetail     `json:"purchasable_errors"`
	TravelTime        int               `json:"travel_time"`
	Changes           int               `json:"changes"`
	NeedsDocument     bool              `json:"needs_document"`
	BrandIDs          []int             `json:"brand_ids"`
	StartStationID    int               `json:"start_station_id"`
	EndStationID      int               `json:"end_station_id"`
	Arrival           Time              `json:"arrival"`
	Departure         Time              `json:"departure"`
	Bookable          bool              `json:"bookable"`
	ConstrictionInfo  []string          `json:"constriction_info"`
	Trains            []ConnectionTrain `json:"trains"`
	EOLConnectionUUID string            `json:"eol_connection_uuid"`
}

// SpecialCompartmentType is a special seating area (family, quiet zone, ...).
type SpecialCompartmentType struct {
	ID          int    `json:"id"`
	Icon        string `json:"icon"`
	Name        string `json:"name"`
	Information string `json:"information"`
	Terms       string `json:"terms"`
}

// Seat is the reservation state of one seat.
type Seat struct {
	CarriageNr               string `json:"carriage_nr"`
	SeatNr                   string `json:"seat_nr"`
	SpecialCompartmentTypeID int    `json:"special_compartment_type_id"`
	State                    string `json:"state"`
	PlacementID              int    `json:"placement_id"`
}

// SeatsAvailability lists seat states for one place type of a train.
type SeatsAvailability struct {
	SpecialCompartmentTypes []SpecialCompartmentType `json:"special_compartment_types"`
	Seats                   []Seat                   `json:"seats"`
}

// Price is the cheapest ticket for a connection.
type Price struct {
	ID               int      `json:"id"`
	ConnectionID     int      `json:"connection_id"`
	Value            string   `json:"value"`
	TariffIDs        []int    `json:"tariff_ids"`
	TariffNames      []string `json:"tariff_names"`
	Validity         string   `json:"validity"`
	DocumentRequired bool     `json:"document_required"`
	ValidHours       float64  `json:"valid_hours"`
	BikeAvailable    bool     `json:"bike_available"`
	BikePrice        string   `json:"bike_price"`
	TwoWay           bool     `json:"two_way"`
	Warning          string   `json:"warning"`
}

// PlaceType is a bookable place category; it nests sub-categories.
type PlaceType struct {
	ID                  *int        `json:"id"`
	Icon                string      `json:"icon"`
	PlaceTypesLabel     string      `json:"place_types_label"`
	Name                string      `json:"name"`
	Price               float64     `json:"price"`
	BasePrice           float64     `json:"base_price"`
	UnavailableHelpText string      `json:"unavailable_help_text"`
	Available           bool        `json:"available"`
	Selected            bool        `json:"selected"`
	Uncertain           bool        `json:"uncertain"`
	Capacity            int         `json:"capacity"`
	PlaceTypes          []PlaceType `json:"place_types"`
}

// TrainPlaceType binds a place type tree to a train of a connection.
type TrainPlaceType struct {
	ID        int       `json:"id"`
	TrainNr   int       `json:"train_nr"`
	PlaceType PlaceType `json:"place_type"`
}

// NestedTrainPlaceTypes is the place type tree for every train of a connection.
type NestedTrainPlaceTypes struct {
	TrainPlaceTypes []TrainPlaceType `json:"train_place_types"`
}

// Session is the current authenticated session.
type Session struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Passenger is a saved passenger profile.
type Passenger struct {
	ID              int    `json:"id"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	DiscountID      int    `json:"discount_id"`
	DiscountCardIDs []int  `json:"discount_card_ids"`
	Birthday        string `json:"birthday"`
	Fellow          bool   `json:"fellow"`
	IsSelected      bool   `json:"is_selected"`
	Active          bool   `json:"active"`
}

// User is an account record.
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	PassengerID int    `json:"passenger_id"`
	WalletID    int    `json:"wallet_id"`
	LKAWalletID int    `json:"lka_wallet_id"`
	MoneyBack   bool   `json:"money_back"`
}

// Wallet holds a balance in grosze (8.75 zł is 875).
type Wallet struct {
	ID              int    `json:"id"`
	Balance         int    `json:"balance"`
	LastTransaction string `json:"last_transaction"`
}

// CurrentUser is the account overview of the authenticated user.
type CurrentUser struct {
	Passengers []Passenger `json:"passengers"`
	Users      []User      `json:"users"`
	Wallets    []Wallet    `json:"wallets"`
	LKAWallets []Wallet    `json:"lka_wallets"`
}

// TrainComposition is the carriage order of a train.
type TrainComposition struct {
	Direction struct {
		Type             string `json:"type"`
		Direction        string `json:"direction"`
		ReversingOnRoute bool   `json:"reversingOnRoute"`
	} `json:"direction"`
	Carriages []struct {
		Position       int    `json:"positon"`
		Number         string `json:"number"`
		CarriageTypeID int    `json:"carriage_type_id"`
		Bookable       bool   `json:"bookable"`
		IsDefault      bool   `json:"is_default"`
	} `json:"carriages"`
}

// CarriageSeat is a seat position on a carriage layout.
type CarriageSeat struct {
	Nr                int    `json:"nr"`
	SeatTypeID        int    `json:"seat_type_id"`
	X                 int    `json:"x"`
	Y                 int    `json:"y"`
	Color             string `json:"color"`
	CompartmentTypeID *int   `json:"compartment_type_id"`
	PlacementID       *int   `json:"placement_id"`
}

// CarriageType is a carriage layout.
type CarriageType struct {
	ID        int            `json:"id"`
	Key       string         `json:"key"`
	ImageKey  string         `json:"image_key"`
	Seats     []CarriageSeat `json:"seats"`
	SeatTypes []struct {
		ID     int    `json:"id"`
		Key    string `json:"key"`
		Width  int    `json:"width"`
		Height int    `json:"height"`
	} `json:"seat_types"`
}

// StationKeyword is an alternative search keyword for a station.
type StationKeyword struct {
	ID        int    `json:"id"`
	Keyword   string `json:"keyword"`
	StationID int    `json:"station_id"`
}

// TrainAttribute is a train feature or restriction definition.
type TrainAttribute struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	ShortName string `json:"short_name"`
	Rank      int    `json:"rank"`
	Warning   bool   `json:"warning"`
}

// AttributeAnnotation references a TrainAttribute with free text.
type AttributeAnnotation struct {
	AttributeDefinitionID int    `json:"attribute_definition_id"`
	Annotation            string `json:"annotation"`
}

// LegStop is a stop within a v3 train leg.
type LegStop struct {
	StationID         int    `json:"station_id"`
	Arrival           Time   `json:"arrival"`
	Departure         Time   `json:"departure"`
	CommercialBrandID int    `json:"commercial_brand_id"`
	InternalBrandID   int    `json:"internal_brand_id"`
	TrainNr           int    `json:"train_nr"`
	Platform          string `json:"platform"`
	Track             string `json:"track"`
	ForAlighting      bool   `json:"for_alighting"`
	ForBoarding       bool   `json:"for_boarding"`
	RequestStop       bool   `json:"request_stop"`
}

// Leg is one part of a v3 connection. Which fields are set depends on LegType.
type Leg struct {
	LegType              string `json:"leg_type"`
	Duration             int    `json:"duration"`
	OriginStationID      int    `json:"origin_station_id"`
	DestinationStationID int    `json:"destination_station_id"`
	Departure            Time   `json:"departure"`
	Arrival              Time   `json:"arrival"`

	// train_leg
	TrainID           int                   `json:"train_id"`
	TrainNr           int                   `json:"train_nr"`
	TrainName         string                `json:"train_name"`
	TrainFullName     string                `json:"train_full_name"`
	OperatingDay      string                `json:"operating_day"`
	CommercialBrandID int                   `json:"commercial_brand_id"`
	InternalBrandID   int                   `json:"internal_brand_id"`
	Constrictions     []AttributeAnnotation `json:"constrictions"`
	DeparturePlatform string                `json:"departure_platform"`
	DepartureTrack    string                `json:"departure_track"`
	ArrivalPlatform   string                `json:"arrival_platform"`
	ArrivalTrack      string                `json:"arrival_track"`
	StopsBeforeLeg    []LegStop             `json:"stops_before_leg"`
	StopsInLeg        []LegStop             `json:"stops_in_leg"`
	StopsAfterLeg     []LegStop             `json:"stops_after_leg"`
	Attributes        []AttributeAnnotation `json:"attributes"`

	// station_change_leg
	StationID int `json:"station_id"`

	// walk_leg
	FootpathDuration int `json:"footpath_duration"`
}

// ConnectionV3 is a v3 search result.
type ConnectionV3 struct {
	UUID                 string                `json:"uuid"`
	EOLResponseVersion   int                   `json:"eol_response_version"`
	Departure            Time                  `json:"departure"`
	Arrival              Time                  `json:"arrival"`
	OriginStationID      int                   `json:"origin_station_id"`
	DestinationStationID int                   `json:"destination_station_id"`
	Duration             int                   `json:"duration"`
	Changes              int                   `json:"changes"`
	Constrictions        []AttributeAnnotation `json:"constrictions"`
	Legs                 []Leg                 `json:"legs"`
}

// PriceV3 is the price of a v3 connection.
type PriceV3 struct {
	Price                   string        `json:"price"`
	Uncertain               bool          `json:"uncertain"`
	PriceLabel              string        `json:"price_label"`
	IsChildBirthdayRequired bool          `json:"is_child_birthday_required"`
	NeedsDocument           bool          `json:"needs_document"`
	Purchasable             bool          `json:"purchasable"`
	PurchasableErrors       []ErrorDetail `json:"purchasable_errors"`
	PricePerPassengers      []struct {
		Value       string `json:"value"`
		PassengerID *int   `json:"passenger_id"`
	} `json:"price_per_passengers"`
	AdditionalInfo string `json:"additional_info"`
}

// CarrierLine is a line operated by a carrier.
type CarrierLine struct {
	StartStationName string `json:"start_station_name"`
	StartStationSlug string `json:"start_station_slug"`
	EndStationName   string `json:"end_station_name"`
	EndStationSlug   string `json:"end_station_slug"`
}

// ConnectionQuery selects connections for the v2 and v3 searches.
type ConnectionQuery struct {
	StartSlug       string
	EndSlug         string
	StartID         int
	EndID           int
	BrandIDs        []int
	Date            time.Time
	Direct          bool
	OnlyPurchasable bool
}
