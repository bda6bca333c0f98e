// Package koleo is a client for the Koleo timetable web service.
package koleo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/koleo-cli/koleo/internal/logging"
)

// Service endpoints and client identification.
const (
	DefaultBaseURL = "https://api.koleo.pl"
	DefaultWebURL  = "https://koleo.pl"
	APIVersion     = "2"
	ClientName     = "Nuxt-1"
	UserAgent      = "Koleo-CLI(https://github.com/koleo-cli/koleo)"

	// TokenCookie is the cookie that carries the bearer token for the
	// seat-booking endpoints.
	TokenCookie = "_koleo_token"

	dateLayout           = "2006-01-02"
	connectionDateLayout = "02-01-2006 15:04:05"
)

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL overrides the API base URL.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithWebURL overrides the website base URL used by endpoints served from it.
func WithWebURL(u string) ClientOption {
	return func(c *Client) { c.webURL = strings.TrimRight(u, "/") }
}

// WithAuth sets the cookie credentials sent on authenticated calls.
func WithAuth(auth map[string]string) ClientOption {
	return func(c *Client) {
		if len(auth) == 0 {
			c.auth = nil
			return
		}
		c.auth = make(map[string]string, len(auth))
		for k, v := range auth {
			c.auth[k] = v
		}
	}
}

// WithHTTP replaces the transport.
func WithHTTP(h *HTTPClient) ClientOption {
	return func(c *Client) { c.http = h }
}

// WithTokenHook registers a callback run when a fresh bearer token is obtained.
func WithTokenHook(fn func(token string)) ClientOption {
	return func(c *Client) { c.onToken = fn }
}

// WithNow replaces the clock used to check token expiry.
func WithNow(now func() time.Time) ClientOption {
	return func(c *Client) { c.now = now }
}

// Client calls the timetable service.
type Client struct {
	http    *HTTPClient
	baseURL string
	webURL  string
	onToken func(string)
	now     func() time.Time

	mu        sync.Mutex
	auth      map[string]string
	authValid bool
}

// NewClient returns a client for the public service.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		http:    NewHTTPClient(),
		baseURL: DefaultBaseURL,
		webURL:  DefaultWebURL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close releases pooled connections.
func (c *Client) Close() {
	c.http.Close()
}

// HasAuth reports whether credentials are configured.
func (c *Client) HasAuth() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.auth) > 0
}

type call struct {
	method  string
	path    string
	query   url.Values
	header  http.Header
	body    []byte
	useAuth bool
}

func (c *Client) resolve(path string) string {
	if strings.HasPrefix(path, "http") {
		return path
	}
	return c.baseURL + path
}

func (c *Client) do(ctx context.Context, cl call) (*Response, error) {
	header := http.Header{}
	header.Set("x-koleo-version", APIVersion)
	header.Set("x-koleo-client", ClientName)
	header.Set("User-Agent", UserAgent)
	for k, vs := range cl.header {
		for _, v := range vs {
			header.Set(k, v)
		}
	}
	if cl.useAuth {
		if cookie := c.cookieHeader(); cookie != "" {
			header.Set("Cookie", cookie)
		}
	}

	req := &Request{
		Method: cl.method,
		URL:    c.resolve(cl.path),
		Query:  cl.query,
		Header: header,
		Body:   cl.body,
	}
	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return nil, err
	}

	trimmed := strings.TrimSpace(string(resp.Body))
	if trimmed == "" || trimmed == "null" {
		return nil, &APIError{
			Kind:       KindNotFound,
			StatusCode: resp.StatusCode,
			Method:     req.Method,
			URL:        req.URL,
			Header:     resp.Header,
		}
	}
	return resp, nil
}

func (c *Client) cookieHeader() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.auth) == 0 {
		return ""
	}
	keys := make([]string, 0, len(c.auth))
	for k := range c.auth {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+c.auth[k])
	}
	return strings.Join(parts, "; ")
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, v any) error {
	return c.callJSON(ctx, call{method: http.MethodGet, path: path, query: query}, v)
}

func (c *Client) callJSON(ctx context.Context, cl call, v any) error {
	resp, err := c.do(ctx, cl)
	if err != nil {
		return err
	}
	if decodeErr := resp.Decode(v); decodeErr != nil {
		return fmt.Errorf("decoding %s response: %w", cl.path, decodeErr)
	}
	return nil
}

// Stations returns every station known to the service.
func (c *Client) Stations(ctx context.Context) ([]Station, error) {
	var out []Station
	err := c.getJSON(ctx, "/v2/main/stations", nil, &out)
	return out, err
}

// FindStation searches stations by name.
func (c *Client) FindStation(ctx context.Context, query, language string) ([]SearchStation, error) {
	if language == "" {
		language = "pl"
	}
	var out struct {
		Stations []SearchStation `json:"stations"`
	}
	err := c.getJSON(ctx, "/ls", url.Values{"q": {query}, "language": {language}}, &out)
	return out.Stations, err
}

// StationByID returns a station by numeric ID.
func (c *Client) StationByID(ctx context.Context, id int) (Station, error) {
	var out Station
	err := c.getJSON(ctx, fmt.Sprintf("/v2/main/stations/by_id/%d", id), nil, &out)
	return out, err
}

// StationBySlug returns a station by its URL slug.
func (c *Client) StationBySlug(ctx context.Context, slug string) (Station, error) {
	var out Station
	err := c.getJSON(ctx, "/v2/main/stations/by_slug/"+url.PathEscape(slug), nil, &out)
	return out, err
}

// StationInfo returns the station information page.
func (c *Client) StationInfo(ctx context.Context, slug string) (StationDetails, error) {
	var out StationDetails
	err := c.getJSON(ctx, "/v2/main/station_info/"+url.PathEscape(slug), nil, &out)
	return out, err
}

// Departures returns the departures board of a station for one day.
func (c *Client) Departures(ctx context.Context, stationID int, date time.Time) ([]TrainOnStation, error) {
	var out []TrainOnStation
	path := fmt.Sprintf("/v2/main/timetables/%d/%s/departures", stationID, date.Format(dateLayout))
	err := c.getJSON(ctx, path, nil, &out)
	return out, err
}

// Arrivals returns the arrivals board of a station for one day.
func (c *Client) Arrivals(ctx context.Context, stationID int, date time.Time) ([]TrainOnStation, error) {
	var out []TrainOnStation
	path := fmt.Sprintf("/v2/main/timetables/%d/%s/arrivals", stationID, date.Format(dateLayout))
	err := c.getJSON(ctx, path, nil, &out)
	return out, err
}

// TrainCalendars returns the run calendars of a train. The service matches
// named trains only by the upper-cased name.
func (c *Client) TrainCalendars(ctx context.Context, brand string, number int, name string) (TrainCalendarResponse, error) {
	q := url.Values{"brand": {brand}, "nr": {strconv.Itoa(number)}}
	if name != "" {
		q.Set("name", strings.ToUpper(name))
	}
	var out TrainCalendarResponse
	err := c.getJSON(ctx, c.webURL+"/pl/train_calendars", q, &out)
	return out, err
}

// Train returns a train run with its stops.
func (c *Client) Train(ctx context.Context, id int) (TrainDetailResponse, error) {
	var out TrainDetailResponse
	err := c.getJSON(ctx, fmt.Sprintf("%s/pl/trains/%d", c.webURL, id), nil, &out)
	return out, err
}

// Connections searches journeys with the v2 search.
func (c *Client) Connections(ctx context.Context, q ConnectionQuery) ([]Connection, error) {
	params := url.Values{
		"query[date]":             {q.Date.Format(connectionDateLayout)},
		"query[start_station]":    {q.StartSlug},
		"query[end_station]":      {q.EndSlug},
		"query[only_purchasable]": {strconv.FormatBool(q.OnlyPurchasable)},
		"query[only_direct]":      {strconv.FormatBool(q.Direct)},
	}
	for _, id := range q.BrandIDs {
		params.Add("query[brand_ids][]", strconv.Itoa(id))
	}
	var out struct {
		Connections []Connection `json:"connections"`
	}
	err := c.getJSON(ctx, "/v2/main/connections", params, &out)
	return out.Connections, err
}

// Connection returns a single v2 connection.
func (c *Client) Connection(ctx context.Context, id int) (Connection, error) {
	var out Connection
	err := c.getJSON(ctx, fmt.Sprintf("/v2/main/connections/%d", id), nil, &out)
	return out, err
}

// Brands returns all train brands.
func (c *Client) Brands(ctx context.Context) ([]Brand, error) {
	var out []Brand
	err := c.getJSON(ctx, "/v2/main/brands", nil, &out)
	return out, err
}

// Carriers returns all railway operators.
func (c *Client) Carriers(ctx context.Context) ([]Carrier, error) {
	var out []Carrier
	err := c.getJSON(ctx, "/v2/main/carriers", nil, &out)
	return out, err
}

// Discounts returns passenger discount definitions.
func (c *Client) Discounts(ctx context.Context) ([]Discount, error) {
	var out []Discount
	err := c.getJSON(ctx, "/v2/main/discounts", nil, &out)
	return out, err
}

// SeatsAvailability returns seat states of one place type on a train.
func (c *Client) SeatsAvailability(ctx context.Context, connectionID, trainNr, placeType int) (SeatsAvailability, error) {
	var out SeatsAvailability
	path := fmt.Sprintf("/v2/main/seats_availability/%d/%d/%d", connectionID, trainNr, placeType)
	err := c.getJSON(ctx, path, nil, &out)
	return out, err
}

// TrainComposition returns the carriage order of a train.
func (c *Client) TrainComposition(ctx context.Context, connectionID, trainNr, placeType int) (TrainComposition, error) {
	var out TrainComposition
	path := fmt.Sprintf("/v2/main/train_composition/%d/%d/%d", connectionID, trainNr, placeType)
	err := c.getJSON(ctx, path, nil, &out)
	return out, err
}

// CarriageType returns a carriage layout.
func (c *Client) CarriageType(ctx context.Context, id int) (CarriageType, error) {
	var out CarriageType
	err := c.getJSON(ctx, fmt.Sprintf("/v2/main/carriage_types/%d", id), nil, &out)
	return out, err
}

// CarriageTypes returns every carriage layout.
func (c *Client) CarriageTypes(ctx context.Context) ([]CarriageType, error) {
	var out []CarriageType
	err := c.getJSON(ctx, "/v2/main/carriage_types", nil, &out)
	return out, err
}

// StationKeywords returns alternative station search keywords.
func (c *Client) StationKeywords(ctx context.Context) ([]StationKeyword, error) {
	var out []StationKeyword
	err := c.getJSON(ctx, "/v2/main/station_keywords", nil, &out)
	return out, err
}

// Price returns the cheapest ticket for a connection, or nil if none is sold.
func (c *Client) Price(ctx context.Context, connectionID int) (*Price, error) {
	var out struct {
		Price *Price `json:"price"`
	}
	err := c.getJSON(ctx, fmt.Sprintf("%s/pl/prices/%d", c.webURL, connectionID), nil, &out)
	return out.Price, err
}

// CurrentSession returns the session for the configured credentials.
func (c *Client) CurrentSession(ctx context.Context) (Session, error) {
	var out Session
	err := c.callJSON(ctx, call{method: http.MethodGet, path: "/sessions/current", useAuth: true}, &out)
	return out, err
}

// CurrentUser returns the account overview for the configured credentials.
func (c *Client) CurrentUser(ctx context.Context) (CurrentUser, error) {
	if err := c.requireAuth(ctx); err != nil {
		return CurrentUser{}, err
	}
	var out CurrentUser
	err := c.callJSON(ctx, call{method: http.MethodGet, path: "/users/current", useAuth: true}, &out)
	return out, err
}

// SearchConnectionsV3 searches journeys with the v3 search.
func (c *Client) SearchConnectionsV3(ctx context.Context, q ConnectionQuery) ([]ConnectionV3, error) {
	payload := map[string]any{
		"start_id":        q.StartID,
		"end_id":          q.EndID,
		"departure_after": q.Date.Format(naiveLayout),
		"only_direct":     q.Direct,
	}
	if len(q.BrandIDs) > 0 {
		payload["allowed_brands"] = q.BrandIDs
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding search: %w", err)
	}

	header := http.Header{}
	header.Set("Content-Type", "application/json")
	header.Set("accept-eol-response-version", "1")

	var out []ConnectionV3
	err = c.callJSON(ctx, call{
		method: http.MethodPost,
		path:   "/v2/main/eol_connections/search",
		header: header,
		body:   body,
	}, &out)
	return out, err
}

// PriceV3 returns the price of a v3 connection, or nil when it has none.
func (c *Client) PriceV3(ctx context.Context, id string) (*PriceV3, error) {
	if err := validateUUID(id); err != nil {
		return nil, err
	}
	var out PriceV3
	err := c.getJSON(ctx, "/v2/main/eol_connections/"+id+"/price", nil, &out)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ConnectionIDV3 maps a v3 connection UUID to a v2 connection ID.
func (c *Client) ConnectionIDV3(ctx context.Context, id string) (int, error) {
	if err := validateUUID(id); err != nil {
		return 0, err
	}
	var out struct {
		ConnectionID int `json:"connection_id"`
	}
	err := c.callJSON(ctx, call{method: http.MethodPut, path: "/v2/main/eol_connections/" + id + "/connection_id"}, &out)
	return out.ConnectionID, err
}

// CarrierLines returns the lines of a carrier.
func (c *Client) CarrierLines(ctx context.Context, carrierSlug string) ([]CarrierLine, error) {
	var out struct {
		List []CarrierLine `json:"list"`
	}
	err := c.getJSON(ctx, "/v2/main/carrier_lines/"+url.PathEscape(carrierSlug), nil, &out)
	return out.List, err
}

// TrainAttributes returns train attribute definitions.
func (c *Client) TrainAttributes(ctx context.Context) ([]TrainAttribute, error) {
	var out []TrainAttribute
	err := c.getJSON(ctx, "/v2/main/train_attributes", nil, &out)
	return out, err
}

// NestedTrainPlaceTypes returns bookable place types of a connection. It
// needs credentials and a bearer token, which is obtained on first use and
// refreshed once expired.
func (c *Client) NestedTrainPlaceTypes(ctx context.Context, connectionID int) (NestedTrainPlaceTypes, error) {
	if err := c.requireAuth(ctx); err != nil {
		return NestedTrainPlaceTypes{}, err
	}
	token, err := c.bearerToken(ctx, connectionID)
	if err != nil {
		return NestedTrainPlaceTypes{}, err
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	var out NestedTrainPlaceTypes
	err = c.callJSON(ctx, call{
		method:  http.MethodGet,
		path:    fmt.Sprintf("/v2/main/nested_train_place_types/%d", connectionID),
		header:  header,
		useAuth: true,
	}, &out)
	return out, err
}

// requireAuth fails fast without credentials and validates them once per client.
func (c *Client) requireAuth(ctx context.Context) error {
	c.mu.Lock()
	hasAuth, valid := len(c.auth) > 0, c.authValid
	c.mu.Unlock()

	if !hasAuth {
		return ErrAuthRequired
	}
	if valid {
		return nil
	}
	if _, err := c.CurrentSession(ctx); err != nil {
		return fmt.Errorf("validating session: %w", err)
	}

	c.mu.Lock()
	c.authValid = true
	c.mu.Unlock()
	return nil
}

func (c *Client) bearerToken(ctx context.Context, connectionID int) (string, error) {
	c.mu.Lock()
	token := c.auth[TokenCookie]
	c.mu.Unlock()

	if token != "" && !c.tokenExpired(token) {
		return token, nil
	}

	logging.FromContext(ctx).Debug().
		Str("component", "koleo").
		Int("connection_id", connectionID).
		Msg("requesting booking token")

	resp, err := c.do(ctx, call{
		method:  http.MethodPost,
		path:    fmt.Sprintf("/prices/%d/passengers", connectionID),
		useAuth: true,
	})
	if err != nil {
		return "", fmt.Errorf("requesting booking token: %w", err)
	}
	token, ok := resp.Cookie(TokenCookie)
	if !ok || token == "" {
		return "", fmt.Errorf("requesting booking token: response has no %s cookie", TokenCookie)
	}

	c.mu.Lock()
	c.auth[TokenCookie] = token
	c.mu.Unlock()

	if c.onToken != nil {
		c.onToken(token)
	}
	return token, nil
}

// tokenExpired reports whether a JWT's exp claim has passed. Tokens that are
// not JWTs or carry no exp are treated as valid.
func (c *Client) tokenExpired(token string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !exp.After(c.now())
}

func validateUUID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("invalid connection id %q: %w", id, err)
	}
	return nil
}
