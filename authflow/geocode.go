package authflow

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// Placemark is a reverse-geocoded address. Fields the lookup could not
// resolve hold "Unknown".
type Placemark struct {
	Address string
	City    string
	State   string
	Country string
	Pincode string
}

// Geocoder turns a coordinate pair into a Placemark. Implementations never
// fail the onboarding step: on any lookup error they return Unknown
// placeholders.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lng float64) Placemark
}

const (
	bigDataCloudURL = "https://api.bigdatacloud.net/data/reverse-geocode-client?latitude=%f&longitude=%f&localityLanguage=en"
	nominatimURL    = "https://nominatim.openstreetmap.org/reverse?format=json&lat=%f&lon=%f&zoom=18&addressdetails=1"
	unknown         = "Unknown"
)

// HTTPGeocoder resolves addresses via BigDataCloud, falling back to
// OpenStreetMap Nominatim when that fails.
type HTTPGeocoder struct {
	http         *http.Client
	bigDataCloud string
	nominatim    string
}

// NewHTTPGeocoder creates the default geocoder chain. client may be nil.
func NewHTTPGeocoder(client *http.Client) *HTTPGeocoder {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPGeocoder{
		http:         client,
		bigDataCloud: bigDataCloudURL,
		nominatim:    nominatimURL,
	}
}

// ReverseGeocode implements Geocoder.
func (g *HTTPGeocoder) ReverseGeocode(ctx context.Context, lat, lng float64) Placemark {
	if place, err := g.lookupBigDataCloud(ctx, lat, lng); err == nil {
		return place
	} else {
		log.Printf("geocode: bigdatacloud lookup failed, trying nominatim: %v", err)
	}
	if place, err := g.lookupNominatim(ctx, lat, lng); err == nil {
		return place
	} else {
		log.Printf("geocode: nominatim lookup failed: %v", err)
	}
	return Placemark{Address: unknown, City: unknown, State: unknown, Country: unknown, Pincode: unknown}
}

func (g *HTTPGeocoder) lookupBigDataCloud(ctx context.Context, lat, lng float64) (Placemark, error) {
	var out struct {
		Locality             string `json:"locality"`
		City                 string `json:"city"`
		PrincipalSubdivision string `json:"principalSubdivision"`
		CountryName          string `json:"countryName"`
		Postcode             string `json:"postcode"`
	}
	if err := g.fetch(ctx, fmt.Sprintf(g.bigDataCloud, lat, lng), &out); err != nil {
		return Placemark{}, err
	}
	if out.City == "" && out.Locality == "" {
		return Placemark{}, fmt.Errorf("no locality in response")
	}
	return Placemark{
		Address: orUnknown(firstNonEmpty(out.Locality, out.City)),
		City:    orUnknown(firstNonEmpty(out.City, out.Locality)),
		State:   orUnknown(out.PrincipalSubdivision),
		Country: orUnknown(out.CountryName),
		Pincode: orUnknown(out.Postcode),
	}, nil
}

func (g *HTTPGeocoder) lookupNominatim(ctx context.Context, lat, lng float64) (Placemark, error) {
	var out struct {
		DisplayName string `json:"display_name"`
		Address     struct {
			City          string `json:"city"`
			Town          string `json:"town"`
			Village       string `json:"village"`
			Suburb        string `json:"suburb"`
			County        string `json:"county"`
			State         string `json:"state"`
			Region        string `json:"region"`
			Country       string `json:"country"`
			Postcode      string `json:"postcode"`
			StateDistrict string `json:"state_district"`
		} `json:"address"`
	}
	if err := g.fetch(ctx, fmt.Sprintf(g.nominatim, lat, lng), &out); err != nil {
		return Placemark{}, err
	}
	addr := out.Address
	return Placemark{
		Address: orUnknown(out.DisplayName),
		City:    orUnknown(firstNonEmpty(addr.City, addr.Town, addr.Village, addr.Suburb, addr.County, addr.StateDistrict)),
		State:   orUnknown(firstNonEmpty(addr.State, addr.Region)),
		Country: orUnknown(addr.Country),
		Pincode: orUnknown(addr.Postcode),
	}, nil
}

func (g *HTTPGeocoder) fetch(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "HealthSync-App")

	resp, err := g.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("lookup returned status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func orUnknown(v string) string {
	if v == "" {
		return unknown
	}
	return v
}
