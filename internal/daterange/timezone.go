package daterange

import (
	"strings"
	"time"
)

// countryZones maps 2-letter country codes to a representative IANA zone.
// eBird region codes are hierarchical (country[-subdivision[-county]]), so a
// subnational code resolves through its country prefix.
var countryZones = map[string]string{
	"AE": "Asia/Dubai",
	"AR": "America/Argentina/Buenos_Aires",
	"AT": "Europe/Vienna",
	"AU": "Australia/Sydney",
	"BE": "Europe/Brussels",
	"BR": "America/Sao_Paulo",
	"CA": "America/Toronto",
	"CH": "Europe/Zurich",
	"CL": "America/Santiago",
	"CN": "Asia/Shanghai",
	"CO": "America/Bogota",
	"CR": "America/Costa_Rica",
	"CZ": "Europe/Prague",
	"DE": "Europe/Berlin",
	"DK": "Europe/Copenhagen",
	"EC": "America/Guayaquil",
	"EG": "Africa/Cairo",
	"ES": "Europe/Madrid",
	"FI": "Europe/Helsinki",
	"FR": "Europe/Paris",
	"GB": "Europe/London",
	"GR": "Europe/Athens",
	"HK": "Asia/Hong_Kong",
	"ID": "Asia/Jakarta",
	"IE": "Europe/Dublin",
	"IL": "Asia/Jerusalem",
	"IN": "Asia/Kolkata",
	"IT": "Europe/Rome",
	"JP": "Asia/Tokyo",
	"KE": "Africa/Nairobi",
	"KR": "Asia/Seoul",
	"LK": "Asia/Colombo",
	"MX": "America/Mexico_City",
	"MY": "Asia/Kuala_Lumpur",
	"NL": "Europe/Amsterdam",
	"NO": "Europe/Oslo",
	"NP": "Asia/Kathmandu",
	"NZ": "Pacific/Auckland",
	"PA": "America/Panama",
	"PE": "America/Lima",
	"PH": "Asia/Manila",
	"PL": "Europe/Warsaw",
	"PT": "Europe/Lisbon",
	"SE": "Europe/Stockholm",
	"SG": "Asia/Singapore",
	"TH": "Asia/Bangkok",
	"TR": "Europe/Istanbul",
	"TW": "Asia/Taipei",
	"US": "America/New_York",
	"VN": "Asia/Ho_Chi_Minh",
	"ZA": "Africa/Johannesburg",
}

// Timezone resolves a region code to a usable location. Subnational codes
// fall back to their country prefix; anything unresolvable falls back to the
// host zone, so the result is always usable.
func (r *Resolver) Timezone(regionCode string) *time.Location {
	code := strings.ToUpper(strings.TrimSpace(regionCode))
	if i := strings.IndexByte(code, '-'); i > 0 {
		code = code[:i]
	}
	name, ok := countryZones[code]
	if !ok {
		return r.fallback
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return r.fallback
	}
	return loc
}

// zoneAbbrev returns the timezone abbreviation in effect at t, or "Local"
// when the platform yields nothing usable.
func zoneAbbrev(t time.Time) string {
	name, _ := t.Zone()
	if name == "" {
		return "Local"
	}
	return name
}
