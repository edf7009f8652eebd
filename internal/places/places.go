// Package places holds the static lookup tables mapping user-typed region
// and species names to upstream codes.
package places

import "strings"

// regionCodes maps lowercase country/region names to eBird region codes.
var regionCodes = map[string]string{
	"argentina":      "AR",
	"australia":      "AU",
	"austria":        "AT",
	"belgium":        "BE",
	"brazil":         "BR",
	"canada":         "CA",
	"chile":          "CL",
	"china":          "CN",
	"colombia":       "CO",
	"costa rica":     "CR",
	"denmark":        "DK",
	"ecuador":        "EC",
	"finland":        "FI",
	"france":         "FR",
	"germany":        "DE",
	"greece":         "GR",
	"hong kong":      "HK",
	"india":          "IN",
	"indonesia":      "ID",
	"ireland":        "IE",
	"israel":         "IL",
	"italy":          "IT",
	"japan":          "JP",
	"kenya":          "KE",
	"malaysia":       "MY",
	"mexico":         "MX",
	"nepal":          "NP",
	"netherlands":    "NL",
	"new zealand":    "NZ",
	"norway":         "NO",
	"panama":         "PA",
	"peru":           "PE",
	"philippines":    "PH",
	"poland":         "PL",
	"portugal":       "PT",
	"singapore":      "SG",
	"south africa":   "ZA",
	"south korea":    "KR",
	"spain":          "ES",
	"sri lanka":      "LK",
	"sweden":         "SE",
	"switzerland":    "CH",
	"taiwan":         "TW",
	"thailand":       "TH",
	"turkey":         "TR",
	"uae":            "AE",
	"uk":             "GB",
	"united kingdom": "GB",
	"united states":  "US",
	"usa":            "US",
	"vietnam":        "VN",
}

// speciesCodes maps lowercase common names to eBird species codes. A small
// curated set; anything else goes through the upstream taxonomy search.
var speciesCodes = map[string]string{
	"asian koel":            "asikoe2",
	"barn owl":              "brnowl",
	"black-naped oriole":    "blnori1",
	"blue jay":              "blujay",
	"collared kingfisher":   "colkin1",
	"common kingfisher":     "comkin1",
	"crimson sunbird":       "crisun2",
	"house sparrow":         "houspa",
	"javan myna":            "javmyn",
	"little egret":          "litegr",
	"olive-backed sunbird":  "olbsun4",
	"oriental magpie-robin": "magrob",
	"oriental pied hornbill": "orphor1",
	"peregrine falcon":      "perfal",
	"pink-necked green pigeon": "pngpig1",
	"red junglefowl":        "redjun",
	"rock pigeon":           "rocpig",
	"white-bellied sea eagle": "wbseag1",
	"zebra dove":            "zebdov",
}

// RegionCode resolves a typed region name to its code. Inputs that already
// look like a region code (e.g. "SG", "US-NY") pass through uppercased.
func RegionCode(name string) (string, bool) {
	trimmed := strings.TrimSpace(name)
	if code, ok := regionCodes[strings.ToLower(trimmed)]; ok {
		return code, true
	}
	if looksLikeRegionCode(trimmed) {
		return strings.ToUpper(trimmed), true
	}
	return "", false
}

// SpeciesCode resolves a typed common name to its species code.
func SpeciesCode(name string) (string, bool) {
	code, ok := speciesCodes[strings.ToLower(strings.TrimSpace(name))]
	return code, ok
}

// looksLikeRegionCode accepts hierarchical codes: 2-letter country, then
// optional alphanumeric subdivision segments joined by dashes.
func looksLikeRegionCode(s string) bool {
	parts := strings.Split(s, "-")
	if len(parts[0]) != 2 {
		return false
	}
	for i, p := range parts {
		if p == "" {
			return false
		}
		for _, r := range p {
			alpha := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
			digit := r >= '0' && r <= '9'
			if i == 0 && !alpha {
				return false
			}
			if !alpha && !digit {
				return false
			}
		}
	}
	return true
}
