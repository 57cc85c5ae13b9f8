package plans

var latamCountries = []string{
	"AR", "BH", "BO", "BR", "BZ", "CL", "CO", "CR", "EC", "FK", "GF", "GY",
	"GT", "HN", "MX", "NI", "PA", "PY", "PE", "SR", "SV", "UY", "VE",
}

var europeCountries = []string{
	"AT", "BE", "BG", "HR", "CY", "CZ", "DK", "EE", "FI", "FR", "DE", "GR",
	"HU", "IE", "IT", "LV", "LT", "LU", "MT", "NL", "PL", "PT", "RO", "SK",
	"SI", "ES", "SE", "GB",
}

// DefaultRegions maps every country with a discounted plan to its code.
func DefaultRegions() map[string]Code {
	regions := make(map[string]Code, len(latamCountries)+len(europeCountries))
	for _, c := range latamCountries {
		regions[c] = Latam
	}
	for _, c := range europeCountries {
		regions[c] = Europe
	}
	return regions
}
