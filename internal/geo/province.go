package geo

import (
	"errors"
	"fmt"
)

var ErrUnknownProvince = errors.New("unknown province code")

// Province is a province or territory keyed by its Statistics Canada PRUID.
type Province struct {
	Code int    `json:"code"`
	Abbr string `json:"abbr"`
	Name string `json:"name"`
}

// Provinces lists the thirteen provinces and territories in PRUID order.
var Provinces = []Province{
	{10, "NL", "Newfoundland and Labrador"},
	{11, "PE", "Prince Edward Island"},
	{12, "NS", "Nova Scotia"},
	{13, "NB", "New Brunswick"},
	{24, "QC", "Quebec"},
	{35, "ON", "Ontario"},
	{46, "MB", "Manitoba"},
	{47, "SK", "Saskatchewan"},
	{48, "AB", "Alberta"},
	{59, "BC", "British Columbia"},
	{60, "YT", "Yukon"},
	{61, "NT", "Northwest Territories"},
	{62, "NU", "Nunavut"},
}

// ProvinceByCode looks up a PRUID.
func ProvinceByCode(code int) (Province, error) {
	for _, p := range Provinces {
		if p.Code == code {
			return p, nil
		}
	}
	return Province{}, fmt.Errorf("%w: %d", ErrUnknownProvince, code)
}

// ProvinceForRiding derives the province from the riding number's leading
// two digits (35001 -> Ontario).
func ProvinceForRiding(riding int) (Province, error) {
	p, err := ProvinceByCode(riding / 1000)
	if err != nil {
		return Province{}, fmt.Errorf("riding %d: %w", riding, err)
	}
	return p, nil
}
