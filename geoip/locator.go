// Package geoip resolves network addresses to coarse locations using a
// MaxMind GeoIP2 or GeoLite2 City database.
package geoip

import (
	"errors"
	"net"

	"github.com/MrEthical07/goRisk/risk"
	"github.com/oschwald/geoip2-golang"
)

// ErrInvalidAddress is returned when the address is not an IP.
var ErrInvalidAddress = errors.New("invalid IP address")

// Locator implements risk.GeoLocator over a MaxMind database file.
type Locator struct {
	db *geoip2.Reader
}

var _ risk.GeoLocator = (*Locator)(nil)

// Open loads the database at path.
func Open(path string) (*Locator, error) {
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, err
	}
	return &Locator{db: db}, nil
}

// Locate returns the country and city for address.
func (l *Locator) Locate(address string) (risk.Location, error) {
	ip := net.ParseIP(address)
	if ip == nil {
		return risk.Location{}, ErrInvalidAddress
	}

	record, err := l.db.City(ip)
	if err != nil {
		return risk.Location{}, err
	}

	loc := risk.Location{
		CountryCode: record.Country.IsoCode,
		CountryName: record.Country.Names["en"],
	}
	if len(record.City.Names) > 0 {
		loc.City = record.City.Names["en"]
	}
	return loc, nil
}

// Close releases the database.
func (l *Locator) Close() error {
	return l.db.Close()
}
