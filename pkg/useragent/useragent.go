// Package useragent classifies User-Agent strings into human-readable
// device, operating system, and browser identifiers for session metadata
// display ("which devices am I logged in on?").
//
// Classification is backed by github.com/mileusna/useragent. Unknown or
// empty strings degrade gracefully rather than failing the caller.
package useragent

import (
	"errors"
	"strings"

	mua "github.com/mileusna/useragent"
)

// ErrEmptyUserAgent is returned when parsing an empty string.
var ErrEmptyUserAgent = errors.New("empty user agent")

// Device type identifiers returned by UserAgent.Device.
const (
	DeviceDesktop = "Desktop"
	DeviceMobile  = "Mobile"
	DeviceTablet  = "Tablet"
	DeviceBot     = "Bot"
	DeviceOther   = "Other"
)

// UserAgent holds a parsed User-Agent string.
type UserAgent struct {
	parsed mua.UserAgent
}

// Parse classifies a User-Agent string.
func Parse(raw string) (UserAgent, error) {
	if strings.TrimSpace(raw) == "" {
		return UserAgent{}, ErrEmptyUserAgent
	}
	return UserAgent{parsed: mua.Parse(raw)}, nil
}

// Device returns the device class: Desktop, Mobile, Tablet, Bot, or Other.
func (u UserAgent) Device() string {
	switch {
	case u.parsed.Bot:
		return DeviceBot
	case u.parsed.Tablet:
		return DeviceTablet
	case u.parsed.Mobile:
		return DeviceMobile
	case u.parsed.Desktop:
		return DeviceDesktop
	default:
		return DeviceOther
	}
}

// OS returns the operating system with its version when known,
// e.g. "Windows 10.0" or "iOS 17.1".
func (u UserAgent) OS() string {
	if u.parsed.OS == "" {
		return "Unknown"
	}
	return strings.TrimSpace(u.parsed.OS + " " + u.parsed.OSVersion)
}

// Browser returns the browser name with its version when known,
// e.g. "Chrome 58.0.3029.110".
func (u UserAgent) Browser() string {
	if u.parsed.Name == "" {
		return "Unknown"
	}
	return strings.TrimSpace(u.parsed.Name + " " + u.parsed.Version)
}

// GetShortIdentifier returns a compact display string for logs and device
// lists, e.g. "Chrome 58.0.3029.110 (Windows 10.0, Desktop)".
func (u UserAgent) GetShortIdentifier() string {
	return u.Browser() + " (" + u.OS() + ", " + u.Device() + ")"
}
