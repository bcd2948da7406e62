package utils

import (
	"fmt"
	"time"
	_ "time/tzdata" // fixed zones must resolve on hosts without a zoneinfo database
)

// Supported locales.
const (
	LocaleKorean  = "ko-KR"
	LocaleEnglish = "en-US"
)

// Clock renders timestamps in one fixed zone and locale, independent of the host settings.
type Clock struct {
	Location *time.Location
	Locale   string
}

// NewClock loads the named zone. An unknown locale falls back to ko-KR.
func NewClock(zone, locale string) (*Clock, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", zone, err)
	}
	if locale != LocaleEnglish {
		locale = LocaleKorean
	}
	return &Clock{Location: loc, Locale: locale}, nil
}

// Format renders t the way the locale's default date-time string looks,
// e.g. "2024. 1. 5. 오후 3:04:05" for ko-KR or "1/5/2024, 3:04:05 PM" for en-US.
func (c *Clock) Format(t time.Time) string {
	t = t.In(c.Location)
	if c.Locale == LocaleEnglish {
		return t.Format("1/2/2006, 3:04:05 PM")
	}
	meridiem := "오전"
	if t.Hour() >= 12 {
		meridiem = "오후"
	}
	hour := t.Hour() % 12
	if hour == 0 {
		hour = 12
	}
	return fmt.Sprintf("%d. %d. %d. %s %d:%02d:%02d", t.Year(), int(t.Month()), t.Day(), meridiem, hour, t.Minute(), t.Second())
}

// ExpiryNotice is the announcement posted in a freshly created channel.
func (c *Clock) ExpiryNotice(expiresAt time.Time) string {
	if c.Locale == LocaleEnglish {
		return fmt.Sprintf("This channel will be archived and deleted at **%s**.", c.Format(expiresAt))
	}
	return fmt.Sprintf("이 채널은 **%s** 에 아카이브 후 삭제됩니다.", c.Format(expiresAt))
}

// FormatAge renders a channel age as whole days and hours.
func FormatAge(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	return fmt.Sprintf("%dd %dh", days, hours)
}
