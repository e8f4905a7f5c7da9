package fatfs

import (
	"time"
)

// Bit layout of the 16 bit DOS date and time fields. Bit 0 is the LSB.
const (
	dateDayMask    = 0x001F // 1-31
	dateMonthMask  = 0x01E0 // 1-12
	dateMonthShift = 5
	dateYearMask   = 0xFE00 // years since 1980
	dateYearShift  = 9

	timeSecondMask  = 0x001F // seconds / 2
	timeMinuteMask  = 0x07E0
	timeMinuteShift = 5
	timeHourMask    = 0xF800
	timeHourShift   = 11

	dosEpochYear = 1980
	dosLastYear  = dosEpochYear + 127
)

// ParseDate reads a DOS date stamp:
//  Bits 0–4: Day of month, 1-31.
//  Bits 5–8: Month of year, 1-12.
//  Bits 9–15: Count of years from 1980, 0-127 (1980–2107).
// The result always has a time of 00:00:00 UTC.
//
// Day or month 0 is invalid. In that case time.Time{} is returned, so time.Time.IsZero() can be used.
// A month bigger than 12 is not specified and rolls over into the next year.
func ParseDate(input uint16) time.Time {
	day := int(input & dateDayMask)
	month := int(input&dateMonthMask) >> dateMonthShift
	year := int(input&dateYearMask) >> dateYearShift

	if day == 0 || month == 0 {
		return time.Time{}
	}

	return time.Date(dosEpochYear+year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// ParseTime reads a DOS time stamp with a granularity of 2 seconds:
//  Bits 0–4: 2-second count, 0–29 (0–58 seconds).
//  Bits 5–10: Minutes, 0–59.
//  Bits 11–15: Hours, 0–23.
// The result is always on January 1, year 1, so midnight is time.Time.IsZero().
//
// Out of range values are added onto the time, capped at 23:59:59.
func ParseTime(input uint16) time.Time {
	seconds := int(input&timeSecondMask) * 2
	minutes := int(input&timeMinuteMask) >> timeMinuteShift
	hours := int(input&timeHourMask) >> timeHourShift

	result := time.Date(1, 1, 1, hours, minutes, seconds, 0, time.UTC)
	if result.Day() > 1 {
		return time.Date(1, 1, 1, 23, 59, 59, 0, time.UTC)
	}

	return result
}

// FormatDate encodes the date part of t as DOS date stamp.
// Dates before 1980 or after 2107 are clamped to the representable range.
func FormatDate(t time.Time) uint16 {
	switch {
	case t.Year() < dosEpochYear:
		t = time.Date(dosEpochYear, 1, 1, 0, 0, 0, 0, time.UTC)
	case t.Year() > dosLastYear:
		t = time.Date(dosLastYear, 12, 31, 0, 0, 0, 0, time.UTC)
	}

	var d uint16
	d |= uint16(t.Year()-dosEpochYear) << dateYearShift & dateYearMask
	d |= uint16(t.Month()) << dateMonthShift & dateMonthMask
	d |= uint16(t.Day()) & dateDayMask
	return d
}

// FormatTime encodes the time of day of t as DOS time stamp. Odd seconds are rounded down.
func FormatTime(t time.Time) uint16 {
	var v uint16
	v |= uint16(t.Hour()) << timeHourShift & timeHourMask
	v |= uint16(t.Minute()) << timeMinuteShift & timeMinuteMask
	v |= uint16(t.Second()/2) & timeSecondMask
	return v
}
