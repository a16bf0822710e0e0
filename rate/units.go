// Copyright © 2025-2026 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package rate

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/go-core-stack/throttle/errors"
)

// Unlimited disables limiting for a scope.
const Unlimited int64 = -1

// units accepted as suffix of a byte rate, each one 1024 times the
// previous
var byteUnits = []string{"B", "KB", "MB", "GB"}

// ParseByteRate parses a configured bytes per second value such as
// "1000", "500KB" or "10 MB". Units are matched case-insensitively
// and are binary multiples. An empty value means Unlimited.
func ParseByteRate(value string) (int64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Unlimited, nil
	}

	number, unit := value, ""
	split := strings.IndexFunc(value, func(r rune) bool {
		return !unicode.IsDigit(r) && r != '.' && r != '-'
	})
	if split >= 0 {
		number = strings.TrimSpace(value[:split])
		unit = strings.TrimSpace(value[split:])
	}
	for _, r := range unit {
		if !unicode.IsLetter(r) {
			return 0, errors.Wrapf(errors.MalformedLimitValue, "invalid byte rate %q: unexpected %q in unit", value, r)
		}
	}

	f, err := strconv.ParseFloat(number, 64)
	if err != nil {
		return 0, errors.Wrapf(errors.MalformedLimitValue, "invalid byte rate %q: %s", value, err)
	}

	if unit != "" {
		idx := -1
		for i, u := range byteUnits {
			if strings.EqualFold(u, unit) {
				idx = i
				break
			}
		}
		if idx < 0 {
			return 0, errors.Wrapf(errors.MalformedLimitValue, "invalid byte rate %q: unknown unit %q, expected one of %v", value, unit, byteUnits)
		}
		f *= math.Pow(1024, float64(idx))
	}

	// float64(math.MaxInt64) rounds up to 2^63, which no int64 holds
	if f >= math.MaxInt64 || f <= math.MinInt64 {
		return 0, errors.Wrapf(errors.MalformedLimitValue, "invalid byte rate %q: out of range", value)
	}
	return int64(f), nil
}
