// Copyright (c) Microsoft Corporation.
// Licensed under the MIT license.

// Package time provides for custom types to translate time from JSON and other formats
// into time.Time objects.
package time

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DurationTime provides a type that can marshal and unmarshal a string or number representation
// of a duration from now into a time.Time object. The token endpoint replies with "expires_in",
// the seconds from now that the token expires, and we record the time it expires on.
type DurationTime struct {
	T time.Time
}

// MarshalJSON implements encoding/json.MarshalJSON().
func (d DurationTime) MarshalJSON() ([]byte, error) {
	if d.T.IsZero() {
		return []byte("0"), nil
	}

	dt := time.Until(d.T)
	if dt < 0 {
		dt = 0
	}
	return []byte(strconv.FormatInt(int64(dt/time.Second), 10)), nil
}

// UnmarshalJSON implements encoding/json.UnmarshalJSON(). Both 3599 and "3599" are accepted;
// v1 endpoints quote the number.
func (d *DurationTime) UnmarshalJSON(b []byte) error {
	str := strings.Trim(string(b), `"`)
	if str == "" || str == "null" {
		return nil
	}

	i, err := strconv.ParseInt(str, 10, 64)
	if err != nil {
		return fmt.Errorf("duration(%s) could not be converted from string to int: %w", string(b), err)
	}
	d.T = time.Now().Add(time.Duration(i) * time.Second)
	return nil
}
