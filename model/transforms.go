package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Nested presents a raw object as a record of the given kind. A null raw
// value stays nil.
func Nested(kind *Kind) Transform {
	return func(_ *Model, raw any) (any, error) {
		if raw == nil {
			return nil, nil
		}
		return Wrap(kind, raw), nil
	}
}

// NestedList presents a raw array as a list of records of the given kind.
func NestedList(kind *Kind) Transform {
	return func(_ *Model, raw any) (any, error) {
		if raw == nil {
			return NewList(kind, []any{}), nil
		}
		return NewList(kind, raw), nil
	}
}

// Identity returns the raw value. It is used to expose a raw form next to a
// derived one, e.g. raw_time beside time.
func Identity(_ *Model, raw any) (any, error) {
	return raw, nil
}

// TeamNumberFromKey turns "frc254" into 254.
func TeamNumberFromKey(_ *Model, raw any) (any, error) {
	key, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("team key is %T: %w", raw, ErrInvalidValue)
	}
	return ParseTeamKey(key)
}

// TeamNumbersFromKeys turns ["frc254", "frc971"] into []int{254, 971}.
func TeamNumbersFromKeys(_ *Model, raw any) (any, error) {
	keys, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("team keys are %T: %w", raw, ErrInvalidValue)
	}
	numbers := make([]int, 0, len(keys))
	for _, k := range keys {
		n, err := TeamNumberFromKey(nil, k)
		if err != nil {
			return nil, err
		}
		numbers = append(numbers, n.(int))
	}
	return numbers, nil
}

// ParseTeamKey returns the team number encoded in a team key.
func ParseTeamKey(key string) (int, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(key, "frc"))
	if err != nil || !strings.HasPrefix(key, "frc") {
		return 0, fmt.Errorf("team key %q: %w", key, ErrInvalidValue)
	}
	return n, nil
}

// UnixTime converts epoch seconds to a UTC time. A null raw value stays nil.
func UnixTime(_ *Model, raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}
	secs, ok := toFloat(raw)
	if !ok {
		return nil, fmt.Errorf("epoch is %T: %w", raw, ErrInvalidValue)
	}
	return time.Unix(int64(secs), 0).UTC(), nil
}

// Date parses a YYYY-MM-DD date.
func Date(_ *Model, raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}
	s, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("date is %T: %w", raw, ErrInvalidValue)
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, fmt.Errorf("date %q: %w", s, ErrInvalidValue)
	}
	return t, nil
}

func keyString(field string) func(m *Model) (string, error) {
	return func(m *Model) (string, error) { return m.GetString(field) }
}

func keyInt(field string) func(m *Model) (int, error) {
	return func(m *Model) (int, error) { return m.GetInt(field) }
}
