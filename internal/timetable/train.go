package timetable

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidTrainName is returned for train names that do not start with a number.
var ErrInvalidTrainName = errors.New("invalid train name")

// TrainName is a train number with its optional name, e.g. 1106 "Esperanto".
type TrainName struct {
	Number int
	Name   string
}

// ParseTrainName splits "1106 Esperanto" into number and name.
func ParseTrainName(s string) (TrainName, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return TrainName{}, fmt.Errorf("%w: empty", ErrInvalidTrainName)
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil || n < 0 {
		return TrainName{}, fmt.Errorf("%w: %q must start with the train number", ErrInvalidTrainName, s)
	}
	return TrainName{Number: n, Name: strings.Join(fields[1:], " ")}, nil
}

// String renders the name as typed on the command line.
func (t TrainName) String() string {
	if t.Name == "" {
		return strconv.Itoa(t.Number)
	}
	return strconv.Itoa(t.Number) + " " + t.Name
}

// URLPath renders the name as used in website links: "1106-ESPERANTO%20BIS".
func (t TrainName) URLPath() string {
	if t.Name == "" {
		return strconv.Itoa(t.Number)
	}
	return strconv.Itoa(t.Number) + "-" + strings.ReplaceAll(t.Name, " ", "%20")
}
