package sim

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidName is returned when a name breaks the naming convention.
var ErrInvalidName = errors.New("invalid name")

// CheckName reports whether a name follows the naming convention.
//
//  1. It is hierarchical, with elements separated by dots ("Plant.Heater").
//  2. No element is empty ("Plant..Heater" is not valid).
//  3. Every element starts with a capital letter and holds no "_", "-",
//     or quotes.
//  4. Elements in a series use square-bracket indices ("Zone[3].Temp").
func CheckName(name string) error {
	for _, token := range strings.Split(name, ".") {
		if err := checkNameToken(token); err != nil {
			return fmt.Errorf("%w: %q: %s", ErrInvalidName, name, err)
		}
	}

	return nil
}

// NameMustBeValid panics if the name does not follow the naming convention.
func NameMustBeValid(name string) {
	if err := CheckName(name); err != nil {
		panic(err.Error())
	}
}

func checkNameToken(token string) error {
	elem, indexPart, _ := strings.Cut(token, "[")
	if elem == "" {
		return errors.New("name element must not be empty")
	}

	if strings.ContainsAny(elem, "_\"'-]") {
		return errors.New("name element must not contain _, -, ] or quotes")
	}

	if elem[0] < 'A' || elem[0] > 'Z' {
		return errors.New("name element must start with a capital letter")
	}

	if indexPart == "" {
		if strings.Contains(token, "[") {
			return errors.New("name bracket must match")
		}

		return nil
	}

	for _, idx := range strings.Split("["+indexPart, "[")[1:] {
		if !strings.HasSuffix(idx, "]") {
			return errors.New("name bracket must match")
		}

		if _, err := strconv.Atoi(strings.TrimSuffix(idx, "]")); err != nil {
			return errors.New("name index must be integer")
		}
	}

	return nil
}

// BuildName builds a name from a parent name and an element name.
func BuildName(parentName, elementName string) string {
	if parentName == "" {
		return elementName
	}

	return parentName + "." + elementName
}

// BuildNameWithIndex builds a name from a parent name, an element name and an
// index.
func BuildNameWithIndex(parentName, elementName string, index int) string {
	return BuildName(parentName, elementName+"["+strconv.Itoa(index)+"]")
}
