package calc

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/sarchlab/signalflow/sim"
	"github.com/sarchlab/signalflow/unit"
)

// ErrNoProperty is returned when an entity has no property of the requested
// name.
var ErrNoProperty = errors.New("no such property")

// An Entity is something outside the calculation graph whose state a sensor
// can observe.
type Entity interface {
	Property(name string, now sim.VTimeInSec) (float64, error)
}

// SensorKernel reads a named property off an external entity. It keeps no
// state beyond the node's cached update time, input, and output.
type SensorKernel struct {
	Entity   Entity
	Property string
	Unit     unit.Type
}

// NewSensor creates a node that observes a property of an entity.
func NewSensor(name string, entity Entity, property string) *Calculation {
	return NewCalculation(name, &SensorKernel{
		Entity:   entity,
		Property: property,
	})
}

// InitialValue is zero.
func (k *SensorKernel) InitialValue() float64 {
	return 0
}

// OutputUnit is the declared unit of the property.
func (k *SensorKernel) OutputUnit(_ unit.Type) unit.Type {
	return k.Unit
}

// Inputs returns no slots; the entity is the only input.
func (k *SensorKernel) Inputs() []*Input {
	return nil
}

// SampleInput reads the property.
func (k *SensorKernel) SampleInput(
	_ *SampleContext,
	now sim.VTimeInSec,
) (float64, error) {
	return k.Entity.Property(k.Property, now)
}

// Step passes the property value through.
func (k *SensorKernel) Step(s StepState) (Result, error) {
	return Result{Value: s.Input}, nil
}

// Validate requires both the entity and the property name.
func (k *SensorKernel) Validate(owner string) error {
	var errs []error

	if k.Entity == nil {
		errs = append(errs,
			configErrorf(owner, "Entity", "external entity is not set"))
	}

	if k.Property == "" {
		errs = append(errs,
			configErrorf(owner, "Property", "property name is not set"))
	}

	return errors.Join(errs...)
}

// A MapEntity is an entity whose properties are set by whoever owns it. It is
// safe to set properties from another goroutine.
type MapEntity struct {
	lock  sync.RWMutex
	props map[string]float64
}

// NewMapEntity creates an entity with no properties.
func NewMapEntity() *MapEntity {
	return &MapEntity{props: make(map[string]float64)}
}

// Set changes a property.
func (e *MapEntity) Set(name string, v float64) {
	e.lock.Lock()
	e.props[name] = v
	e.lock.Unlock()
}

// Property returns the current value of a property.
func (e *MapEntity) Property(name string, _ sim.VTimeInSec) (float64, error) {
	e.lock.RLock()
	v, ok := e.props[name]
	e.lock.RUnlock()

	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNoProperty, name)
	}

	return v, nil
}

// A FieldEntity exposes the numeric fields of a Go value as properties.
// Property names are dotted field paths, and slice elements are addressed by
// index, as in "Zones.2.Temp".
type FieldEntity struct {
	Target any
}

// Property walks the field path and converts the field to a float64.
func (e FieldEntity) Property(name string, _ sim.VTimeInSec) (float64, error) {
	elem, err := walkFields(e.Target, name)
	if err != nil {
		return 0, err
	}

	switch elem.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(elem.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32,
		reflect.Uint64, reflect.Uintptr:
		return float64(elem.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return elem.Float(), nil
	case reflect.Bool:
		return boolToFloat(elem.Bool()), nil
	default:
		return 0, fmt.Errorf("property %s is a %s, not a number",
			name, elem.Kind())
	}
}

func walkFields(target any, fields string) (reflect.Value, error) {
	elem := reflect.ValueOf(target)
	fieldNames := strings.Split(fields, ".")

	for {
		for elem.Kind() == reflect.Ptr || elem.Kind() == reflect.Interface {
			if elem.IsNil() {
				return elem, fmt.Errorf("%w: %s is nil", ErrNoProperty, fields)
			}

			elem = elem.Elem()
		}

		if len(fieldNames) == 0 {
			return elem, nil
		}

		switch elem.Kind() {
		case reflect.Struct:
			elem = elem.FieldByName(fieldNames[0])
			if !elem.IsValid() {
				return elem, fmt.Errorf("%w: %s", ErrNoProperty, fields)
			}
		case reflect.Slice, reflect.Array:
			index, err := strconv.Atoi(fieldNames[0])
			if err != nil || index < 0 || index >= elem.Len() {
				return elem, fmt.Errorf("%w: %s", ErrNoProperty, fields)
			}

			elem = elem.Index(index)
		default:
			return elem, fmt.Errorf("%w: %s", ErrNoProperty, fields)
		}

		fieldNames = fieldNames[1:]
	}
}
