package utils

import (
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"
)

func TestAssertType(t *testing.T) {
	one := 1
	_, err := AssertType[string](one)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err, test.ShouldBeError, NewUnexpectedTypeError("", one))

	asserted, err := AssertType[myAssertIfc](myAssertInt(one))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, asserted.method1(), test.ShouldBeError, errors.New("cool 8)"))
}

type myAssertIfc interface {
	method1() error
}

type myAssertInt int

func (m myAssertInt) method1() error {
	return errors.New("cool 8)")
}

type nested struct {
	Pin string `json:"pin"`
}

type transformTarget struct {
	Name   string   `json:"name"`
	Rate   float64  `json:"rate,omitempty"`
	Bits   uint     `json:"bits"`
	Nested *nested  `json:"nested"`
	List   []string `json:"list"`
}

func TestTransformAttributeMap(t *testing.T) {
	t.Run("pointer target", func(t *testing.T) {
		out, err := TransformAttributeMap[*transformTarget](AttributeMap{
			"name":   "left",
			"rate":   2,
			"bits":   8.0,
			"nested": map[string]interface{}{"pin": "13"},
			"list":   []interface{}{"a", "b"},
		})
		test.That(t, err, test.ShouldBeNil)
		test.That(t, out.Name, test.ShouldEqual, "left")
		test.That(t, out.Rate, test.ShouldEqual, 2.0)
		test.That(t, out.Bits, test.ShouldEqual, uint(8))
		test.That(t, out.Nested.Pin, test.ShouldEqual, "13")
		test.That(t, out.List, test.ShouldResemble, []string{"a", "b"})
	})

	t.Run("value target", func(t *testing.T) {
		out, err := TransformAttributeMap[transformTarget](AttributeMap{"name": "right"})
		test.That(t, err, test.ShouldBeNil)
		test.That(t, out.Name, test.ShouldEqual, "right")
		test.That(t, out.Nested, test.ShouldBeNil)
	})

	t.Run("unknown attribute", func(t *testing.T) {
		_, err := TransformAttributeMap[*transformTarget](AttributeMap{"nmae": "typo"})
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "nmae")
	})
}

func TestAttributeMap(t *testing.T) {
	am := AttributeMap{"a": 1, "b": 2.5, "c": "x"}
	test.That(t, am.Has("a"), test.ShouldBeTrue)
	test.That(t, am.Has("z"), test.ShouldBeFalse)
	test.That(t, am.Float64("a", 0), test.ShouldEqual, 1.0)
	test.That(t, am.Float64("b", 0), test.ShouldEqual, 2.5)
	test.That(t, am.Float64("c", 7), test.ShouldEqual, 7.0)
	test.That(t, am.Float64("z", 3), test.ShouldEqual, 3.0)
}
