package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.viam.com/test"

	"github.com/rbe1001/motorcontrol/components/motor/gpio"
	"github.com/rbe1001/motorcontrol/control"
)

const leftMotor = `{"name": "left", "attributes": {
	"pins": {"pwm": "13", "dir": "4", "encoder_a": "26", "encoder_b": "33"},
	"ticks_to_degrees": 2,
	"control_parameters": {"p": 0.002, "i": 0.01, "d": 0.5}}}`

func TestFromReaderValidate(t *testing.T) {
	_, err := FromReader("somepath", strings.NewReader(""))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "EOF")

	_, err = FromReader("somepath", strings.NewReader(`{"board": 1}`))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "unmarshal")

	conf, err := FromReader("somepath", strings.NewReader(`{}`))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, conf, test.ShouldResemble, &Config{
		ConfigFilePath: "somepath",
		Board:          BoardConfig{Model: BoardModelPeriph},
		Loop:           LoopConfig{TickPeriodMs: 1, Capacity: control.DefaultCapacity},
	})
	test.That(t, conf.Loop.TickPeriod(), test.ShouldEqual, time.Millisecond)

	_, err = FromReader("somepath", strings.NewReader(`{"board": {"model": "arduino"}}`))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, `unknown board model "arduino"`)

	_, err = FromReader("somepath", strings.NewReader(`{"log": {"level": "loud"}}`))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "log.level")

	_, err = FromReader("somepath", strings.NewReader(`{"motors": [{}]}`))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, `motors.0`)
	test.That(t, err.Error(), test.ShouldContainSubstring, `"name" is required`)

	_, err = FromReader("somepath", strings.NewReader(`{"motors": [{"name": "left", "attributes": {"pins": {"pwm": "13"}}}]}`))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, `motors.0.pins`)
	test.That(t, err.Error(), test.ShouldContainSubstring, `"dir" is required`)

	_, err = FromReader("somepath", strings.NewReader(`{"motors": [{"name": "left", "attributes": {"wheels": 4}}]}`))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "wheels")

	_, err = FromReader("somepath", strings.NewReader(`{"motors": [`+leftMotor+`,`+leftMotor+`]}`))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "duplicate motor name")

	_, err = FromReader("somepath", strings.NewReader(`{"loop": {"capacity": 0.5, "tick_period_ms": -1}}`))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestFromReaderMotor(t *testing.T) {
	conf, err := FromReader("somepath", strings.NewReader(`{
		"board": {"model": "fake"},
		"loop": {"tick_period_ms": 2, "capacity": 2},
		"log": {"level": "debug", "file": "/tmp/motors.log", "max_size_mb": 10, "max_backups": 3},
		"motors": [`+leftMotor+`]}`))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, conf.Board.Model, test.ShouldEqual, BoardModelFake)
	test.That(t, conf.Loop.TickPeriod(), test.ShouldEqual, 2*time.Millisecond)
	test.That(t, conf.Log.MaxBackups, test.ShouldEqual, 3)

	m := conf.FindMotor("left")
	test.That(t, m, test.ShouldNotBeNil)
	test.That(t, conf.FindMotor("right"), test.ShouldBeNil)
	test.That(t, m.ConvertedAttributes, test.ShouldResemble, &gpio.Config{
		Pins:              gpio.PinConfig{PWM: "13", Direction: "4", EncoderA: "26", EncoderB: "33"},
		TicksToDegrees:    2,
		PWMFreqHz:         20000,
		PWMResolutionBits: 8,
		ITermSize:         control.DefaultITermSize,
		ControlParameters: &control.PIDConfig{P: 0.002, I: 0.01, D: 0.5},
	})

	_, err = FromReader("somepath", strings.NewReader(`{
		"loop": {"capacity": 1},
		"motors": [`+leftMotor+`, {"name": "right", "attributes": {
			"pins": {"pwm": "15", "dir": "25", "encoder_a": "17", "encoder_b": "16"}}}]}`))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "loop services 1")
}

func TestRead(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "missing.json"))
	test.That(t, err, test.ShouldNotBeNil)

	path := filepath.Join(t.TempDir(), "robot.json")
	test.That(t, os.WriteFile(path, []byte(`{"board": {"model": "fake"}, "motors": [`+leftMotor+`]}`), 0o600), test.ShouldBeNil)
	conf, err := Read(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, conf.ConfigFilePath, test.ShouldEqual, path)
	test.That(t, conf.Motors, test.ShouldHaveLength, 1)
}

func TestDefaultRobotConfig(t *testing.T) {
	conf := DefaultRobotConfig()
	test.That(t, conf.Validate(), test.ShouldBeNil)
	test.That(t, conf.Motors, test.ShouldHaveLength, 2)

	left := conf.FindMotor("left").ConvertedAttributes
	test.That(t, left.Pins, test.ShouldResemble, gpio.PinConfig{PWM: "13", Direction: "4", EncoderA: "26", EncoderB: "33"})
	right := conf.FindMotor("right").ConvertedAttributes
	test.That(t, right.Pins, test.ShouldResemble, gpio.PinConfig{PWM: "15", Direction: "25", EncoderA: "17", EncoderB: "16"})
	test.That(t, right.ControlParameters.P, test.ShouldEqual, 0.002)
	test.That(t, right.PWMFreqHz, test.ShouldEqual, 20000)
}
