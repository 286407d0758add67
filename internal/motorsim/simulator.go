// Package motorsim simulates a DC motor and streams its telemetry to any
// number of live viewers.
package motorsim

import (
	"math"
	"time"
)

// Motor model constants.
const (
	AmbientTemp      = 25.0   // °C
	InitialTarget    = 1500.0 // RPM
	TargetSwing      = 500.0  // RPM amplitude of the target oscillation
	TargetFrequency  = 0.2    // rad/s
	RunningThreshold = 100.0  // RPM above which the motor reports running

	torquePerRPM     = 0.05
	currentPerTorque = 0.1
	currentPerRPM    = 0.001
	heatPerAmp       = 0.5
	coolingCoeff     = 0.1
)

// Status values reported in Telemetry.
const (
	StatusRunning = "running"
	StatusIdle    = "idle"
)

// Params are the motor's physical limits.
type Params struct {
	MaxSpeed     float64 // RPM
	Acceleration float64 // RPM per second
}

// DefaultParams returns the limits of the stock motor.
func DefaultParams() Params {
	return Params{MaxSpeed: 3000, Acceleration: 500}
}

// Telemetry is one sample of the motor state.
type Telemetry struct {
	Timestamp   int64   `json:"timestamp"` // Unix milliseconds
	Speed       float64 `json:"speed"`
	Torque      float64 `json:"torque"`
	Temperature float64 `json:"temperature"`
	Current     float64 `json:"current"`
	Status      string  `json:"status"`
}

// Simulator holds the motor state. It is not safe for concurrent use; the
// Runner owns it.
type Simulator struct {
	params Params

	speed       float64
	targetSpeed float64
	torque      float64
	temperature float64
	current     float64
}

func NewSimulator(p Params) *Simulator {
	return &Simulator{
		params:      p,
		targetSpeed: InitialTarget,
		temperature: AmbientTemp,
	}
}

// Update advances the model by dt seconds. now drives the oscillating
// target speed used for the next step.
func (s *Simulator) Update(dt float64, now time.Time) {
	diff := s.targetSpeed - s.speed
	step := s.params.Acceleration * dt
	if math.Abs(diff) <= step {
		s.speed = s.targetSpeed
	} else {
		s.speed += math.Copysign(step, diff)
	}
	s.speed = clamp(s.speed, 0, s.params.MaxSpeed)

	s.torque = math.Abs(s.targetSpeed-s.speed) * torquePerRPM
	s.current = s.torque*currentPerTorque + s.speed*currentPerRPM

	heat := s.current * heatPerAmp
	cooling := (s.temperature - AmbientTemp) * coolingCoeff
	s.temperature += (heat - cooling) * dt

	t := float64(now.UnixNano()) / float64(time.Second)
	s.targetSpeed = InitialTarget + TargetSwing*math.Sin(t*TargetFrequency)
}

// Telemetry reports the current state stamped with now.
func (s *Simulator) Telemetry(now time.Time) Telemetry {
	status := StatusIdle
	if s.speed > RunningThreshold {
		status = StatusRunning
	}
	return Telemetry{
		Timestamp:   now.UnixMilli(),
		Speed:       s.speed,
		Torque:      s.torque,
		Temperature: s.temperature,
		Current:     s.current,
		Status:      status,
	}
}

// SetTargetSpeed sets the speed the motor ramps toward, clamped to
// [0, MaxSpeed]. The next Update replaces it with the oscillating target.
func (s *Simulator) SetTargetSpeed(rpm float64) {
	s.targetSpeed = clamp(rpm, 0, s.params.MaxSpeed)
}

// TargetSpeed returns the speed the motor is ramping toward.
func (s *Simulator) TargetSpeed() float64 {
	return s.targetSpeed
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}
