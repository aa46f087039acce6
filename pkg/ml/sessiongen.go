package ml

import (
	"github.com/brianvoe/gofakeit/v7"
)

// Session fixtures for end-to-end tests and the gateway demo subcommand.
// These fabricate plausible raw capture payloads; they are not part of the
// training path, which samples feature vectors directly.

// RandomHumanSession fabricates a session with organic pointer wander,
// irregular click cadence and natural keystroke dwell times.
func RandomHumanSession(seed uint64) *RawSession {
	f := gofakeit.New(seed)

	s := &RawSession{
		SessionDurationMs: f.Float64Range(20_000, 60_000),
	}

	x, y := f.Float64Range(0, 400), f.Float64Range(0, 300)
	velocity := f.Float64Range(0.8, 2.2)
	moves := f.IntRange(40, 120)
	for i := 0; i < moves; i++ {
		prev := velocity
		velocity += f.Float64Range(-0.5, 0.5)
		if velocity < 0.1 {
			velocity = 0.1
		}
		x += f.Float64Range(-25, 25)
		y += f.Float64Range(-25, 25)
		s.MouseMovements = append(s.MouseMovements, MouseMovement{
			X:            x,
			Y:            y,
			Velocity:     velocity,
			Acceleration: velocity - prev,
		})
	}

	ts := 0.0
	clicks := f.IntRange(4, 14)
	for i := 0; i < clicks; i++ {
		ts += f.Float64Range(900, 3500)
		s.Clicks = append(s.Clicks, Click{Timestamp: ts})
	}

	keys := f.IntRange(10, 60)
	for i := 0; i < keys; i++ {
		s.Keystrokes = append(s.Keystrokes, Keystroke{Duration: f.Float64Range(70, 190)})
	}

	return s
}

// RandomBotSession fabricates a replay-script signature: straight-line
// movement at constant velocity, metronomic clicks and uniform dwell times
// in a short session.
func RandomBotSession(seed uint64) *RawSession {
	f := gofakeit.New(seed)

	s := &RawSession{
		SessionDurationMs: f.Float64Range(1_500, 5_000),
	}

	velocity := f.Float64Range(6, 10)
	x, y := 0.0, 0.0
	moves := f.IntRange(20, 50)
	for i := 0; i < moves; i++ {
		x += 12
		y += 12
		s.MouseMovements = append(s.MouseMovements, MouseMovement{
			X:            x,
			Y:            y,
			Velocity:     velocity,
			Acceleration: 0,
		})
	}

	ts := 0.0
	interval := f.Float64Range(80, 140)
	clicks := f.IntRange(8, 20)
	for i := 0; i < clicks; i++ {
		ts += interval
		s.Clicks = append(s.Clicks, Click{Timestamp: ts})
	}

	dwell := f.Float64Range(15, 25)
	keys := f.IntRange(10, 30)
	for i := 0; i < keys; i++ {
		s.Keystrokes = append(s.Keystrokes, Keystroke{Duration: dwell})
	}

	return s
}
