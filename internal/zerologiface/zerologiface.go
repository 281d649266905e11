// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package zerologiface implements a logiface backend using zerolog.
package zerologiface

import (
	"time"

	"github.com/joeycumines/logiface"
	"github.com/rs/zerolog"
)

type (
	Event struct {
		logiface.UnimplementedEvent
		Z   *zerolog.Event
		msg string
		lvl logiface.Level
	}

	Logger struct {
		Z zerolog.Logger
	}
)

var (
	// compile time assertions

	_ logiface.Event                = (*Event)(nil)
	_ logiface.EventFactory[*Event] = (*Logger)(nil)
	_ logiface.Writer[*Event]       = (*Logger)(nil)
)

// WithZerolog configures a logiface logger to write using z.
func WithZerolog(z zerolog.Logger) logiface.Option[*Event] {
	impl := &Logger{Z: z}
	return logiface.WithOptions[*Event](
		logiface.WithEventFactory[*Event](impl),
		logiface.WithWriter[*Event](impl),
	)
}

// New returns a generic logger writing to z, e.g. for jobsys.WithLogger.
func New(z zerolog.Logger, options ...logiface.Option[*Event]) *logiface.Logger[logiface.Event] {
	return logiface.New[*Event](append([]logiface.Option[*Event]{WithZerolog(z)}, options...)...).Logger()
}

func (x *Event) Level() logiface.Level {
	if x != nil {
		return x.lvl
	}
	return logiface.LevelDisabled
}

func (x *Event) AddField(key string, val any) {
	x.Z.Interface(key, val)
}

func (x *Event) AddMessage(msg string) bool {
	x.msg = msg
	return true
}

func (x *Event) AddError(err error) bool {
	x.Z.Err(err)
	return true
}

func (x *Event) AddString(key string, val string) bool {
	x.Z.Str(key, val)
	return true
}

func (x *Event) AddInt(key string, val int) bool {
	x.Z.Int(key, val)
	return true
}

func (x *Event) AddDuration(key string, val time.Duration) bool {
	x.Z.Dur(key, val)
	return true
}

func (x *Event) AddBool(key string, val bool) bool {
	x.Z.Bool(key, val)
	return true
}

func (x *Event) AddUint64(key string, val uint64) bool {
	x.Z.Uint64(key, val)
	return true
}

func (x *Logger) NewEvent(level logiface.Level) *Event {
	if !level.Enabled() {
		return nil
	}
	r := Event{
		lvl: level,
	}
	switch level {
	case logiface.LevelTrace:
		r.Z = x.Z.Trace()
	case logiface.LevelDebug:
		r.Z = x.Z.Debug()
	case logiface.LevelInformational:
		r.Z = x.Z.Info()
	case logiface.LevelNotice, logiface.LevelWarning:
		r.Z = x.Z.Warn()
	case logiface.LevelError:
		r.Z = x.Z.Error()
	case logiface.LevelCritical, logiface.LevelAlert:
		// WithLevel, as zerolog's Fatal calls os.Exit
		r.Z = x.Z.WithLevel(zerolog.FatalLevel)
	case logiface.LevelEmergency:
		r.Z = x.Z.WithLevel(zerolog.PanicLevel)
	default:
		// >= 9, translate to numeric levels in zerolog
		// (9 -> -2, 10 -> -3, etc)
		r.Z = x.Z.WithLevel(zerolog.Level(7 - level))
	}
	return &r
}

func (x *Logger) Write(event *Event) error {
	event.Z.Msg(event.msg)
	return nil
}
