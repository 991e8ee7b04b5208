// Copyright 2024-2026 Aiku AI

package relay

import "time"

// TimerScheduler runs scheduled actions on runtime timers.
type TimerScheduler struct{}

var _ Scheduler = TimerScheduler{}

func (TimerScheduler) ScheduleOnce(delay time.Duration, action func()) {
	time.AfterFunc(delay, action)
}
