package config

// ReminderKeyStruct holds the Redis keys the reminder passes write for
// operational visibility. Counters are monotonically increasing dispatch
// totals; last-pass keys hold RFC3339 timestamps of the latest completed run.
type ReminderKeyStruct struct {
	SentDayAheadCounter  string
	SentHourAheadCounter string
	LastDayAheadPass     string
	LastHourAheadPass    string
}

var ReminderKey = &ReminderKeyStruct{
	SentDayAheadCounter:  "reminders:sent:day_ahead",
	SentHourAheadCounter: "reminders:sent:hour_ahead",
	LastDayAheadPass:     "reminders:last_pass:day_ahead",
	LastHourAheadPass:    "reminders:last_pass:hour_ahead",
}
