package config

import "time"

const (
	DefaultTimeZone = "Asia/Kolkata"

	// Cache warm job: early morning before the first dashboard loads.
	DefaultWarmSchedule = "0 6 * * *"
	WarmJobTimeout      = 2 * time.Minute

	// Divisions registered when the master database carries no registry.
	DefaultDivisions = "fp,hc"
)
