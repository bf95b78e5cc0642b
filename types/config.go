package types

// HAL configuration supplied on topic "config/hal".

type HALConfig struct {
	// CPUHz, when set, must match the platform clock.
	CPUHz uint32 `json:"cpu_hz,omitempty"`
	// TicsPerSecond is the rate of the timer-overflow tic counter.
	TicsPerSecond uint32 `json:"tics_per_second,omitempty"`
	// StatusPeriodMS is how often serial status is republished.
	StatusPeriodMS uint32   `json:"status_period_ms,omitempty"`
	Devices        []Device `json:"devices"`
}

type Device struct {
	ID     string `json:"id"`
	Type   string `json:"type"` // "uart" | "soft_serial"
	Params any    `json:"params,omitempty"`
	BusRef BusRef `json:"bus_ref,omitempty"` // I²C bus of a bridged UART
}

type BusRef struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}
