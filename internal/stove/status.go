package stove

import "fmt"

// Status is the human-meaningful condition derived from a volatile snapshot:
// an icon reference plus a stable status key.
type Status struct {
	Icon string `json:"icon"`
	Key  string `json:"key"`
}

const (
	vendorIcons = "https://www.rika-firenet.com/images/status/"
	customIcons = "https://raw.githubusercontent.com/antibill51/rika-firenet-custom-component/main/images/status/"
)

var (
	statusUnavailable = Status{vendorIcons + "Warning_WifiSignal.svg", "unavailable"}
	statusUnknown     = Status{vendorIcons + "Visu_Off.svg", "unknown"}
)

// statusRule pairs a predicate with the status it yields. Rules are
// evaluated in order and the first match wins; the order is part of the
// contract (connectivity and errors dominate operational states, which
// dominate the split-log family).
type statusRule struct {
	when   func(s *Stove) bool
	status func(s *Stove) Status
}

func fixed(icon, key string) func(*Stove) Status {
	st := Status{icon, key}
	return func(*Stove) Status { return st }
}

func mainStateIs(n int) func(*Stove) bool {
	return func(s *Stove) bool {
		main, ok := s.MainState()
		return ok && main == n
	}
}

func mainStateIn(states ...int) func(*Stove) bool {
	set := map[int]bool{}
	for _, n := range states {
		set[n] = true
	}
	return func(s *Stove) bool {
		main, ok := s.MainState()
		return ok && set[main]
	}
}

func subStateIs(s *Stove, n int) bool {
	sub, ok := s.SubState()
	return ok && sub == n
}

func errorIs(s *Stove, code int) bool {
	e, ok := s.StatusErrorCode()
	return ok && e == code
}

var statusRules = []statusRule{
	// connectivity, critical warnings and faults first
	{
		when:   func(s *Stove) bool { return s.LastSeenMinutes() > 2 },
		status: fixed(vendorIcons+"Warning_WifiSignal.svg", "offline"),
	},
	{
		when: func(s *Stove) bool {
			w, ok := s.StatusWarningCode()
			return ok && w == 2
		},
		status: fixed(vendorIcons+"Any_Warning.svg", "pellet_lid_open"),
	},
	{
		when:   func(s *Stove) bool { return errorIs(s, 1) && subErrorIs(s, 1) },
		status: fixed(customIcons+"Visu_Error.svg", "Error"),
	},
	{
		when:   func(s *Stove) bool { return errorIs(s, 1) && subErrorIs(s, 2) },
		status: fixed(customIcons+"Visu_Empty.svg", "empty_tank"),
	},
	{
		when: func(s *Stove) bool { return errorIs(s, 1) },
		status: func(s *Stove) Status {
			sub, _ := s.StatusSubErrorCode()
			return Status{"/", fmt.Sprintf("statusSubError%d", sub)}
		},
	},
	{
		when:   func(s *Stove) bool { return errorIs(s, 32768) },
		status: fixed(customIcons+"Visu_smoke_fan.svg", "smoke_fan"),
	},
	{
		when:   func(s *Stove) bool { return s.IsFrostProtectionStarted() },
		status: fixed(vendorIcons+"Visu_Freeze.svg", "frost_protection"),
	},

	// main operational states
	{
		when:   func(s *Stove) bool { return mainStateIs(1)(s) && subStateIs(s, 0) },
		status: fixed(vendorIcons+"Visu_Off.svg", "stove_off"),
	},
	{
		when: func(s *Stove) bool {
			sub, ok := s.SubState()
			return mainStateIs(1)(s) && ok && sub >= 1 && sub <= 3
		},
		status: func(s *Stove) Status {
			if subStateIs(s, 2) {
				return Status{vendorIcons + "Visu_Standby.svg", "external_request"}
			}
			return Status{vendorIcons + "Visu_Standby.svg", "standby"}
		},
	},
	{
		when:   mainStateIs(1),
		status: fixed(vendorIcons+"Visu_Off.svg", "sub_state_unknown"),
	},
	{
		when:   mainStateIs(2),
		status: fixed(vendorIcons+"Visu_Ignition.svg", "ignition_on"),
	},
	{
		when:   mainStateIs(3),
		status: fixed(vendorIcons+"Visu_Ignition.svg", "starting_up"),
	},
	{
		when:   mainStateIs(4),
		status: fixed(vendorIcons+"Visu_Control.svg", "running"),
	},
	{
		when:   func(s *Stove) bool { return mainStateIs(5)(s) && (subStateIs(s, 3) || subStateIs(s, 4)) },
		status: fixed(vendorIcons+"Visu_Clean.svg", "big_clean"),
	},
	{
		when:   mainStateIs(5),
		status: fixed(vendorIcons+"Visu_Clean.svg", "clean"),
	},
	{
		when:   mainStateIs(6),
		status: fixed(vendorIcons+"Visu_BurnOff.svg", "burn_off"),
	},

	// split-log family
	{
		when:   mainStateIn(11, 13, 14, 16, 17, 50),
		status: fixed(vendorIcons+"Visu_SpliLog.svg", "split_log_check"),
	},
	{
		when: func(s *Stove) bool {
			t, ok := s.FlameTemperature()
			return mainStateIs(21)(s) && subStateIs(s, 12) && ok && t >= 300 && t <= 350
		},
		status: fixed(vendorIcons+"Visu_SpliLog.svg", "split_log_refuel"),
	},
	{
		when: func(s *Stove) bool {
			t, ok := s.FlameTemperature()
			return mainStateIs(21)(s) && subStateIs(s, 12) && ok && t < 300
		},
		status: fixed(vendorIcons+"Visu_SpliLog.svg", "split_log_stop_refuel"),
	},
	{
		when:   func(s *Stove) bool { return mainStateIs(20)(s) && s.IsEcoMode() },
		status: fixed(vendorIcons+"Visu_SpliLog.svg", "split_log_ecomode"),
	},
	{
		when:   mainStateIn(20, 21),
		status: fixed(vendorIcons+"Visu_SpliLog.svg", "split_log_mode"),
	},
}

func subErrorIs(s *Stove, code int) bool {
	e, ok := s.StatusSubErrorCode()
	return ok && e == code
}

// Status walks the rule table and returns the first match. A stove without
// any snapshot short-circuits to unavailable before rule evaluation.
func (s *Stove) Status() Status {
	if !s.HasState() {
		return statusUnavailable
	}
	for _, rule := range statusRules {
		if rule.when(s) {
			return rule.status(s)
		}
	}
	return statusUnknown
}
