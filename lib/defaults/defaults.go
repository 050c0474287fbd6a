// Package defaults holds some commonly used options parsed from env var "regionshot".
// Set them will set the default value of options used by regionshot.
// Each value is separated by a ",", key and value are separated by "=",
// For example:
//
//	regionshot=show,trace,dir=shots
//
//	regionshot=show,settle=500ms,pause=100ms,margin=60,speed=30,stealth
package defaults

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-rod/regionshot/lib/utils"
)

// EnvName of the env var that holds the options
const EnvName = "regionshot"

// Show disables headless mode, it's required by the interactive selection
var Show bool

// Trace enables the trace log of each capture step
var Trace bool

// Bin is the default of launcher.Launcher.Bin
var Bin string

// URL of the remote debugging address, if set no browser will be launched
var URL string

// Dir to save the screenshots
var Dir string

// Settle is how long to wait after each scroll before capturing
var Settle time.Duration

// Pause is how long to wait after hiding the progress indicator before capturing
var Pause time.Duration

// Margin is the distance in CSS pixels to the viewport edge that triggers auto-scroll
var Margin float64

// Speed is the auto-scroll distance in CSS pixels of each tick
var Speed float64

// Tick is the interval of auto-scroll
var Tick time.Duration

// Stealth creates pages with github.com/go-rod/stealth
var Stealth bool

// Monitor is the address of the http server, empty means disabled
var Monitor string

// Parse the flags
func init() {
	ResetWithEnv()
}

// Reset all flags to their init values.
func Reset() {
	Show = false
	Trace = false
	Bin = ""
	URL = ""
	Dir = "screenshots"
	Settle = 300 * time.Millisecond
	Pause = 100 * time.Millisecond
	Margin = 50
	Speed = 20
	Tick = 10 * time.Millisecond
	Stealth = false
	Monitor = ""
}

// ResetWithEnv all flags by the value of the regionshot env var.
func ResetWithEnv() {
	Reset()
	parse(os.Getenv(EnvName))
}

// parse options and set them globally
func parse(options string) {
	if options == "" {
		return
	}

	for _, f := range strings.Split(options, ",") {
		kv := strings.SplitN(f, "=", 2)
		rule, has := rules[kv[0]]
		if !has {
			panic("no such regionshot option: " + kv[0])
		}
		if len(kv) == 2 {
			rule(kv[1])
		} else {
			rule("")
		}
	}
}

func duration(v string) time.Duration {
	d, err := time.ParseDuration(v)
	utils.E(err)
	return d
}

func float(v string) float64 {
	f, err := strconv.ParseFloat(v, 64)
	utils.E(err)
	return f
}

var rules = map[string]func(string){
	"show": func(string) {
		Show = true
	},
	"trace": func(string) {
		Trace = true
	},
	"bin": func(v string) {
		Bin = v
	},
	"url": func(v string) {
		URL = v
	},
	"dir": func(v string) {
		Dir = v
	},
	"settle": func(v string) {
		Settle = duration(v)
	},
	"pause": func(v string) {
		Pause = duration(v)
	},
	"margin": func(v string) {
		Margin = float(v)
	},
	"speed": func(v string) {
		Speed = float(v)
	},
	"tick": func(v string) {
		Tick = duration(v)
	},
	"stealth": func(string) {
		Stealth = true
	},
	"monitor": func(v string) {
		Monitor = ":7318"
		if v != "" {
			Monitor = v
		}
	},
}
