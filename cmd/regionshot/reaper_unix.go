//go:build !windows

package main

import "github.com/ramr/go-reaper"

var reaperRunning = false

// runReaper collects the zombie browser processes when regionshot is the init process of a container
func runReaper() {
	if reaperRunning {
		return
	}

	reaperRunning = true

	go reaper.Reap()
}
