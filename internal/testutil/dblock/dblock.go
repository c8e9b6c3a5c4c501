// Package dblock serializes test packages that share one database.
package dblock

import (
	"net"
	"time"
)

const lockAddr = "127.0.0.1:45439"

// Acquire blocks until this process holds the cross-package database
// lock and returns a release function.
func Acquire() func() {
	for {
		ln, err := net.Listen("tcp", lockAddr)
		if err == nil {
			return func() { ln.Close() }
		}
		time.Sleep(50 * time.Millisecond)
	}
}
