//go:build linux

package main

import "github.com/luhtfiimanal/go-linux-serial/cmd/serial-monitor/cmd"

func main() {
	cmd.Execute()
}
