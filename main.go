// main.go
//
// Entry point for the probe-sweep CLI; commands live in cmd/.

package main

import (
	"github.com/inference-sim/probe-sweep/cmd"
)

func main() {
	cmd.Execute()
}
