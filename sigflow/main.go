// Command sigflow runs, validates, and describes signal-flow networks written
// in YAML.
package main

import "github.com/sarchlab/signalflow/sigflow/cmd"

func main() {
	cmd.Execute()
}
