// Command bridgesim simulates nodes exchanging messages over bridged
// networks.
package main

import "github.com/sarchlab/bridgesim/bridgesim/cmd"

func main() {
	cmd.Execute()
}
