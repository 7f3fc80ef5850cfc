// Command uquad is the quadrotor real-time flight control loop.
package main

import "github.com/weihli/uquad/internal/cmd"

func main() {
	cmd.Execute()
}
