// Command storyworker runs the content-production stage dispatcher, either
// continuously (daemon) or as a single scheduled step (step).
package main

import (
	"github.com/contentloom/storyforge/cmd/storyworker/cmd"
)

func main() {
	cmd.Execute()
}
