// Command exchangesim boots the matching engine, the positions
// orchestration engine, and the REST/WebSocket API server. Grounded on
// the teacher's cmd/candlecore/main.go entry point: bare invocation runs
// serve with defaults, any argument hands off to the cobra command tree.
package main

import (
	"os"

	"exchangesim/internal/cmd"
)

func main() {
	if len(os.Args) > 1 {
		cmd.Execute()
		return
	}

	os.Args = append(os.Args, "serve")
	cmd.Execute()
}
