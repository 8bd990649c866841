// Command jbw-client connects to a jbw-server, adds one agent, and walks it
// forward a fixed number of ticks, printing each STEP broadcast it owns.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"jellybeanworld/rpcclient"
	"jellybeanworld/world"
)

func main() {
	addr := flag.String("addr", "localhost:54321", "jbw-server wire protocol address")
	ticks := flag.Int("ticks", 20, "number of ticks to walk forward before exiting")
	flag.Parse()

	done := make(chan struct{})
	tickCount := 0

	var c *rpcclient.Client
	onStep := func(newTime uint64, agents []world.AgentState) {
		fmt.Printf("tick %d: %d agents\n", newTime, len(agents))
		for _, a := range agents {
			fmt.Printf("  agent %d at (%d,%d) facing %s\n", a.ID, a.Position.X, a.Position.Y, a.Facing)
		}
		tickCount++
		if tickCount >= *ticks {
			close(done)
		}
	}

	var err error
	c, err = rpcclient.Dial(*addr, onStep)
	if err != nil {
		log.Fatalf("dial failed: %v", err)
	}
	defer c.Close()

	fmt.Printf("connected as client %d\n", c.ClientID)

	agent, err := c.AddAgent()
	if err != nil {
		log.Fatalf("add_agent failed: %v", err)
	}
	fmt.Printf("added agent %d at (%d,%d)\n", agent.ID, agent.Position.X, agent.Position.Y)

	for i := 0; i < *ticks; i++ {
		if err := c.Move(agent.ID, world.DirectionUp, 1); err != nil {
			fmt.Fprintf(os.Stderr, "move failed: %v\n", err)
		}
	}

	<-done
}
