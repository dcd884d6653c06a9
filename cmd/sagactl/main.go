// Command sagactl operates sagas built on the sagaflow engine: run the
// bundled demo saga end to end, inspect a persisted execution
// snapshot, or resume one that is paused awaiting a reply.
package main

import (
	"log"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("sagactl: %v", err)
	}
}
