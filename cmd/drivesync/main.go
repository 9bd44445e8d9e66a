// Command drivesync syncs Google Drive content into the ingestion pipeline.
package main

import (
	"os"

	"github.com/aganswers/drivesync/internal/adapters/driving/cli"
)

func main() {
	if err := cli.Execute(bootstrap); err != nil {
		os.Exit(1)
	}
}
