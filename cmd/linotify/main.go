// Command linotify relays Linode account events to a chat webhook.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "linotify:", err)
		os.Exit(1)
	}
}
