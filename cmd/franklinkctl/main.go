// Command franklinkctl is the operator CLI: inspect configuration, seed local
// stores, mint development tokens and render a user's graph from the shell.
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
