package main

import "github.com/KaramelBytes/reconcile-cli/cmd"

func main() {
	cmd.Execute()
}
