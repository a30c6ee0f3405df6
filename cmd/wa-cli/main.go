package main

import (
	"context"
	"wabrowser/cmd/wa-cli/commands"
	"wabrowser/lib/telemetry"
)

func main() {
	telemetry.InitSlog(false)
	commands.ExecuteContext(context.Background())
}
