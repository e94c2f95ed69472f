package main

import (
	"sipdbot/cmd/sipdbot/commands"
	"sipdbot/lib/osutil"
)

func main() {
	commands.ExecuteContext(osutil.SignalContext())
}
