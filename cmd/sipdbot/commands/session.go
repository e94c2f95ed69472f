package commands

import (
	"fmt"

	"sipdbot/lib/cliutil"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(sessionCmd)
}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Check whether the saved cookies still hold a live session.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		client := newCoreClient(cfg)

		ok, err := client.LoggedIn(cmd.Context())
		if err != nil {
			cliutil.Fatal("failed to check session", err)
		}
		if ok {
			fmt.Println("session is live")
		} else {
			fmt.Println("session has expired, run `sipdbot login` again")
		}
	},
}
