// Command store runs an embedded PocketBase server with the members and
// attendance collections migrated in. Start it with `store serve`.
package main

import (
	"github.com/labstack/gommon/log"
	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"

	_ "bus-checkin/migrations"
)

func main() {
	app := pocketbase.New()

	// adds `store migrate up|down|history`
	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: false,
	})

	if err := app.Start(); err != nil {
		log.Fatalf("PocketBase failed: %v", err)
	}
}
