package banner

import "fmt"

const Version = "1.0.0"

func Print() {
	banner := `
   ____            _____ _       __    __
  / __ \____  _____/ ___/(_)___ _/ /_  / /_
 / / / / __ \/ ___/\__ \/ / __ '/ __ \/ __/
/ /_/ / /_/ (__  )___/ / / /_/ / / / / /_
\____/ .___/____//____/_/\__, /_/ /_/\__/
    /_/                 /____/  v%s - Alert Ingestion
    `
	fmt.Printf(banner, Version)
	fmt.Println("\n------------------------------------------------")
}
