// Package notification reports fatal startup problems to the operator, who
// may have launched the program without a console.
package notification

import (
	"fmt"
	"log"
)

const title = "screen-pilot"

// ReportStartupFailure logs err and shows it in a blocking dialog where one
// is available.
func ReportStartupFailure(err error) {
	if err == nil {
		return
	}
	log.Printf("STARTUP: %v", err)
	ShowBlockingError(title, fmt.Sprintf("Startup failed: %v", err))
}
