// Command labscan runs the lab value extractor and the risk classifier locally.
//
//	labscan extract report.txt
//	labscan ocr report.jpg
//	labscan classify --dob 05/03/1990 --sex male --wbc 7500 --rbc 4.8 --platelets 250000 --hemoglobin 14.2
package main

import (
	"fmt"
	"os"

	"hemotwin-backend/internal/shared/telemetry"
)

func main() {
	telemetry.SetOutput(os.Stderr)
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "labscan:", err)
		os.Exit(1)
	}
}
