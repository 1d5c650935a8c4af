// Package guard is blank-imported by the command tests so that calling main()
// returns before any Postgres, Redis or Kafka connection is attempted.
package guard

import "os"

const testModeEnv = "ORION_TEST_MODE"

func init() {
	if _, set := os.LookupEnv(testModeEnv); !set {
		_ = os.Setenv(testModeEnv, "1")
	}
}
