// Command goguard is the operator tool for goGuard deployments: it load-tests the
// limiter and executor against Redis and reads persisted audit trails.
package main

import "os"

func main() {
	os.Exit(execute())
}
