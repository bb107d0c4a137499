package ability

import "github.com/oarkflow/ability/logger"

// Logger is re-exported so callers configuring the checker do not need to
// import the logger package directly.
type Logger = logger.Logger
