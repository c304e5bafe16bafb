package mining

import "github.com/forgecoind/forgecoind/infrastructure/logger"

var (
	backendLog = logger.NewBackend()
	log        = backendLog.Logger("MINR")
)

// UseLogger redirects this package's log output to an externally
// configured backend, the way every subsystem in this tree picks up
// the process-wide logger once one exists.
func UseLogger(l *logger.Logger) {
	log = l
}
