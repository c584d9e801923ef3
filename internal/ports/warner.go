package ports

// Warner receives non-fatal diagnostics raised while ingesting configuration.
// *logrus.Logger and *logrus.Entry satisfy it.
type Warner interface {
	Warnf(format string, args ...any)
}
