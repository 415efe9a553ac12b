package fluxmaps

import(
	"errors"
)

var (
	ErrMissingConfigKey   = errors.New("fluxmaps: missing config key")
	ErrBadConfig          = errors.New("fluxmaps: bad config")
	ErrReportExists       = errors.New("fluxmaps: report already exists")
	ErrManifestIncomplete = errors.New("fluxmaps: manifest incomplete")
	ErrUnknownPolicy      = errors.New("fluxmaps: unknown normalization policy")
)
