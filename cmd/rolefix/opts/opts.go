package opts

import (
	"github.com/buildra/rolefix/pkg/catalog"
	"github.com/buildra/rolefix/pkg/config"
	"github.com/buildra/rolefix/pkg/log"
)

// RootOpts contains shared options used by all commands
type RootOpts struct {
	Config     *config.Config
	Catalog    *catalog.Catalog
	UserLogger *log.UserLogger
}
