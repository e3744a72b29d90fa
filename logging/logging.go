package logging

import (
	"strings"

	log "github.com/cihub/seelog"
	"github.com/pkg/errors"
)

const configTemplate = `
<seelog type="sync" minlevel="{LEVEL}">
	<outputs formatid="common">
		<console/>
	</outputs>
	<formats>
		<format id="common" format="%Date %Time [%LEV] [%File:%Line] %Msg%n"/>
	</formats>
</seelog>
`

// Setup replaces the package level seelog logger with a console logger
// at the given minimum level.
func Setup(level string) error {
	cfg := strings.Replace(configTemplate, "{LEVEL}", strings.ToLower(level), 1)

	logger, err := log.LoggerFromConfigAsString(cfg)
	if err != nil {
		return errors.Wrap(err, "parse log config")
	}

	if err := log.ReplaceLogger(logger); err != nil {
		return errors.Wrap(err, "replace logger")
	}
	return nil
}
