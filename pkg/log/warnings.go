package log

import (
	"os"

	"github.com/rs/zerolog"

	pkgerrors "github.com/matml/dftgo/pkg/errors"
)

// InstallWarningSink routes library warnings through a zerolog console
// logger. Warning types that implement zerolog.LogObjectMarshaler are
// emitted with their structured fields.
func InstallWarningSink() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	pkgerrors.SetZerologWarnFunc(func(warning error) {
		ev := logger.Warn()
		if m, ok := warning.(zerolog.LogObjectMarshaler); ok {
			ev.EmbedObject(m).Msg(warning.Error())
			return
		}
		ev.Msg(warning.Error())
	})
}
