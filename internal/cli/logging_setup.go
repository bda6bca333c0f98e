package cli

import (
	"github.com/spf13/cobra"

	"github.com/koleo-cli/koleo/internal/config"
	"github.com/koleo-cli/koleo/internal/logging"
)

// setupLogging builds the logger from config, environment and --debug, and
// attaches it with a fresh trace id to the command context.
func setupLogging(cmd *cobra.Command, cfg *config.Config) logging.LogPathResult {
	loggingCfg := cfg.LoggingConfig()

	debug, _ := cmd.Flags().GetBool("debug")
	if debug {
		loggingCfg.Level = "debug"
		if loggingCfg.File == "" {
			loggingCfg.Format = logging.FormatConsole
			loggingCfg.Output = logging.OutputStderr
		}
	}

	result := logging.NewLoggerWithPath(loggingCfg)

	if result.UsingFile && debug {
		logging.PrintLogPathMessage(cmd.ErrOrStderr(), result.FilePath)
	} else if result.FallbackUsed {
		logging.PrintFallbackWarning(cmd.ErrOrStderr(), result.FallbackReason)
	}

	ctx := cmd.Context()
	traceID := logging.GetOrGenerateTraceID(ctx)
	ctx = logging.ContextWithTraceID(ctx, traceID)

	logger := result.Logger.With().Str("trace_id", traceID).Logger()
	ctx = logger.WithContext(ctx)
	cmd.SetContext(ctx)

	cliLog := logging.ComponentLogger(logger, "cli")
	cliLog.Debug().
		Str("command", cmd.CommandPath()).
		Str("config", cfg.Path()).
		Msg("command started")

	return result
}
