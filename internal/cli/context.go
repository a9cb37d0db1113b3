package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/shroudhq/shroud-keyring/internal/chainquery"
	"github.com/shroudhq/shroud-keyring/internal/config"
	"github.com/shroudhq/shroud-keyring/internal/keystore"
	"github.com/shroudhq/shroud-keyring/internal/output"
)

// contextKey is the type for context keys to avoid collisions.
type contextKey string

// cmdCtxKey is the key for storing CommandContext in cobra's context.
const cmdCtxKey contextKey = "shroud-cmd-ctx"

// SetCmdContext stores the CommandContext in the cobra command's context.
func SetCmdContext(cmd *cobra.Command, ctx *CommandContext) {
	base := cmd.Context()
	if base == nil {
		base = context.Background()
	}
	cmd.SetContext(context.WithValue(base, cmdCtxKey, ctx))
}

// GetCmdContext retrieves the CommandContext from the cobra command's context.
// Returns nil if no context is set.
func GetCmdContext(cmd *cobra.Command) *CommandContext {
	ctx := cmd.Context()
	if ctx == nil {
		return nil
	}
	if cmdCtx, ok := ctx.Value(cmdCtxKey).(*CommandContext); ok {
		return cmdCtx
	}
	return nil
}

// CommandContext holds dependencies for CLI commands.
// Uses interfaces where possible to enable testing with mocks.
type CommandContext struct {
	// Cfg provides configuration access (interface for testability).
	Cfg ConfigProvider

	// Log provides logging capabilities (interface for testability).
	Log LogWriter

	// Fmt provides output formatting (interface for testability).
	Fmt FormatProvider

	// Keys is the keystore backing every account/derive/lock command.
	Keys *keystore.Keystore

	// Chain is the external chain-query collaborator behind
	// "account balance" (spec.md §6: "query_balance(owner) ->
	// [(token, amountString)]; the core reparses amounts as integers").
	Chain chainquery.Querier
}

// NewCommandContext creates a context with the given dependencies.
func NewCommandContext(
	cfg *config.Config,
	logger *config.Logger,
	formatter *output.Formatter,
	keys *keystore.Keystore,
	chain chainquery.Querier,
) *CommandContext {
	return &CommandContext{
		Cfg:   cfg,
		Log:   logger,
		Fmt:   formatter,
		Keys:  keys,
		Chain: chain,
	}
}
