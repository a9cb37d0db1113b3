package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shroudhq/shroud-keyring/internal/keystore"
	"github.com/shroudhq/shroud-keyring/internal/mnemonic"
	"github.com/shroudhq/shroud-keyring/internal/output"
	"github.com/shroudhq/shroud-keyring/pkg/keyerr"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	createWords  int
	createAlias  string
	createChain  string
	createImport bool

	deriveType    string
	deriveAccount uint32
	deriveChange  uint32
	deriveIndex   uint32
	deriveAlias   string
	deriveChain   string
)

// accountCmd is the parent command for keystore account operations.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Manage keyring accounts",
	Long:  `Create parent accounts from a mnemonic, derive child accounts, and query the keystore.`,
}

// accountCreateCmd creates a new parent account.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var accountCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a parent account from a new or existing mnemonic",
	Long: `Create a parent account.

By default a fresh BIP39 mnemonic is generated and displayed once; pass
--import to paste an existing phrase instead. The phrase seeds both the
transparent (BIP32/BIP44) and shielded (ZIP32) hierarchies.

Example:
  shroud account create --alias primary --chain nam --words 24
  shroud account create --alias primary --chain nam --import`,
	RunE: runAccountCreate,
}

// accountDeriveCmd derives a child account under the active parent.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var accountDeriveCmd = &cobra.Command{
	Use:   "derive",
	Short: "Derive a child account under the active parent",
	Long: `Derive a transparent or shielded child account under the currently
active parent. The keystore must be unlocked first.

Example:
  shroud account derive --type transparent --account 0 --change 0 --index 1 --alias savings --chain nam
  shroud account derive --type shielded --index 0 --alias shielded-main --chain nam`,
	RunE: runAccountDerive,
}

// accountListCmd lists the active parent and its children.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var accountListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the active parent account and its derived children",
	Long: `Print the currently active parent account alongside every child derived under it.

Example:
  shroud account list`,
	Aliases: []string{"ls"},
	RunE:    runAccountList,
}

// accountListParentsCmd lists every parent (Mnemonic) account.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var accountListParentsCmd = &cobra.Command{
	Use:   "list-parents",
	Short: "List every parent account across the keystore",
	Long: `List every Mnemonic-type parent account in the keystore, regardless of
which one is currently active.

Example:
  shroud account list-parents`,
	RunE: runAccountListParents,
}

// accountUseCmd switches the active parent account.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var accountUseCmd = &cobra.Command{
	Use:   "use <id>",
	Short: "Switch the active parent account",
	Long: `Switch the active parent account to <id>, snapshotting the previous
parent's transaction-builder state and rehydrating the new one
(spec.md §4.5, §6). The keystore ends up Locked.

Example:
  shroud account use <id>`,
	Args: cobra.ExactArgs(1),
	RunE: runAccountUse,
}

// accountDeleteCmd removes an account and its children.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var accountDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an account and cascade to its children",
	Long: `Delete the account identified by <id>. If it is a parent account,
every child derived under it is removed too.

Example:
  shroud account delete <id>`,
	Args: cobra.ExactArgs(1),
	RunE: runAccountDelete,
}

// accountBalanceCmd queries the external chain-query collaborator for an
// account's balance.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var accountBalanceCmd = &cobra.Command{
	Use:   "balance <id>",
	Short: "Query the balance of an account's address via the chain-query collaborator",
	Long: `Look up the account identified by <id>, then query its on-chain
balance through the external chain-query collaborator (spec.md §6:
"query_balance(owner) -> [(token, amountString)]; the core reparses
amounts as integers"). This keyring ships a reference collaborator with
an empty balance table; wiring a real one is a deployment concern.

Example:
  shroud account balance <id>`,
	Args: cobra.ExactArgs(1),
	RunE: runAccountBalance,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(accountCmd)
	accountCmd.AddCommand(accountCreateCmd)
	accountCmd.AddCommand(accountDeriveCmd)
	accountCmd.AddCommand(accountListCmd)
	accountCmd.AddCommand(accountListParentsCmd)
	accountCmd.AddCommand(accountUseCmd)
	accountCmd.AddCommand(accountDeleteCmd)
	accountCmd.AddCommand(accountBalanceCmd)

	accountCreateCmd.Flags().IntVar(&createWords, "words", 24, "mnemonic word count: 12 or 24")
	accountCreateCmd.Flags().StringVar(&createAlias, "alias", "", "human-readable label for the account (required)")
	accountCreateCmd.Flags().StringVar(&createChain, "chain", "", "chain identifier (required)")
	accountCreateCmd.Flags().BoolVar(&createImport, "import", false, "paste an existing mnemonic instead of generating one")
	_ = accountCreateCmd.MarkFlagRequired("alias")
	_ = accountCreateCmd.MarkFlagRequired("chain")

	accountDeriveCmd.Flags().StringVar(&deriveType, "type", "transparent", "account type: transparent or shielded")
	accountDeriveCmd.Flags().Uint32Var(&deriveAccount, "account", 0, "BIP44 account index (transparent only)")
	accountDeriveCmd.Flags().Uint32Var(&deriveChange, "change", 0, "BIP44 change index (transparent only)")
	accountDeriveCmd.Flags().Uint32Var(&deriveIndex, "index", 0, "address index (transparent) or hardened account index (shielded)")
	accountDeriveCmd.Flags().StringVar(&deriveAlias, "alias", "", "human-readable label for the account (required)")
	accountDeriveCmd.Flags().StringVar(&deriveChain, "chain", "", "chain identifier (required)")
	_ = accountDeriveCmd.MarkFlagRequired("alias")
	_ = accountDeriveCmd.MarkFlagRequired("chain")
}

func runAccountCreate(cmd *cobra.Command, _ []string) error {
	cmdc := GetCmdContext(cmd)
	w := cmd.OutOrStdout()

	var phrase string
	if createImport {
		p, err := promptMnemonicFn()
		if err != nil {
			return err
		}
		phrase = p
	} else {
		p, err := cmdc.Keys.GenerateMnemonic(createWords)
		if err != nil {
			return err
		}
		phrase = p

		outln(w, "Write down this mnemonic phrase. It will not be shown again:")
		outln(w)
		out(w, "  %s\n", phrase)
		outln(w)
		if !promptConfirmationFn("Have you written it down?") {
			return keyerr.New("ABORTED", "account creation aborted by user")
		}
	}

	password, err := promptNewPasswordFn()
	if err != nil {
		return err
	}
	defer mnemonic.Zero(password)

	ctx := cmd.Context()
	account, err := cmdc.Keys.StoreMnemonic(ctx, phrase, string(password), createAlias, createChain)
	if err != nil {
		return err
	}
	cmdc.Log.Debug("account created: id=%s alias=%s chain=%s", account.ID, account.Alias, account.ChainID)

	return printAccount(w, cmdc, "Account created:", account)
}

func runAccountDerive(cmd *cobra.Command, _ []string) error {
	cmdc := GetCmdContext(cmd)

	var recordType keystore.Type
	switch deriveType {
	case "transparent":
		recordType = keystore.TypePrivateKey
	case "shielded":
		recordType = keystore.TypeShieldedKeys
	default:
		return keyerr.WithDetails(keyerr.New("INVALID_INPUT", "unknown account type"), map[string]string{"type": deriveType})
	}

	path := keystore.Path{Account: deriveAccount, Change: deriveChange, Index: deriveIndex, HasIndex: true}

	ctx := cmd.Context()
	account, err := cmdc.Keys.DeriveAccount(ctx, path, recordType, deriveAlias, deriveChain)
	if err != nil {
		return err
	}
	cmdc.Log.Debug("account derived: id=%s parent=%s type=%s", account.ID, account.ParentID, account.Type)

	return printAccount(cmd.OutOrStdout(), cmdc, "Account derived:", account)
}

func runAccountList(cmd *cobra.Command, _ []string) error {
	cmdc := GetCmdContext(cmd)
	accounts := cmdc.Keys.QueryAccounts()
	return printAccounts(cmd.OutOrStdout(), cmdc, accounts)
}

func runAccountListParents(cmd *cobra.Command, _ []string) error {
	cmdc := GetCmdContext(cmd)
	accounts := cmdc.Keys.QueryParentAccounts()
	return printAccounts(cmd.OutOrStdout(), cmdc, accounts)
}

func runAccountUse(cmd *cobra.Command, args []string) error {
	cmdc := GetCmdContext(cmd)
	if err := cmdc.Keys.SetActiveAccountId(args[0]); err != nil {
		return err
	}
	return output.FormatSuccess(cmd.OutOrStdout(), fmt.Sprintf("active account set to %s", args[0]), cmdc.Fmt.Format())
}

func runAccountBalance(cmd *cobra.Command, args []string) error {
	cmdc := GetCmdContext(cmd)

	account, ok := findAccount(cmdc, args[0])
	if !ok {
		return keyerr.WithDetails(keyerr.ErrUnknownAccount, map[string]string{"id": args[0]})
	}

	balances, err := cmdc.Chain.QueryBalance(cmd.Context(), account.Address)
	if err != nil {
		return keyerr.Wrap(err, "querying balance")
	}

	w := cmd.OutOrStdout()
	if cmdc.Fmt.Format() == output.FormatJSON {
		return writeJSON(w, balances)
	}

	if len(balances) == 0 {
		outln(w, "No balance data available for this address.")
		return nil
	}
	for _, b := range balances {
		out(w, "%s  %s\n", b.Token, b.Amount.String())
	}
	return nil
}

// findAccount searches the active parent's accounts and every parent
// account for one matching id, since the keystore itself only exposes
// scoped queries (spec.md §4.5).
func findAccount(cmdc *CommandContext, id string) (keystore.Public, bool) {
	for _, a := range cmdc.Keys.QueryAccounts() {
		if a.ID == id {
			return a, true
		}
	}
	for _, a := range cmdc.Keys.QueryParentAccounts() {
		if a.ID == id {
			return a, true
		}
	}
	return keystore.Public{}, false
}

func runAccountDelete(cmd *cobra.Command, args []string) error {
	cmdc := GetCmdContext(cmd)

	records, _ := cmdc.Keys.Export()
	known := false
	for _, r := range records {
		if r.ID == args[0] {
			known = true
			break
		}
	}
	if !known {
		return keyerr.WithDetails(keyerr.ErrUnknownAccount, map[string]string{"id": args[0]})
	}

	if !promptConfirmationFn(fmt.Sprintf("Delete account %s and all its children?", args[0])) {
		return keyerr.New("ABORTED", "deletion aborted by user")
	}

	password, err := promptPasswordFn("Enter account password: ")
	if err != nil {
		return err
	}
	defer mnemonic.Zero(password)

	if err := cmdc.Keys.DeleteAccount(args[0], string(password)); err != nil {
		return err
	}
	cmdc.Log.Debug("account deleted: id=%s", args[0])

	return output.FormatSuccess(cmd.OutOrStdout(), fmt.Sprintf("account %s deleted", args[0]), cmdc.Fmt.Format())
}

func printAccount(w interface {
	Write(p []byte) (n int, err error)
}, cmdc *CommandContext, heading string, account keystore.Public,
) error {
	if cmdc.Fmt.Format() == output.FormatJSON {
		return writeJSON(w, account)
	}

	outln(w, heading)
	out(w, "  ID:      %s\n", account.ID)
	if account.ParentID != "" {
		out(w, "  Parent:  %s\n", account.ParentID)
	}
	out(w, "  Alias:   %s\n", account.Alias)
	out(w, "  Chain:   %s\n", account.ChainID)
	out(w, "  Type:    %s\n", account.Type)
	out(w, "  Address: %s\n", account.Address)
	return nil
}

func printAccounts(w interface {
	Write(p []byte) (n int, err error)
}, cmdc *CommandContext, accounts []keystore.Public,
) error {
	if cmdc.Fmt.Format() == output.FormatJSON {
		return writeJSON(w, accounts)
	}

	if len(accounts) == 0 {
		outln(w, "No accounts found.")
		return nil
	}

	for _, a := range accounts {
		out(w, "%s  %-10s  %-8s  %-8s  %s\n", a.ID, a.Alias, a.ChainID, a.Type, a.Address)
	}
	return nil
}
