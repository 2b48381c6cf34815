package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/outletops/maintenance-tickets/internal/repository"
	"github.com/outletops/maintenance-tickets/internal/service"
	"github.com/outletops/maintenance-tickets/internal/spreadsheet"
)

var (
	accountEmail    string
	accountPassword string
	accountOutlet   string
	importFile      string
)

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Manage sign-in accounts",
}

var accountsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a single account",
	Long:  `Create an account. Pass --outlet for outlet accounts; the administrator account has none.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		account, err := authService().CreateAccount(cmd.Context(), service.AccountInput{
			Email:    accountEmail,
			Password: accountPassword,
			Outlet:   accountOutlet,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created account %s (%s)\n", account.Email, account.ID)
		return nil
	},
}

var accountsImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import outlet accounts from a workbook",
	Long:  `Import outlet accounts from an .xlsx file with the columns Email, Password and Outlet Name. Existing emails are updated.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(importFile)
		if err != nil {
			return err
		}
		defer f.Close()

		inputs, err := spreadsheet.ReadAccounts(f)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", importFile, err)
		}
		result, err := authService().ImportAccounts(cmd.Context(), inputs)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Imported %d account(s).\n", result.Imported)
		for _, failure := range result.Failed {
			fmt.Fprintf(out, "  row %d (%s): %s\n", failure.Row, failure.Email, failure.Reason)
		}
		if len(result.Failed) > 0 {
			return fmt.Errorf("%d row(s) failed", len(result.Failed))
		}
		return nil
	},
}

func authService() *service.AuthService {
	return service.NewAuthService(*cfg, service.AuthDependencies{
		AccountRepo: repository.NewAccountRepository(pg.PoolHandle()),
		Logger:      logger,
	})
}

func init() {
	accountsCreateCmd.Flags().StringVar(&accountEmail, "email", "", "account email")
	accountsCreateCmd.Flags().StringVar(&accountPassword, "password", "", "account password")
	accountsCreateCmd.Flags().StringVar(&accountOutlet, "outlet", "", "outlet name bound to the account")
	_ = accountsCreateCmd.MarkFlagRequired("email")
	_ = accountsCreateCmd.MarkFlagRequired("password")

	accountsImportCmd.Flags().StringVarP(&importFile, "file", "f", "", "path to the .xlsx workbook")
	_ = accountsImportCmd.MarkFlagRequired("file")

	accountsCmd.AddCommand(accountsCreateCmd)
	accountsCmd.AddCommand(accountsImportCmd)
}
