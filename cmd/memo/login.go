package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sakif/memopad/internal/cliconfig"
	"github.com/sakif/memopad/internal/editor"
)

var loginCmd = &cobra.Command{
	Use:   "login <email>",
	Short: "Email yourself a sign-in code",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		cfg := loadConfig()

		gate := editor.NewAuthGate(newClient(cfg), slog.Default())
		defer gate.Close()
		if err := gate.SignIn(ctx, args[0]); err != nil {
			fatal("Error requesting sign-in code", err)
		}
		fmt.Printf("Sign-in code sent to %s. Run 'memo verify %s <code>'.\n", args[0], args[0])
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify <email> <code>",
	Short: "Finish signing in with the emailed code",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		cfg := loadConfig()
		c := newClient(cfg)

		user, err := c.Verify(ctx, args[0], args[1])
		if err != nil {
			fatal("Error verifying code", err)
		}

		cfg.Token = c.Token()
		if err := cliconfig.Save(configPath, cfg); err != nil {
			fatal("Error saving session", err)
		}
		fmt.Printf("Signed in as %s\n", user.Login)
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget the saved session",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		cfg := loadConfig()

		gate := editor.NewAuthGate(newClient(cfg), slog.Default())
		defer gate.Close()
		if err := gate.SignOut(ctx); err != nil {
			fatal("Error signing out", err)
		}

		cfg.Token = ""
		if err := cliconfig.Save(configPath, cfg); err != nil {
			fatal("Error saving config", err)
		}
		fmt.Println("Signed out")
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in account",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		cfg := loadConfig()
		if localMode {
			st := openLocal(ctx, cfg)
			defer st.Close()
			fmt.Printf("%s (local)\n", st.User().Login)
			return
		}

		gate := editor.NewAuthGate(newClient(cfg), slog.Default())
		defer gate.Close()
		user := gate.Check(ctx)
		if user == nil {
			fmt.Println("Not signed in")
			return
		}
		fmt.Printf("%s <%s>\n", user.Login, user.Email)
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
}
